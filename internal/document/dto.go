package document

import (
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	errors "github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/core/common/validation"
	"github.com/google/uuid"
)

const (
	maxTypeLength     = 64
	maxFileNameLength = 255

	defaultContentType = "application/octet-stream"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadInput is one received file plus its form fields.
type UploadInput struct {
	Type        string
	FileName    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

func (in UploadInput) Validate(maxBytes int64) *errors.AppError {
	if in.Body == nil {
		return errors.ErrMissingFile
	}
	if maxBytes > 0 && in.Size > maxBytes {
		return errors.ErrFileTooLarge
	}

	v := validation.NewValidator()
	v.Field("file", in.FileName).Required().MaxLength(maxFileNameLength)
	v.Field("type", in.Type).MaxLength(maxTypeLength)
	return v.Validate()
}

func (in UploadInput) documentType() string {
	if t := strings.TrimSpace(in.Type); t != "" {
		return t
	}
	return DefaultType
}

func (in UploadInput) contentType() string {
	if in.ContentType != "" {
		return in.ContentType
	}
	return defaultContentType
}

// ObjectKey places a file under its supplier with a unique, filesystem-safe
// name: suppliers/<supplierID>/<unix ms>-<uuid>-<name>.
func ObjectKey(supplierID, fileName string, at time.Time) string {
	name := unsafeNameChars.ReplaceAllString(path.Base(strings.ReplaceAll(fileName, `\`, "/")), "_")
	if name == "" || name == "." || name == "/" {
		name = "file"
	}
	return fmt.Sprintf("suppliers/%s/%d-%s-%s", supplierID, at.UnixMilli(), uuid.NewString(), name)
}
