package supplier

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/internal/core/common/validation"
	supplierDatamodel "github.com/frahmantamala/supplier-portal/internal/core/datamodel/supplier"
)

const (
	minNameLength     = 2
	minDocumentLength = 5
	maxScore          = 100
)

// monthRefLayouts are tried in order; the first is the documented format.
var monthRefLayouts = []string{"2006-01-02", time.RFC3339, "2006-01"}

// RegisterSupplierDTO is the optional company block of a registration request.
type RegisterSupplierDTO struct {
	FantasyName string  `json:"fantasyName"`
	LegalName   string  `json:"legalName"`
	DocumentID  string  `json:"documentId"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
}

// AddRules registers the supplier field rules on v, prefixing field names.
func (d *RegisterSupplierDTO) AddRules(v *validation.ValidationBuilder, prefix string) {
	v.Field(prefix+"fantasyName", d.FantasyName).Required().MinLength(minNameLength)
	v.Field(prefix+"legalName", d.LegalName).Required().MinLength(minNameLength)
	v.Field(prefix+"documentId", d.DocumentID).Required().MinLength(minDocumentLength)
	v.Field(prefix+"email", d.Email).Required().Email()
}

func (d *RegisterSupplierDTO) ToDataModel() *supplierDatamodel.Supplier {
	return &supplierDatamodel.Supplier{
		FantasyName: d.FantasyName,
		LegalName:   d.LegalName,
		DocumentID:  d.DocumentID,
		Email:       d.Email,
		Phone:       d.Phone,
		Address:     d.Address,
	}
}

type RecordIQFDTO struct {
	MonthRef      string   `json:"monthRef"`
	IQFScore      *float64 `json:"iqfScore"`
	ApprovalScore *float64 `json:"approvalScore,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
}

func (d RecordIQFDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("monthRef", d.MonthRef).Required().Custom(func(value interface{}) *errors.AppError {
		if _, err := ParseMonthRef(value.(string)); err != nil {
			return errors.NewValidationFieldError("monthRef", "monthRef must be a date formatted as YYYY-MM-DD", errors.ErrCodeInvalidDate)
		}
		return nil
	})
	v.Field("iqfScore", d.IQFScore).Required().Range(0, maxScore, errors.ErrCodeInvalidScore)
	v.Field("approvalScore", d.ApprovalScore).Range(0, maxScore, errors.ErrCodeInvalidScore)
	return v.Validate()
}

func (d RecordIQFDTO) ToDataModel(supplierID string) (*supplierDatamodel.IQFHistory, error) {
	monthRef, err := ParseMonthRef(d.MonthRef)
	if err != nil {
		return nil, err
	}
	return &supplierDatamodel.IQFHistory{
		SupplierID:    supplierID,
		MonthRef:      monthRef,
		IQFScore:      *d.IQFScore,
		ApprovalScore: d.ApprovalScore,
		Notes:         d.Notes,
	}, nil
}

func ParseMonthRef(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range monthRefLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
