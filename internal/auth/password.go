package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	defaultArgon2Memory      uint32 = 64 * 1024
	defaultArgon2Iterations  uint32 = 3
	defaultArgon2Parallelism uint8  = 4
	argon2SaltLength                = 16
	argon2KeyLength          uint32 = 32
)

var errMalformedHash = errors.New("malformed argon2id hash")

// Argon2Hasher produces PHC-formatted argon2id hashes:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>
type Argon2Hasher struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

func NewArgon2Hasher(memoryKiB, iterations uint32, parallelism uint8) *Argon2Hasher {
	h := &Argon2Hasher{Memory: memoryKiB, Iterations: iterations, Parallelism: parallelism}
	if h.Memory == 0 {
		h.Memory = defaultArgon2Memory
	}
	if h.Iterations == 0 {
		h.Iterations = defaultArgon2Iterations
	}
	if h.Parallelism == 0 {
		h.Parallelism = defaultArgon2Parallelism
	}
	return h
}

func (h *Argon2Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, argon2SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.Iterations, h.Memory, h.Parallelism, argon2KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Iterations, h.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify never errors: a malformed or foreign hash simply does not match.
// Cost parameters are read from the hash, not from the hasher.
func (h *Argon2Hasher) Verify(encodedHash, plaintext string) bool {
	params, salt, key, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(plaintext), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1
}

func decodeArgon2Hash(encodedHash string) (*Argon2Hasher, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, nil, errMalformedHash
	}

	params := &Argon2Hasher{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return nil, nil, nil, errMalformedHash
	}
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return nil, nil, nil, errMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, errMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, nil, errMalformedHash
	}

	return params, salt, key, nil
}
