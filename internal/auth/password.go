// Package auth hashes and verifies the API password with argon2id.
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

var (
	ErrInvalidPasswordHash         = errors.New("auth: invalid password hash format")
	ErrIncompatiblePasswordVersion = errors.New("auth: incompatible password hash version")
	ErrInvalidCredentials          = errors.New("auth: invalid credentials")
)

// Argon2idParams are the cost parameters encoded into every hash.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword returns a PHC string:
// $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<hash>.
func HashPassword(password string, params Argon2idParams) (string, error) {
	if password == "" {
		return "", errors.New("auth: password is empty")
	}
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

// VerifyPassword checks password against a hash from HashPassword. A wrong
// password yields ErrInvalidCredentials; a malformed hash yields
// ErrInvalidPasswordHash.
func VerifyPassword(hashedPassword, password string) error {
	params, salt, want, err := decodeHash(hashedPassword)
	if err != nil {
		return err
	}

	got := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)
	if subtle.ConstantTimeCompare(want, got) == 1 {
		return nil
	}
	return ErrInvalidCredentials
}

// ValidateHash reports whether hashedPassword is a well-formed argon2id hash.
func ValidateHash(hashedPassword string) error {
	_, _, _, err := decodeHash(hashedPassword)
	return err
}

func decodeHash(hashedPassword string) (Argon2idParams, []byte, []byte, error) {
	var params Argon2idParams

	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, ErrInvalidPasswordHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, fmt.Errorf("%w: %v", ErrInvalidPasswordHash, err)
	}
	if version != argon2.Version {
		return params, nil, nil, ErrIncompatiblePasswordVersion
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, fmt.Errorf("%w: %v", ErrInvalidPasswordHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: salt: %v", ErrInvalidPasswordHash, err)
	}
	params.SaltLength = uint32(len(salt))

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: hash: %v", ErrInvalidPasswordHash, err)
	}
	if len(hash) == 0 {
		return params, nil, nil, ErrInvalidPasswordHash
	}
	params.KeyLength = uint32(len(hash))

	return params, salt, hash, nil
}
