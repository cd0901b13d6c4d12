// Package crypto implements server-side password hashing and verification.
//
// Hashes are Argon2id in the standard encoded form
// $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
// with a fresh random salt per call, so the stored string is self-contained.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/avolkhov/melodeon/internal/errs"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
	saltLen             = 16
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword hashes password with a fresh random salt. Two calls with the
// same password produce different encodings; both verify.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: empty password", errs.ErrHashing)
	}
	salt, err := RandBytes(saltLen)
	if err != nil {
		return "", fmt.Errorf("%w: generate salt: %v", errs.ErrHashing, err)
	}
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// VerifyPassword verifies password against an encoded hash. The comparison is
// constant-time over the full key length. A malformed encoding fails closed:
// it reports an internal error, never a match/mismatch.
func VerifyPassword(password, encoded string) (bool, error) {
	salt, expected, timeP, memory, threads, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, timeP, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(got, expected) == 1, nil
}

// decodeHash parses the $argon2id$ encoded form back into its parameters.
func decodeHash(encoded string) (salt, key []byte, timeP, memory uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: malformed hash encoding", errs.ErrHashing)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: unsupported argon2 version", errs.ErrHashing)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeP, &threads); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: malformed hash parameters", errs.ErrHashing)
	}
	if memory == 0 || timeP == 0 || threads == 0 {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: zero hash parameters", errs.ErrHashing)
	}

	salt, derr := base64.RawStdEncoding.DecodeString(parts[4])
	if derr != nil || len(salt) == 0 {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: malformed salt", errs.ErrHashing)
	}
	key, derr = base64.RawStdEncoding.DecodeString(parts[5])
	if derr != nil || len(key) == 0 {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: malformed key", errs.ErrHashing)
	}
	return salt, key, timeP, memory, threads, nil
}
