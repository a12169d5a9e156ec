package guard

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"unicode"

	"golang.org/x/crypto/pbkdf2"

	apperrors "github.com/hyungyunlim/obsidian-social-archiver-sub002/pkg/errors"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 100000

	minPasswordLength = 8

	StrengthWeak   = "weak"
	StrengthMedium = "medium"
	StrengthStrong = "strong"
)

// 70 printable symbols used by GeneratePassword.
const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

// PasswordValidation reports policy compliance. Strength is only set for
// valid passwords.
type PasswordValidation struct {
	Valid    bool     `json:"valid"`
	Strength string   `json:"strength,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// ValidatePassword checks the hard policy rules (length, not all-digit, not
// all-alphabetic), enumerating every violated rule, then buckets strength by
// length and character-class variety.
func ValidatePassword(password string) PasswordValidation {
	var errs []string

	if len(password) < minPasswordLength {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	var lower, upper, digit, special bool
	allDigits, allAlpha := len(password) > 0, len(password) > 0
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
			allDigits = false
		case unicode.IsUpper(r):
			upper = true
			allDigits = false
		case unicode.IsDigit(r):
			digit = true
			allAlpha = false
		default:
			special = true
			allDigits = false
			allAlpha = false
		}
	}

	if allDigits {
		errs = append(errs, "must not be entirely numeric")
	}
	if allAlpha {
		errs = append(errs, "must contain at least one number or special character")
	}

	if len(errs) > 0 {
		return PasswordValidation{Valid: false, Errors: errs}
	}

	classes := 0
	for _, present := range []bool{lower, upper, digit, special} {
		if present {
			classes++
		}
	}

	strength := StrengthWeak
	switch {
	case len(password) >= 12 && classes >= 3:
		strength = StrengthStrong
	case classes >= 2:
		strength = StrengthMedium
	}

	return PasswordValidation{Valid: true, Strength: strength}
}

// HashPassword derives a salted PBKDF2-SHA256 key from the plaintext and
// returns base64(salt||key). The salt is random per call, so hashing the
// same plaintext twice yields different hashes. Policy violations are
// rejected before any key derivation.
func HashPassword(password string) (string, error) {
	if v := ValidatePassword(password); !v.Valid {
		return "", apperrors.Validation("Password does not meet policy", v.Errors...)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", apperrors.Storage("Failed to generate salt: " + err.Error())
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	return base64.StdEncoding.EncodeToString(append(salt, key...)), nil
}

// VerifyPassword re-derives a key with the salt embedded in the stored hash
// and compares in constant time. Malformed hashes verify as false, never as
// an error; this path is called speculatively on untrusted input.
func VerifyPassword(password, hash string) bool {
	decoded, err := base64.StdEncoding.DecodeString(hash)
	if err != nil || len(decoded) <= saltSize {
		return false
	}

	salt := decoded[:saltSize]
	stored := decoded[saltSize:]

	derived := pbkdf2.Key([]byte(password), salt, iterations, len(stored), sha256.New)
	return subtle.ConstantTimeCompare(derived, stored) == 1
}

// GeneratePassword draws length cryptographically random bytes and maps each
// into the fixed alphabet. Redrawn until the result passes ValidatePassword,
// which is near-immediate for any length >= 8.
func GeneratePassword(length int) (string, error) {
	if length == 0 {
		length = 16
	}
	if length < minPasswordLength {
		return "", apperrors.Validation(fmt.Sprintf("Generated password length must be at least %d", minPasswordLength))
	}

	buf := make([]byte, length)
	out := make([]byte, length)
	for {
		if _, err := rand.Read(buf); err != nil {
			return "", apperrors.Storage("Failed to generate password: " + err.Error())
		}
		for i, b := range buf {
			out[i] = passwordAlphabet[int(b)%len(passwordAlphabet)]
		}
		if v := ValidatePassword(string(out)); v.Valid {
			return string(out), nil
		}
	}
}
