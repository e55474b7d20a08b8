package utils

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a stored hash with a plain password. Besides
// bcrypt it accepts the "hexkey.salt" scrypt format (N=16384, r=8, p=1,
// 64-byte key) written by the previous site so old accounts keep working.
func VerifyPassword(hash, plain string) bool {
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	}
	return verifyLegacyScrypt(hash, plain)
}

// NeedsRehash reports whether a stored hash should be replaced with bcrypt
// after a successful login.
func NeedsRehash(hash string) bool { return !strings.HasPrefix(hash, "$2") }

func verifyLegacyScrypt(stored, plain string) bool {
	keyHex, salt, ok := strings.Cut(stored, ".")
	if !ok || keyHex == "" || salt == "" {
		return false
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) != 64 {
		return false
	}
	got, err := scrypt.Key([]byte(plain), []byte(salt), 16384, 8, 1, 64)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
