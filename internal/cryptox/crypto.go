// Package cryptox implements credential hashing for profiles and
// local-identity accounts. Secrets are derived with Argon2id and stored as
// "argon2id$<salt-hex>$<hash-hex>".
package cryptox

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"heatwave/internal/common"
)

const credentialScheme = "argon2id"

// DeriveKey stretches a password with the given salt.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// HashCredential derives a storable credential secret from a password,
// generating a fresh random salt.
func HashCredential(password []byte) string {
	salt := common.GenerateRandByteArray(16)
	key := DeriveKey(password, salt)
	return fmt.Sprintf("%s$%s$%s", credentialScheme, hex.EncodeToString(salt), hex.EncodeToString(key))
}

// VerifyCredential reports whether password matches the stored secret.
// Malformed secrets never verify.
func VerifyCredential(secret string, password []byte) bool {
	parts := strings.Split(secret, "$")
	if len(parts) != 3 || parts[0] != credentialScheme {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil {
		return false
	}
	got := DeriveKey(password, salt)
	return subtle.ConstantTimeCompare(want, got) == 1
}
