// Package password wraps bcrypt hashing and verification. The rest of the
// server treats it as a black box: one function to hash a plaintext, one
// to check a candidate against a stored hash.
package password

import "golang.org/x/crypto/bcrypt"

// hashCost trades hashing latency for brute-force resistance.
const hashCost = 10

// Hash produces a salted bcrypt hash of the plaintext.
func Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches the stored bcrypt hash.
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
