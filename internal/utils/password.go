package utils // package utils provides password hashing helpers

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a randomly salted bcrypt hash of plain using the
// given cost. Costs below bcrypt's minimum are raised to the library
// default so a misconfigured cost can never weaken stored hashes.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a stored bcrypt hash against a plain password in
// constant time. It returns false, never an error, for mismatches and for
// malformed stored hashes.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
