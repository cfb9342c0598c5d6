package application

import "golang.org/x/crypto/bcrypt"

const minPasswordLength = 8

// CreatePasswordHash hashes a password with bcrypt at the default cost.
func CreatePasswordHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a stored bcrypt hash against a candidate
// password. Any mismatch is reported as ErrInvalidCredentials.
func VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func validatePassword(v *ValidationError, field, password, repeat string) {
	if len(password) < minPasswordLength {
		v.add(field, "password must be at least 8 characters")
	}
	if password != repeat {
		v.add(field+"_repeat", "passwords do not match")
	}
}
