package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher implements Hasher using bcrypt. bcrypt embeds the salt in the
// hash and compares in constant time.
type BcryptHasher struct {
	// Cost is the bcrypt cost parameter. Zero means bcrypt.DefaultCost.
	Cost int
}

// NewBcryptHasher creates a bcrypt hasher with the default cost
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

// Hash implements Hasher.Hash
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// Verify implements Hasher.Verify
func (h *BcryptHasher) Verify(password, hashedPassword string) (bool, error) {
	if password == "" || hashedPassword == "" {
		return false, errors.New("password and hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil // Password doesn't match, but not an error
		}
		return false, err // Some other error occurred
	}

	return true, nil
}
