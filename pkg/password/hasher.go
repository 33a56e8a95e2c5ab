package password

// Hasher defines the interface for password hashing implementations.
// Implementations must never log or otherwise expose the plaintext or the
// stored hash.
type Hasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash.
	// A mismatch is reported as (false, nil), not as an error.
	Verify(password, hashedPassword string) (bool, error)
}
