package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const randomStringCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRandomString returns a random alphanumeric string of the given
// length using crypto/rand. Suitable for opaque tokens and identifiers.
func GenerateRandomString(length int) string {
	result := make([]byte, length)
	max := big.NewInt(int64(len(randomStringCharset)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform RNG is broken;
			// nothing sensible to fall back to.
			panic(err)
		}
		result[i] = randomStringCharset[n.Int64()]
	}
	return string(result)
}

// GenerateRandomHex returns n random bytes hex-encoded (2n characters).
func GenerateRandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
