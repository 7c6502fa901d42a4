package order

import (
	"crypto/md5" // #nosec G501 -- prefix only, not a security boundary
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"

	"github.com/go-faster/errors"
)

const (
	idPrefixLen = 4
	idSuffixLen = 16
)

// NewID derives an order identifier from the customer's email: four hex
// characters of its MD5 digest, a dash and sixteen random hex characters.
// Uniqueness comes from the random suffix.
func NewID(email string) (string, error) {
	return newID(email, rand.Reader)
}

func newID(email string, random io.Reader) (string, error) {
	sum := md5.Sum([]byte(email)) // #nosec G401
	buf := make([]byte, idSuffixLen/2)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", errors.Wrap(err, "read random")
	}
	return hex.EncodeToString(sum[:])[:idPrefixLen] + "-" + hex.EncodeToString(buf), nil
}

// RedactEmail masks every vowel of email with '*'.
func RedactEmail(email string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
			return '*'
		}
		return r
	}, email)
}
