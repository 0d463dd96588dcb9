package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/settle-idm/pkg/twofa"
)

const (
	// CodeLength is the number of digits in a code
	CodeLength = 6

	// DefaultExpiry is how long an issued code stays valid
	DefaultExpiry = 10 * time.Minute
)

var codeSpace = big.NewInt(1_000_000)

// Code is a stored one-time code
type Code struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CodeHash  string
	Method    twofa.Method
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
}

// GenerateCode draws a uniformly distributed 6-digit code from r.
func GenerateCode(r io.Reader) (string, error) {
	n, err := rand.Int(r, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashCode returns the hex SHA-256 digest under which a code is stored
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// WellFormed reports whether s is exactly CodeLength ASCII digits
func WellFormed(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
