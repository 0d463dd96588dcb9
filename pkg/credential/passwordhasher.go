package credential

import (
	"errors"
	"strings"
)

var ErrUnsupportedHash = errors.New("unsupported password hash format")

// PasswordHasher defines the interface for password hashing implementations
type PasswordHasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash.
	// A mismatch is (false, nil).
	Verify(password, hashedPassword string) (bool, error)
}

// MultiHasher hashes new passwords with its primary hasher and verifies any
// stored format it recognizes by prefix.
type MultiHasher struct {
	primary  PasswordHasher
	bcrypt   *BcryptHasher
	argon2   *Argon2Hasher
	werkzeug *WerkzeugHasher
}

// NewMultiHasher returns a hasher that writes bcrypt and reads bcrypt,
// argon2id and werkzeug pbkdf2/scrypt hashes. Cost 0 means bcrypt.DefaultCost.
func NewMultiHasher(bcryptCost int) *MultiHasher {
	b := NewBcryptHasher(bcryptCost)
	return &MultiHasher{
		primary:  b,
		bcrypt:   b,
		argon2:   NewArgon2Hasher(),
		werkzeug: &WerkzeugHasher{},
	}
}

func (m *MultiHasher) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *MultiHasher) Verify(password, hashedPassword string) (bool, error) {
	h, err := m.detect(hashedPassword)
	if err != nil {
		return false, err
	}
	return h.Verify(password, hashedPassword)
}

// NeedsRehash reports whether a stored hash is in a format other than the primary one
func (m *MultiHasher) NeedsRehash(hashedPassword string) bool {
	h, err := m.detect(hashedPassword)
	return err == nil && h != m.primary
}

func (m *MultiHasher) detect(hashedPassword string) (PasswordHasher, error) {
	switch {
	case strings.HasPrefix(hashedPassword, "$2a$"),
		strings.HasPrefix(hashedPassword, "$2b$"),
		strings.HasPrefix(hashedPassword, "$2y$"):
		return m.bcrypt, nil
	case strings.HasPrefix(hashedPassword, "$argon2id$"):
		return m.argon2, nil
	case strings.HasPrefix(hashedPassword, "pbkdf2:"),
		strings.HasPrefix(hashedPassword, "scrypt:"):
		return m.werkzeug, nil
	}
	return nil, ErrUnsupportedHash
}
