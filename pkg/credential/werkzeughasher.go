package credential

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// WerkzeugHasher verifies hashes written by the previous Flask deployment:
//
//	pbkdf2:sha256:600000$<salt>$<hex>
//	scrypt:32768:8:1$<salt>$<hex>
//
// It cannot hash; accounts are rehashed with bcrypt after a successful login.
type WerkzeugHasher struct{}

func (h *WerkzeugHasher) Hash(password string) (string, error) {
	return "", errors.New("werkzeug hashes are verify-only")
}

func (h *WerkzeugHasher) Verify(password, hashedPassword string) (bool, error) {
	if password == "" || hashedPassword == "" {
		return false, errors.New("password and hashed password cannot be empty")
	}

	parts := strings.SplitN(hashedPassword, "$", 3)
	if len(parts) != 3 {
		return false, ErrUnsupportedHash
	}
	method, salt, want := parts[0], []byte(parts[1]), parts[2]

	expected, err := hex.DecodeString(want)
	if err != nil {
		return false, ErrUnsupportedHash
	}

	params := strings.Split(method, ":")
	var computed []byte
	switch params[0] {
	case "pbkdf2":
		if len(params) < 2 {
			return false, ErrUnsupportedHash
		}
		iterations := 600000
		if len(params) == 3 {
			if iterations, err = strconv.Atoi(params[2]); err != nil {
				return false, ErrUnsupportedHash
			}
		}
		digest, err := pbkdf2Digest(params[1])
		if err != nil {
			return false, err
		}
		computed = pbkdf2.Key([]byte(password), salt, iterations, len(expected), digest)
	case "scrypt":
		n, r, p := 32768, 8, 1
		if len(params) == 4 {
			vals := make([]int, 3)
			for i := range vals {
				if vals[i], err = strconv.Atoi(params[i+1]); err != nil {
					return false, ErrUnsupportedHash
				}
			}
			n, r, p = vals[0], vals[1], vals[2]
		}
		computed, err = scrypt.Key([]byte(password), salt, n, r, p, len(expected))
		if err != nil {
			return false, err
		}
	default:
		return false, ErrUnsupportedHash
	}

	return subtle.ConstantTimeCompare(expected, computed) == 1, nil
}

func pbkdf2Digest(name string) (func() hash.Hash, error) {
	switch name {
	case "sha256":
		return sha256.New, nil
	case "sha512":
		return sha512.New, nil
	case "sha1":
		return sha1.New, nil
	}
	return nil, ErrUnsupportedHash
}
