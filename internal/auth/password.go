package auth

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// ErrUnsupportedHash is returned when a stored password hash cannot be read.
var ErrUnsupportedHash = errors.New("unsupported password hash encoding")

// werkzeug's default when a pbkdf2 method omits the iteration count.
const defaultPBKDF2Iterations = 600000

// Upper bounds on cost parameters read from stored hashes. Anything above
// them is treated as an unreadable hash.
const (
	maxPBKDF2Iterations = 10_000_000
	maxScryptN          = 1 << 20
	maxScryptRP         = 64
	maxScryptMemory     = 128 << 20 // 128*N*r bytes
)

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword checks password against a stored hash. Besides bcrypt it
// accepts the werkzeug "pbkdf2:<digest>[:iter]$salt$hex" and
// "scrypt:N:r:p$salt$hex" encodings. A hash it cannot interpret yields
// ErrUnsupportedHash rather than a mismatch.
func VerifyPassword(stored, password string) (bool, error) {
	switch {
	case isBcrypt(stored):
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
	case strings.HasPrefix(stored, "pbkdf2:"), strings.HasPrefix(stored, "scrypt:"):
		return verifyWerkzeug(stored, password)
	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsRehash reports whether a valid stored hash should be upgraded to bcrypt.
func NeedsRehash(stored string) bool {
	return !isBcrypt(stored)
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func verifyWerkzeug(stored, password string) (bool, error) {
	parts := strings.SplitN(stored, "$", 3)
	if len(parts) != 3 || parts[1] == "" {
		return false, ErrUnsupportedHash
	}
	method, salt := parts[0], []byte(parts[1])
	want, err := hex.DecodeString(parts[2])
	if err != nil || len(want) == 0 {
		return false, ErrUnsupportedHash
	}

	var got []byte
	args := strings.Split(method, ":")
	switch args[0] {
	case "pbkdf2":
		if len(args) < 2 || len(args) > 3 {
			return false, ErrUnsupportedHash
		}
		h, ok := digest(args[1])
		if !ok {
			return false, ErrUnsupportedHash
		}
		iterations := defaultPBKDF2Iterations
		if len(args) == 3 {
			iterations, err = strconv.Atoi(args[2])
			if err != nil || iterations <= 0 || iterations > maxPBKDF2Iterations {
				return false, ErrUnsupportedHash
			}
		}
		got = pbkdf2.Key([]byte(password), salt, iterations, h().Size(), h)
	case "scrypt":
		if len(args) != 4 {
			return false, ErrUnsupportedHash
		}
		var n, r, p int
		for i, dst := range []*int{&n, &r, &p} {
			if *dst, err = strconv.Atoi(args[i+1]); err != nil {
				return false, ErrUnsupportedHash
			}
		}
		if !scryptParamsOK(n, r, p) {
			return false, ErrUnsupportedHash
		}
		got, err = scrypt.Key([]byte(password), salt, n, r, p, 64)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
		}
	default:
		return false, ErrUnsupportedHash
	}

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func scryptParamsOK(n, r, p int) bool {
	if n <= 1 || n > maxScryptN || n&(n-1) != 0 {
		return false
	}
	if r <= 0 || p <= 0 || r > maxScryptRP || p > maxScryptRP || r*p > maxScryptRP {
		return false
	}
	return 128*n*r <= maxScryptMemory
}

func digest(name string) (func() hash.Hash, bool) {
	switch name {
	case "sha256":
		return sha256.New, true
	case "sha512":
		return sha512.New, true
	case "sha1":
		return sha1.New, true
	}
	return nil, false
}
