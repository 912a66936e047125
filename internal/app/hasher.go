package app

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Supported password hash schemes. The encoded hash always names its scheme
// and parameters, so records produced under different schemes or costs can
// be verified side by side.
const (
	SchemePBKDF2   = "pbkdf2"
	SchemeScrypt   = "scrypt"
	SchemeArgon2id = "argon2id"
	SchemeBcrypt   = "bcrypt"
)

const (
	pbkdf2Iterations = 600000
	scryptN          = 1 << 15
	scryptR          = 8
	scryptP          = 1
	scryptKeyLen     = 64
	argonTime        = 3
	argonMemory      = 64 * 1024
	argonThreads     = 2
	argonKeyLen      = 32
	saltLen          = 16

	// upper bounds applied when parsing stored hashes
	maxPBKDF2Iterations = 10_000_000
	maxArgonMemory      = 1 << 21
	maxScryptN          = 1 << 20
)

// ErrPasswordTooLong is returned by Hash when the scheme cannot take the
// whole password (bcrypt reads at most 72 bytes).
var ErrPasswordTooLong = errors.New("password is too long")

const maxBcryptPassword = 72

const saltChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PasswordHasher produces self-describing salted password hashes.
//
// The pbkdf2 and scrypt encodings are the ones werkzeug writes
// ("pbkdf2:sha256:600000$salt$hex"), argon2id uses the PHC string format and
// bcrypt its modular crypt format.
type PasswordHasher struct {
	scheme string
	rand   io.Reader
}

// NewPasswordHasher returns a hasher that writes hashes with scheme.
// An empty scheme selects pbkdf2.
func NewPasswordHasher(scheme string) (*PasswordHasher, error) {
	switch scheme {
	case "":
		scheme = SchemePBKDF2
	case SchemePBKDF2, SchemeScrypt, SchemeArgon2id, SchemeBcrypt:
	default:
		return nil, fmt.Errorf("unknown hash scheme %q", scheme)
	}
	return &PasswordHasher{scheme: scheme, rand: rand.Reader}, nil
}

// Scheme reports the scheme used by Hash.
func (h *PasswordHasher) Scheme() string {
	return h.scheme
}

// Hash derives a new hash of password with a fresh random salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	switch h.scheme {
	case SchemeBcrypt:
		if len(password) > maxBcryptPassword {
			return "", ErrPasswordTooLong
		}
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(b), nil
	case SchemeArgon2id:
		salt := make([]byte, saltLen)
		if _, err := io.ReadFull(h.rand, salt); err != nil {
			return "", fmt.Errorf("read salt: %w", err)
		}
		key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
		return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
			argon2.Version, argonMemory, argonTime, argonThreads,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(key)), nil
	case SchemeScrypt:
		salt, err := h.textSalt()
		if err != nil {
			return "", err
		}
		key, err := scrypt.Key([]byte(password), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
		if err != nil {
			return "", fmt.Errorf("scrypt: %w", err)
		}
		return fmt.Sprintf("scrypt:%d:%d:%d$%s$%s", scryptN, scryptR, scryptP, salt, hex.EncodeToString(key)), nil
	default:
		salt, err := h.textSalt()
		if err != nil {
			return "", err
		}
		key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, sha256.Size, sha256.New)
		return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", pbkdf2Iterations, salt, hex.EncodeToString(key)), nil
	}
}

// Verify reports whether password matches encoded. Malformed or unknown
// encodings never match.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	return VerifyPassword(password, encoded)
}

// VerifyPassword checks password against any supported encoding.
func VerifyPassword(password, encoded string) bool {
	switch {
	case encoded == "":
		return false
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(password, encoded)
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	case strings.HasPrefix(encoded, "pbkdf2:"):
		return verifyPBKDF2(password, encoded)
	case strings.HasPrefix(encoded, "scrypt:"):
		return verifyScrypt(password, encoded)
	}
	return false
}

func (h *PasswordHasher) textSalt() (string, error) {
	limit := big.NewInt(int64(len(saltChars)))
	var sb strings.Builder
	for i := 0; i < saltLen; i++ {
		n, err := rand.Int(h.rand, limit)
		if err != nil {
			return "", fmt.Errorf("read salt: %w", err)
		}
		sb.WriteByte(saltChars[n.Int64()])
	}
	return sb.String(), nil
}

// splitWerkzeug splits "method$salt$hex" and decodes the digest.
func splitWerkzeug(encoded string) (method []string, salt string, digest []byte, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[1] == "" {
		return nil, "", nil, false
	}
	digest, err := hex.DecodeString(parts[2])
	if err != nil || len(digest) == 0 {
		return nil, "", nil, false
	}
	return strings.Split(parts[0], ":"), parts[1], digest, true
}

func verifyPBKDF2(password, encoded string) bool {
	method, salt, want, ok := splitWerkzeug(encoded)
	if !ok || len(method) < 2 || len(method) > 3 {
		return false
	}
	var fn func() hash.Hash
	switch method[1] {
	case "sha1":
		fn = sha1.New
	case "sha256":
		fn = sha256.New
	case "sha512":
		fn = sha512.New
	default:
		return false
	}
	iter := pbkdf2Iterations
	if len(method) == 3 {
		n, err := strconv.Atoi(method[2])
		if err != nil || n <= 0 || n > maxPBKDF2Iterations {
			return false
		}
		iter = n
	}
	got := pbkdf2.Key([]byte(password), []byte(salt), iter, len(want), fn)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func verifyScrypt(password, encoded string) bool {
	method, salt, want, ok := splitWerkzeug(encoded)
	if !ok || len(method) != 4 {
		return false
	}
	var params [3]int
	for i, s := range method[1:] {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return false
		}
		params[i] = n
	}
	if params[0] > maxScryptN || params[1] > 32 || params[2] > 16 {
		return false
	}
	got, err := scrypt.Key([]byte(password), []byte(salt), params[0], params[1], params[2], len(want))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

func verifyArgon2id(password, encoded string) bool {
	// $argon2id$v=19$m=65536,t=3,p=2$salt$hash
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	var memory, passes uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &passes, &threads); err != nil {
		return false
	}
	if memory == 0 || memory > maxArgonMemory || passes == 0 || threads == 0 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, passes, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
