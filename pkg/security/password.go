package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/printdock/printdock-backend/pkg/config"
)

// ErrInvalidHash signals a stored password hash in neither supported format.
var ErrInvalidHash = errors.New("invalid password hash")

// argonParams are the Argon2id settings embedded in each hash string.
type argonParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
	saltLen     uint32
	keyLen      uint32
}

// PasswordCheck is the outcome of comparing a password with a stored hash.
// Rehash is set on a match whose hash is bcrypt or was made with different
// Argon2id settings than the current config.
type PasswordCheck struct {
	Match  bool
	Rehash bool
}

// HashPassword returns an encoded Argon2id hash of password.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	p := paramsFromConfig(cfg)
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.parallelism, p.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// CheckPassword compares password against encoded. Accounts imported from
// the previous storefront still carry bcrypt hashes; those verify but are
// flagged for rehashing.
func CheckPassword(password, encoded string, cfg config.PasswordConfig) (PasswordCheck, error) {
	if isBcrypt(encoded) {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		switch {
		case err == nil:
			return PasswordCheck{Match: true, Rehash: true}, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return PasswordCheck{}, nil
		default:
			return PasswordCheck{}, fmt.Errorf("%w: %v", ErrInvalidHash, err)
		}
	}

	stored, salt, key, err := decodeArgon(encoded)
	if err != nil {
		return PasswordCheck{}, err
	}
	computed := argon2.IDKey([]byte(password), salt, stored.time, stored.memory, stored.parallelism, stored.keyLen)
	if subtle.ConstantTimeCompare(key, computed) != 1 {
		return PasswordCheck{}, nil
	}
	return PasswordCheck{Match: true, Rehash: stored != paramsFromConfig(cfg)}, nil
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") || strings.HasPrefix(encoded, "$2b$") || strings.HasPrefix(encoded, "$2y$")
}

func paramsFromConfig(cfg config.PasswordConfig) argonParams {
	return argonParams{
		memory:      clampUint32(cfg.ArgonMemoryKB, 8, 512*1024),
		time:        clampUint32(cfg.ArgonTime, 1, 10),
		parallelism: uint8(clampInt(cfg.ArgonParallelism, 1, 255)),
		saltLen:     clampUint32(cfg.ArgonSaltLen, 8, 64),
		keyLen:      clampUint32(cfg.ArgonKeyLen, 16, 64),
	}
}

// decodeArgon parses $argon2id$v=19$m=..,t=..,p=..$salt$key.
func decodeArgon(encoded string) (argonParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	var p argonParams
	for _, token := range strings.Split(parts[3], ",") {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			return argonParams{}, nil, nil, ErrInvalidHash
		}
		bits := 32
		if key == "p" {
			bits = 8
		}
		v, err := strconv.ParseUint(value, 10, bits)
		if err != nil {
			return argonParams{}, nil, nil, ErrInvalidHash
		}
		switch key {
		case "m":
			p.memory = uint32(v)
		case "t":
			p.time = uint32(v)
		case "p":
			p.parallelism = uint8(v)
		}
	}
	if p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.saltLen = uint32(len(salt))
	p.keyLen = uint32(len(key))
	return p, salt, key, nil
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampUint32(value, min, max int) uint32 {
	return uint32(clampInt(value, min, max))
}
