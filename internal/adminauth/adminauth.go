package adminauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"behaviorgate/internal/config"
)

var (
	ErrMalformedHash = errors.New("malformed argon2id hash")
	ErrInvalidParams = errors.New("invalid argon2id parameters")
)

// Params are the argon2id cost settings used when hashing a new key.
type Params struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength int
}

func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Time:       cfg.Argon2Time,
		Memory:     cfg.Argon2Memory,
		Threads:    cfg.Argon2Threads,
		KeyLength:  cfg.Argon2KeyLength,
		SaltLength: cfg.Argon2SaltLength,
	}
}

// Hash derives an encoded hash of key in the PHC string format:
// $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
func Hash(key string, p Params) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}

	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(key), salt, p.Time, p.Memory, p.Threads, p.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether key matches the encoded hash. The hash carries its
// own cost parameters.
func Verify(encoded, key string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	var (
		memory, time uint32
		threads      uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}

	if time < 1 || threads < 1 {
		return false, fmt.Errorf("%w: t and p must be at least 1", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, fmt.Errorf("%w: hash", ErrMalformedHash)
	}

	got := argon2.IDKey([]byte(key), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// argon2.IDKey panics on zero rounds or zero parallelism.
func (p Params) validate() error {
	switch {
	case p.Time < 1:
		return fmt.Errorf("%w: time must be at least 1", ErrInvalidParams)
	case p.Threads < 1:
		return fmt.Errorf("%w: threads must be at least 1", ErrInvalidParams)
	case p.KeyLength < 1:
		return fmt.Errorf("%w: key length must be at least 1", ErrInvalidParams)
	case p.SaltLength < 1:
		return fmt.Errorf("%w: salt length must be at least 1", ErrInvalidParams)
	}
	return nil
}

// KeyFromHeaders extracts the presented admin key from either a bearer
// Authorization header or X-Admin-Key.
func KeyFromHeaders(authorization, adminKey string) string {
	if token, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(adminKey)
}
