// Package auth holds the two security primitives of the service: the
// credential verifier that hashes and checks passwords, and the token
// service that issues, verifies and refreshes bearer tokens.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var errMalformedHash = errors.New("malformed password hash")

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
	saltLen uint32
}

var defaultArgonParams = argonParams{
	memory:  64 * 1024,
	time:    1,
	threads: 4,
	keyLen:  32,
	saltLen: 16,
}

// CredentialOption tunes a CredentialVerifier.
type CredentialOption func(*argonParams)

// WithArgonParams overrides the argon2id cost parameters used for new hashes.
// Existing hashes keep the parameters encoded in them.
func WithArgonParams(memoryKiB, iterations uint32, threads uint8) CredentialOption {
	return func(p *argonParams) {
		p.memory = memoryKiB
		p.time = iterations
		p.threads = threads
	}
}

// CredentialVerifier turns plaintext passwords into storable argon2id hashes
// and checks candidates against them. The pepper is mixed in with
// HMAC-SHA256 before hashing, so a leaked table is useless without it.
type CredentialVerifier struct {
	pepper []byte
	params argonParams
}

func NewCredentialVerifier(pepper string, opts ...CredentialOption) *CredentialVerifier {
	v := &CredentialVerifier{pepper: []byte(pepper), params: defaultArgonParams}
	for _, opt := range opts {
		opt(&v.params)
	}
	return v
}

// Hash returns the encoded hash of plaintext with a fresh random salt:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
func (v *CredentialVerifier) Hash(plaintext string) (string, error) {
	salt := make([]byte, v.params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	p := v.params
	key := argon2.IDKey(v.peppered(plaintext), salt, p.time, p.memory, p.threads, p.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Matches reports whether candidate hashes to stored. An empty or malformed
// stored value never matches, but still costs one full derivation so callers
// can use it for unknown accounts without a timing difference.
func (v *CredentialVerifier) Matches(candidate, stored string) bool {
	p, salt, key, err := decodeHash(stored)
	if err != nil {
		p = v.params
		argon2.IDKey(v.peppered(candidate), make([]byte, p.saltLen), p.time, p.memory, p.threads, p.keyLen)
		return false
	}

	got := argon2.IDKey(v.peppered(candidate), salt, p.time, p.memory, p.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1
}

func (v *CredentialVerifier) peppered(plaintext string) []byte {
	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(plaintext))
	return mac.Sum(nil)
}

func decodeHash(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errMalformedHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, errMalformedHash
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return p, nil, nil, errMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, errMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errMalformedHash
	}
	p.saltLen = uint32(len(salt))
	p.keyLen = uint32(len(key))

	return p, salt, key, nil
}
