// Package session verifies the encrypted session tokens issued by the
// NextAuth-based frontend. Tokens are JWE objects encrypted with a key
// derived from the shared session secret; verification is stateless, so
// results are cached to keep the hot path off the crypto.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/square/go-jose/v3"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token expired")
)

// Session is the authenticated identity carried by a token.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cache stores verified sessions keyed by token so repeated requests skip
// the JWE decrypt.
type Cache interface {
	Get(ctx context.Context, token string) (Session, bool)
	Set(ctx context.Context, token string, sess Session)
}

// Verifier decrypts and validates session tokens.
type Verifier struct {
	key   []byte
	cache Cache

	// now is swappable so tests control claim validation.
	now func() time.Time
}

// NewVerifier derives the encryption key from the shared secret. A nil
// cache disables caching.
func NewVerifier(secret string, cache Cache) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	key, err := derivedEncryptionKey([]byte(secret), "")
	if err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}
	return &Verifier{key: key, cache: cache, now: time.Now}, nil
}

// WithClock overrides the verifier's clock. Test helper.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify decrypts the token, validates its claims and returns the session.
func (v *Verifier) Verify(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidToken
	}

	if v.cache != nil {
		if sess, ok := v.cache.Get(ctx, token); ok {
			if v.now().After(sess.ExpiresAt) {
				return Session{}, ErrTokenExpired
			}
			return sess, nil
		}
	}

	payload, err := v.decode(token)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sess, err := v.sessionFromClaims(payload)
	if err != nil {
		return Session{}, err
	}

	if v.cache != nil {
		v.cache.Set(ctx, token, sess)
	}
	return sess, nil
}

func (v *Verifier) decode(token string) (map[string]interface{}, error) {
	jweObject, err := jose.ParseEncrypted(token)
	if err != nil {
		return nil, err
	}
	decrypted, err := jweObject.Decrypt(v.key)
	if err != nil {
		return nil, err
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(decrypted, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (v *Verifier) sessionFromClaims(payload map[string]interface{}) (Session, error) {
	now := v.now().Unix()

	// NextAuth always stamps exp; a token without one is malformed, and
	// accepting it would make the cached expiry check reject it later.
	exp, ok := payload["exp"].(float64)
	if !ok {
		return Session{}, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}
	if now > int64(exp) {
		return Session{}, ErrTokenExpired
	}
	expiresAt := time.Unix(int64(exp), 0)
	if iat, ok := payload["iat"].(float64); ok {
		if now < int64(iat) {
			return Session{}, fmt.Errorf("%w: token not valid yet", ErrInvalidToken)
		}
	}

	sub, _ := payload["sub"].(string)
	if sub == "" {
		return Session{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	email, _ := payload["email"].(string)

	return Session{UserID: sub, Email: email, ExpiresAt: expiresAt}, nil
}

// derivedEncryptionKey runs the HKDF derivation NextAuth applies to the
// shared secret before encrypting session tokens.
func derivedEncryptionKey(keyMaterial []byte, salt string) ([]byte, error) {
	info := []byte("NextAuth.js Generated Encryption Key")
	if salt != "" {
		info = []byte(fmt.Sprintf("NextAuth.js Generated Encryption Key (%s)", salt))
	}
	h := hkdf.New(sha256.New, keyMaterial, []byte(salt), info)
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}
	return key, nil
}
