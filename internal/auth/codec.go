package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

const codecPayloadClaim = "payload"

// Codec produces and verifies tamper-evident, time-limited opaque tokens.
// It wraps PASETO v4.local: the payload and issuance timestamp are encrypted
// under a server-held symmetric key, so any bit-flip fails decryption and a
// replay past the caller's max age is detectable without a storage lookup.
//
// The codec never touches storage; proving the payload refers to anything
// real is the caller's job.
type Codec struct {
	key paseto.V4SymmetricKey
}

// NewCodec creates a codec from a 32-byte symmetric key
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("codec key must be exactly 32 bytes, got %d", len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &Codec{key: symmetricKey}, nil
}

// Issue wraps the payload in a signed token stamped with the current time.
// The max age is fixed at verification, not at issuance, mirroring how the
// remember-me lifetime is a server-side setting that may change between
// issue and use.
func (c *Codec) Issue(payload string) (string, error) {
	token := paseto.NewToken()
	token.SetIssuedAt(time.Now())
	token.SetString(codecPayloadClaim, payload)

	return token.V4Encrypt(c.key, nil), nil
}

// Verify recovers the payload from a signed token.
// Returns ErrTokenTampered when decryption or claim extraction fails and
// ErrTokenExpired when the issuance timestamp is older than maxAge. The two
// are distinct so callers can log them differently, but both must collapse
// to a generic denial for end users.
func (c *Codec) Verify(signedToken string, maxAge time.Duration) (string, error) {
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(c.key, signedToken, nil)
	if err != nil {
		return "", ErrTokenTampered
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return "", ErrTokenTampered
	}

	if expiredAt(issuedAt, time.Now(), maxAge) {
		return "", ErrTokenExpired
	}

	payload, err := token.GetString(codecPayloadClaim)
	if err != nil {
		return "", ErrTokenTampered
	}

	return payload, nil
}

// expiredAt reports whether a token issued at issuedAt is dead at now.
// The boundary is inclusive: a token fails at the expiry instant itself,
// matching the store's exclusive expires_at comparison.
func expiredAt(issuedAt, now time.Time, maxAge time.Duration) bool {
	return now.Sub(issuedAt) >= maxAge
}
