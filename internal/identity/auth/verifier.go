// Package auth validates the externally issued, time-bounded assertions that
// authenticate identity operations, and implements the Ed25519 request
// signatures devices attach to session-scoped calls.
//
// Assertions are ES256 JWTs carrying {pid, sid, kid, iat, exp, sub}; they are
// minted by the tenant's identity provider, never by this subsystem. The
// verifier extracts the authenticated subject and never trusts identity
// claims supplied outside the signed token.
package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// assertionClaims is the JWT payload shape issued by the identity provider.
type assertionClaims struct {
	jwt.RegisteredClaims
	ProjectID int    `json:"pid"`
	SegmentID string `json:"sid"`
	KeyID     int    `json:"kid"`
}

// Assertion is the authenticated result of verifying a token.
type Assertion struct {
	ProjectID int
	SegmentID string
	KeyID     int
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerifierConfig is the immutable trust configuration for a Verifier.
// It is constructed explicitly and passed in, never read from process-wide
// state, so one process can host verifiers for several tenants.
type VerifierConfig struct {
	ProjectID int
	SegmentID string

	// TrustedKeys maps the kid claim to the identity provider's
	// assertion-signing public keys.
	TrustedKeys map[int]*ecdsa.PublicKey
}

// Verifier checks assertion signatures and time bounds.
type Verifier struct {
	cfg VerifierConfig
	now func() time.Time
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	return &Verifier{cfg: cfg, now: time.Now}
}

// Verify validates the signature and [iat, exp] window of token and returns
// the authenticated assertion. Failures map onto the sentinel taxonomy:
// common.ErrTokenExpired, common.ErrInvalidSignature, common.ErrMalformedToken.
func (v *Verifier) Verify(token string) (*Assertion, error) {
	claims := &assertionClaims{}

	_, err := jwt.ParseWithClaims(token, claims, v.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, mapTokenError(err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", common.ErrMalformedToken)
	}
	if claims.ProjectID != v.cfg.ProjectID {
		return nil, fmt.Errorf("%w: unexpected project %d", common.ErrMalformedToken, claims.ProjectID)
	}
	if claims.SegmentID != v.cfg.SegmentID {
		return nil, fmt.Errorf("%w: unexpected segment %q", common.ErrMalformedToken, claims.SegmentID)
	}

	a := &Assertion{
		ProjectID: claims.ProjectID,
		SegmentID: claims.SegmentID,
		KeyID:     claims.KeyID,
		Subject:   claims.Subject,
	}
	if claims.IssuedAt != nil {
		a.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		a.ExpiresAt = claims.ExpiresAt.Time
	}
	return a, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	claims, ok := t.Claims.(*assertionClaims)
	if !ok {
		return nil, common.ErrMalformedToken
	}
	key, ok := v.cfg.TrustedKeys[claims.KeyID]
	if !ok {
		return nil, fmt.Errorf("%w: untrusted kid %d", common.ErrInvalidSignature, claims.KeyID)
	}
	return key, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidSignature):
		return err
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return common.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return common.ErrMalformedToken
	default:
		return fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}
}
