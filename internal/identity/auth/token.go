package auth

import (
	"crypto/ecdsa"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AssertionParams describe the tenant fields of a generated assertion.
type AssertionParams struct {
	ProjectID int
	SegmentID string
	KeyID     int
}

// GenerateToken mints an ES256 assertion for subject, valid for the given
// window starting now. Production assertions come from the tenant's identity
// provider; this generator exists for the CLI and tests, which play that role
// themselves.
func GenerateToken(key *ecdsa.PrivateKey, p AssertionParams, subject string, window time.Duration) (string, error) {
	now := time.Now()
	return generateTokenAt(key, p, subject, now, now.Add(window))
}

func generateTokenAt(key *ecdsa.PrivateKey, p AssertionParams, subject string, iat, exp time.Time) (string, error) {
	claims := assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		ProjectID: p.ProjectID,
		SegmentID: p.SegmentID,
		KeyID:     p.KeyID,
	}

	return jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
}
