package auth

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/clintfred/ironoxide/internal/common"
)

// SignatureWindow is how far a request signature's timestamp may deviate
// from the backend clock before the request is rejected.
const SignatureWindow = 2 * time.Minute

// RequestSignature authenticates one device-originated request. The device
// is resolved by its public key; the Ed25519 signature covers the method
// name, account, segment, device public key and timestamp so a captured
// signature cannot be replayed against a different operation.
type RequestSignature struct {
	AccountID       string
	SegmentID       string
	DevicePublicKey []byte
	Timestamp       time.Time
	Signature       []byte
}

func requestMessage(method, accountID, segmentID string, devicePublicKey []byte, ts time.Time) []byte {
	return fmt.Appendf(nil, "%s|%s|%s|%x|%d", method, accountID, segmentID, devicePublicKey, ts.Unix())
}

// SignRequest produces a RequestSignature for method using the device's
// signing private key.
func SignRequest(signingPrivate []byte, method, accountID, segmentID string, devicePublicKey []byte) (*RequestSignature, error) {
	if len(signingPrivate) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: signing key length %d", common.ErrMalformedDeviceContext, len(signingPrivate))
	}

	ts := time.Now().UTC().Truncate(time.Second)
	sig := ed25519.Sign(signingPrivate, requestMessage(method, accountID, segmentID, devicePublicKey, ts))

	return &RequestSignature{
		AccountID:       accountID,
		SegmentID:       segmentID,
		DevicePublicKey: devicePublicKey,
		Timestamp:       ts,
		Signature:       sig,
	}, nil
}

// Verify checks the signature against the device's registered signing public
// key and rejects timestamps outside the allowed window.
func (rs *RequestSignature) Verify(signingPublic []byte, method string, now time.Time) error {
	if len(signingPublic) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: registered signing key length %d", common.ErrInvalidRequestSignature, len(signingPublic))
	}

	age := now.Sub(rs.Timestamp)
	if age > SignatureWindow || age < -SignatureWindow {
		return fmt.Errorf("%w: timestamp outside window", common.ErrInvalidRequestSignature)
	}

	msg := requestMessage(method, rs.AccountID, rs.SegmentID, rs.DevicePublicKey, rs.Timestamp)
	if !ed25519.Verify(signingPublic, msg, rs.Signature) {
		return common.ErrInvalidRequestSignature
	}
	return nil
}
