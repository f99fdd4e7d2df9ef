// Package sdk is the client-side surface of the identity subsystem: device
// contexts, session initialization (with or without an explicit rotation
// check), document encrypt/decrypt, and master key rotation.
package sdk

import (
	"fmt"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/cryptox"
	"github.com/clintfred/ironoxide/internal/identity/services"
)

// DeviceContext is everything a process needs to act as a provisioned
// device: the owning account, its segment, and the device's two private
// keys. It can be rebuilt losslessly from raw bytes persisted elsewhere,
// which is how a session moves between processes or machines.
type DeviceContext struct {
	accountID         string
	segmentID         string
	devicePrivateKey  []byte
	signingPrivateKey []byte

	// derived from devicePrivateKey at construction
	devicePublicKey []byte
}

// NewDeviceContext validates the raw parts and assembles a device context.
// Violated length or format preconditions fail with
// common.ErrMalformedDeviceContext; the constructor never panics.
func NewDeviceContext(accountID, segmentID string, devicePrivateKeyBytes, signingPrivateKeyBytes []byte) (*DeviceContext, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: empty account id", common.ErrMalformedDeviceContext)
	}
	if segmentID == "" {
		return nil, fmt.Errorf("%w: empty segment id", common.ErrMalformedDeviceContext)
	}
	if len(devicePrivateKeyBytes) != cryptox.PrivateKeySize {
		return nil, fmt.Errorf("%w: device private key length %d, want %d",
			common.ErrMalformedDeviceContext, len(devicePrivateKeyBytes), cryptox.PrivateKeySize)
	}
	if len(signingPrivateKeyBytes) != cryptox.SigningPrivateKeySize {
		return nil, fmt.Errorf("%w: signing private key length %d, want %d",
			common.ErrMalformedDeviceContext, len(signingPrivateKeyBytes), cryptox.SigningPrivateKeySize)
	}

	devicePublic, err := cryptox.DerivePublicKey(devicePrivateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedDeviceContext, err)
	}

	return &DeviceContext{
		accountID:         accountID,
		segmentID:         segmentID,
		devicePrivateKey:  append([]byte(nil), devicePrivateKeyBytes...),
		signingPrivateKey: append([]byte(nil), signingPrivateKeyBytes...),
		devicePublicKey:   devicePublic,
	}, nil
}

// DeviceContextFromAddResult converts a provisioning result into a ready
// device context.
func DeviceContextFromAddResult(r *services.DeviceAddResult) (*DeviceContext, error) {
	return NewDeviceContext(r.AccountID, r.SegmentID, r.DevicePrivateKey, r.SigningPrivateKey)
}

func (d *DeviceContext) AccountID() string { return d.accountID }
func (d *DeviceContext) SegmentID() string { return d.segmentID }

// DevicePrivateKeyBytes returns a copy of the raw device private key.
func (d *DeviceContext) DevicePrivateKeyBytes() []byte {
	return append([]byte(nil), d.devicePrivateKey...)
}

// SigningPrivateKeyBytes returns a copy of the raw signing private key.
func (d *DeviceContext) SigningPrivateKeyBytes() []byte {
	return append([]byte(nil), d.signingPrivateKey...)
}

// DevicePublicKeyBytes returns a copy of the derived device public key.
func (d *DeviceContext) DevicePublicKeyBytes() []byte {
	return append([]byte(nil), d.devicePublicKey...)
}
