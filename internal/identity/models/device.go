package models

import "time"

// Device is one provisioned device of an account. WrappedAccessKey is the
// account master private key sealed to the device's public key; it is
// replaced on every master key rotation so the device key pair itself never
// has to change.
type Device struct {
	ID               string
	AccountID        string
	SegmentID        string
	Name             string
	DevicePublicKey  []byte
	SigningPublicKey []byte
	WrappedAccessKey []byte
	AccountVersion   int64
	CreatedAt        time.Time
}
