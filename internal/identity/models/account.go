// Package models holds the persistent record types of the identity subsystem.
package models

import "time"

// Account is the per-user identity record. The master private key is stored
// only in password-wrapped form; Version guards every read-modify-write of
// the account or its device/grant set (optimistic concurrency).
type Account struct {
	ID               string
	SegmentID        string
	MasterPublicKey  []byte
	WrappedMasterKey []byte
	Salt             []byte
	NeedsRotation    bool
	Verified         bool
	Version          int64
	CreatedAt        time.Time
}
