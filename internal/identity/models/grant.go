package models

import "time"

// AccessGrant records one content key wrapped to an account's master public
// key. Rotation replaces WrappedContentKey (re-wraps the same content key
// under the new master key); the content key and the ciphertext it protects
// are never regenerated.
type AccessGrant struct {
	DocumentID        string
	AccountID         string
	SegmentID         string
	WrappedContentKey []byte
	AccountVersion    int64
	CreatedAt         time.Time
}
