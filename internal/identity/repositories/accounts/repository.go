// Package accounts persists per-account identity state: public key material,
// the password-wrapped master private key, rotation and verification flags,
// and the version counter guarding concurrent mutation.
package accounts

import (
	"context"

	"github.com/clintfred/ironoxide/internal/identity/models"
)

type Repository interface {
	// Create inserts a new account. A duplicate (segment, id) pair yields
	// common.ErrAlreadyExists.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// Get returns the account or common.ErrNotFound.
	Get(ctx context.Context, segmentID, accountID string) (*models.Account, error)

	// MarkVerified flips the verification flag. Idempotent.
	MarkVerified(ctx context.Context, segmentID, accountID string) error

	// BumpVersion increments the account version if it still equals expected,
	// otherwise fails with common.ErrStorageConflict. Every operation that
	// mutates the account's device or grant set runs this first, inside the
	// same transaction, so rotation cannot commit against a stale view.
	BumpVersion(ctx context.Context, segmentID, accountID string, expected int64) error

	// CommitRotation atomically installs new key material and clears the
	// rotation-pending flag, guarded by the version read when rotation
	// started. A lost race yields common.ErrStorageConflict and no mutation.
	CommitRotation(ctx context.Context, account *models.Account, expected int64) error
}
