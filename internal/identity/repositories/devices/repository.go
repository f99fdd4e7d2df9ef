// Package devices persists the per-account device registry. Each record
// binds a device key pair and signing key pair to its owning account,
// together with the device's wrapped copy of the account's access material.
package devices

import (
	"context"

	"github.com/clintfred/ironoxide/internal/identity/models"
)

type Repository interface {
	// Create registers a new device for an account.
	Create(ctx context.Context, device *models.Device) (*models.Device, error)

	// ListByAccount returns the account's devices ordered by creation time.
	ListByAccount(ctx context.Context, segmentID, accountID string) ([]*models.Device, error)

	// GetByPublicKey resolves a device by its X25519 public key, which is the
	// only identity a reconstructed device context carries. Absence is
	// common.ErrNotFound.
	GetByPublicKey(ctx context.Context, segmentID, accountID string, devicePublicKey []byte) (*models.Device, error)

	// UpdateAccess replaces the device's wrapped access material after a
	// master key rotation.
	UpdateAccess(ctx context.Context, deviceID string, wrappedAccessKey []byte, accountVersion int64) error
}
