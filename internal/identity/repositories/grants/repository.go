// Package grants persists access grants: content keys wrapped to account
// master public keys. Rotation rewrites the wrapping in place, so grants
// survive any number of master key rotations unchanged from the caller's
// point of view.
package grants

import (
	"context"

	"github.com/clintfred/ironoxide/internal/identity/models"
)

type Repository interface {
	Create(ctx context.Context, grant *models.AccessGrant) (*models.AccessGrant, error)

	// Get returns the grant for a document or common.ErrNotFound.
	Get(ctx context.Context, segmentID, accountID, documentID string) (*models.AccessGrant, error)

	// ListByAccount returns every grant reachable from the account. Rotation
	// re-wraps exactly this set, so it must be read at the same account
	// version the rotation commits against.
	ListByAccount(ctx context.Context, segmentID, accountID string) ([]*models.AccessGrant, error)

	// UpdateWrap replaces the wrapped content key after a rotation.
	UpdateWrap(ctx context.Context, segmentID, accountID, documentID string, wrappedContentKey []byte, accountVersion int64) error
}
