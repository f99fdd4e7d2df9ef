package services

import (
	"context"
	"fmt"
	"time"

	"github.com/clintfred/ironoxide/internal/dbx"
	"github.com/clintfred/ironoxide/internal/identity/auth"
	"github.com/clintfred/ironoxide/internal/identity/models"
	"github.com/clintfred/ironoxide/internal/identity/repositories/repomanager"
	"github.com/clintfred/ironoxide/internal/logging"
)

// Method names covered by device request signatures.
const (
	MethodFetchDeviceState = "FetchDeviceState"
	MethodCreateGrant      = "CreateGrant"
	MethodFetchGrant       = "FetchGrant"
	MethodListDevices      = "ListDevices"
	MethodRotateMasterKey  = "RotateMasterKey"
)

// DeviceState is the session bootstrap snapshot: the account's current
// public key and version, the rotation-pending flag, and the calling
// device's wrapped access material, read consistently in one transaction.
type DeviceState struct {
	DeviceID         string
	AccountID        string
	SegmentID        string
	AccountPublicKey []byte
	AccountVersion   int64
	WrappedAccessKey []byte
	NeedsRotation    bool
}

// GrantState pairs a document's wrapped content key with the calling
// device's current wrapped access material, so a session can decrypt
// correctly even when another session rotated the master key after this
// session was initialized.
type GrantState struct {
	WrappedContentKey []byte
	WrappedAccessKey  []byte
}

// Backend is the authenticated surface sessions call. Every method takes a
// device request signature; the device is resolved by its public key and the
// signature checked against its registered signing key before any work
// happens. Transport between a session and this surface is outside the
// subsystem: in-process callers invoke it directly.
type Backend struct {
	store    repomanager.RepositoryManager
	identity *IdentityService
	rotation *RotationService
	logger   logging.Logger
	now      func() time.Time
}

func NewBackend(store repomanager.RepositoryManager, identity *IdentityService, rotation *RotationService, logger logging.Logger) *Backend {
	return &Backend{
		store:    store,
		identity: identity,
		rotation: rotation,
		logger:   logger,
		now:      time.Now,
	}
}

// authenticate resolves the signing device and verifies the request
// signature. An unknown device surfaces as common.ErrNotFound.
func (b *Backend) authenticate(ctx context.Context, tx dbx.DBTX, method string, sig *auth.RequestSignature) (*models.Device, error) {
	device, err := b.store.Devices(tx).GetByPublicKey(ctx, sig.SegmentID, sig.AccountID, sig.DevicePublicKey)
	if err != nil {
		return nil, err
	}
	if err := sig.Verify(device.SigningPublicKey, method, b.now()); err != nil {
		return nil, err
	}
	return device, nil
}

// FetchDeviceState authenticates the device and returns the bootstrap
// snapshot used by session initialization.
func (b *Backend) FetchDeviceState(ctx context.Context, sig *auth.RequestSignature) (*DeviceState, error) {
	var state *DeviceState

	err := b.store.WithinTransaction(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		device, err := b.authenticate(ctx, tx, MethodFetchDeviceState, sig)
		if err != nil {
			return err
		}

		account, err := b.store.Accounts(tx).Get(ctx, device.SegmentID, device.AccountID)
		if err != nil {
			return fmt.Errorf("error loading account: %w", err)
		}

		state = &DeviceState{
			DeviceID:         device.ID,
			AccountID:        account.ID,
			SegmentID:        account.SegmentID,
			AccountPublicKey: account.MasterPublicKey,
			AccountVersion:   account.Version,
			WrappedAccessKey: device.WrappedAccessKey,
			NeedsRotation:    account.NeedsRotation,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// CreateGrant records a content key wrapped to the account's master public
// key. accountVersion must be the version the caller wrapped against; if the
// account moved since (for example a rotation committed), the call fails
// with common.ErrStorageConflict and the caller re-wraps against fresh state.
func (b *Backend) CreateGrant(ctx context.Context, sig *auth.RequestSignature, documentID string, wrappedContentKey []byte, accountVersion int64) error {
	return b.store.WithinTransaction(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		device, err := b.authenticate(ctx, tx, MethodCreateGrant, sig)
		if err != nil {
			return err
		}

		if err := b.store.Accounts(tx).BumpVersion(ctx, device.SegmentID, device.AccountID, accountVersion); err != nil {
			return err
		}

		grant := &models.AccessGrant{
			DocumentID:        documentID,
			AccountID:         device.AccountID,
			SegmentID:         device.SegmentID,
			WrappedContentKey: wrappedContentKey,
			AccountVersion:    accountVersion + 1,
		}
		_, err = b.store.Grants(tx).Create(ctx, grant)
		return err
	})
}

// FetchGrant returns the wrapped content key for a document together with
// the calling device's current access material, as one consistent snapshot.
func (b *Backend) FetchGrant(ctx context.Context, sig *auth.RequestSignature, documentID string) (*GrantState, error) {
	var state *GrantState

	err := b.store.WithinTransaction(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		device, err := b.authenticate(ctx, tx, MethodFetchGrant, sig)
		if err != nil {
			return err
		}

		grant, err := b.store.Grants(tx).Get(ctx, device.SegmentID, device.AccountID, documentID)
		if err != nil {
			return err
		}

		state = &GrantState{
			WrappedContentKey: grant.WrappedContentKey,
			WrappedAccessKey:  device.WrappedAccessKey,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ListDevices returns device summaries for the calling device's account.
func (b *Backend) ListDevices(ctx context.Context, sig *auth.RequestSignature) ([]DeviceSummary, error) {
	if _, err := b.authenticate(ctx, b.store.Handle(), MethodListDevices, sig); err != nil {
		return nil, err
	}
	return b.identity.ListDevices(ctx, sig.SegmentID, sig.AccountID)
}

// RotateMasterKey authenticates the device and runs one rotation attempt.
// Conflicts are returned to the caller rather than retried here: the session
// owns the retry policy.
func (b *Backend) RotateMasterKey(ctx context.Context, sig *auth.RequestSignature, password []byte) (*RotationResult, error) {
	if _, err := b.authenticate(ctx, b.store.Handle(), MethodRotateMasterKey, sig); err != nil {
		return nil, err
	}
	return b.rotation.RotateMasterKey(ctx, sig.SegmentID, sig.AccountID, password)
}
