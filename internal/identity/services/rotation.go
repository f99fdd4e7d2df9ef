package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/cryptox"
	"github.com/clintfred/ironoxide/internal/dbx"
	"github.com/clintfred/ironoxide/internal/identity/models"
	"github.com/clintfred/ironoxide/internal/identity/repositories/repomanager"
	"github.com/clintfred/ironoxide/internal/logging"
)

// RotationResult reports a committed master key rotation.
type RotationResult struct {
	// NeedsRotation is false after any successful rotation.
	NeedsRotation bool

	NewMasterPublicKey            []byte
	NewMasterPublicKeyFingerprint string
}

// RotationService replaces an account's master key pair in place.
//
// The safety-critical policy is wrap-not-replace: content keys are never
// regenerated and documents are never re-encrypted. Rotation unwraps every
// access grant's content key with the old master private key, re-wraps it
// under the fresh public key, and seals the fresh private key to every
// registered device, so devices provisioned before the rotation and
// documents encrypted before it both keep working.
type RotationService struct {
	store  repomanager.RepositoryManager
	logger logging.Logger
}

func NewRotationService(store repomanager.RepositoryManager, logger logging.Logger) *RotationService {
	return &RotationService{store: store, logger: logger}
}

// RotateMasterKey performs one rotation attempt.
//
// All new wrappings are staged in memory against the account version read at
// the start; the commit is a single transaction that first compare-and-swaps
// that version. Losing the race (a concurrent rotation, device add, or grant
// add) fails with common.ErrStorageConflict before anything is written;
// the caller retries and the next attempt stages against the committed
// state. A wrong password fails with common.ErrInvalidPassword and mutates
// nothing. Each successful rotation produces fresh key material, so two
// rotations never yield the same master key.
func (s *RotationService) RotateMasterKey(ctx context.Context, segmentID, accountID string, password []byte) (*RotationResult, error) {
	repo := s.store.Accounts(s.store.Handle())

	account, err := repo.Get(ctx, segmentID, accountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNoSuchAccount
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	oldPrivate, err := cryptox.UnwrapWithPassword(password, account.Salt, account.WrappedMasterKey)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(oldPrivate)

	fresh, err := cryptox.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(fresh.Private)

	newSalt := common.GenerateRandByteArray(32)
	newWrappedMaster, err := cryptox.WrapWithPassword(password, newSalt, fresh.Private)
	if err != nil {
		return nil, err
	}

	// Stage every re-wrap before touching storage. The device and grant
	// sets are read at the same account version the commit will guard.
	deviceList, err := s.store.Devices(s.store.Handle()).ListByAccount(ctx, segmentID, accountID)
	if err != nil {
		return nil, fmt.Errorf("error listing devices: %w", err)
	}
	grantList, err := s.store.Grants(s.store.Handle()).ListByAccount(ctx, segmentID, accountID)
	if err != nil {
		return nil, fmt.Errorf("error listing grants: %w", err)
	}

	newVersion := account.Version + 1

	deviceWraps := make(map[string][]byte, len(deviceList))
	for _, d := range deviceList {
		wrapped, err := cryptox.WrapKey(d.DevicePublicKey, fresh.Private)
		if err != nil {
			return nil, fmt.Errorf("error re-wrapping device access: %w", err)
		}
		deviceWraps[d.ID] = wrapped
	}

	grantWraps := make(map[string][]byte, len(grantList))
	for _, g := range grantList {
		contentKey, err := cryptox.UnwrapKey(oldPrivate, g.WrappedContentKey)
		if err != nil {
			return nil, fmt.Errorf("error unwrapping grant %s: %w", g.DocumentID, err)
		}
		rewrapped, err := cryptox.WrapKey(fresh.Public, contentKey)
		common.WipeByteArray(contentKey)
		if err != nil {
			return nil, fmt.Errorf("error re-wrapping grant %s: %w", g.DocumentID, err)
		}
		grantWraps[g.DocumentID] = rewrapped
	}

	updated := &models.Account{
		ID:               account.ID,
		SegmentID:        account.SegmentID,
		MasterPublicKey:  fresh.Public,
		WrappedMasterKey: newWrappedMaster,
		Salt:             newSalt,
		Version:          newVersion,
	}

	err = s.store.WithinTransaction(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		// The CAS runs first: if we lost the race nothing below executes.
		if err := s.store.Accounts(tx).CommitRotation(ctx, updated, account.Version); err != nil {
			return err
		}
		for _, d := range deviceList {
			if err := s.store.Devices(tx).UpdateAccess(ctx, d.ID, deviceWraps[d.ID], newVersion); err != nil {
				return err
			}
		}
		for _, g := range grantList {
			if err := s.store.Grants(tx).UpdateWrap(ctx, g.SegmentID, g.AccountID, g.DocumentID, grantWraps[g.DocumentID], newVersion); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "master key rotated",
		"account", accountID, "segment", segmentID, "version", newVersion,
		"devices", len(deviceList), "grants", len(grantList))

	return &RotationResult{
		NeedsRotation:                 false,
		NewMasterPublicKey:            fresh.Public,
		NewMasterPublicKeyFingerprint: cryptox.Fingerprint(fresh.Public),
	}, nil
}
