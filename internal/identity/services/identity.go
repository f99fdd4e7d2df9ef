// Package services contains the backend business logic of the identity
// subsystem: account lifecycle, device provisioning, master key rotation,
// and encrypted-document blob storage.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/cryptox"
	"github.com/clintfred/ironoxide/internal/dbx"
	"github.com/clintfred/ironoxide/internal/identity/auth"
	"github.com/clintfred/ironoxide/internal/identity/models"
	"github.com/clintfred/ironoxide/internal/identity/repositories/repomanager"
	"github.com/clintfred/ironoxide/internal/logging"
	"github.com/google/uuid"
)

// UserCreateOpts control account creation.
type UserCreateOpts struct {
	// NeedsRotation marks the account as requiring a master key rotation
	// before the caller considers it fully provisioned. Advisory: operations
	// proceed normally while the flag is set.
	NeedsRotation bool
}

// DeviceCreateOpts control device provisioning.
type DeviceCreateOpts struct {
	// Name is an optional human-readable device label.
	Name string
}

// UserCreateResult reports a newly created account.
type UserCreateResult struct {
	AccountID                  string
	SegmentID                  string
	NeedsRotation              bool
	MasterPublicKeyFingerprint string
}

// UserVerifyResult reports an existing account. Absence of an account is not
// an error: UserVerify returns (nil, nil) in that case.
type UserVerifyResult struct {
	AccountID     string
	SegmentID     string
	NeedsRotation bool
}

// DeviceAddResult carries everything a caller needs to operate the new
// device, including the raw private key bytes so an equivalent device
// context can be reconstructed later from primitive parts.
type DeviceAddResult struct {
	DeviceID          string
	AccountID         string
	SegmentID         string
	Name              string
	DevicePublicKey   []byte
	SigningPublicKey  []byte
	DevicePrivateKey  []byte
	SigningPrivateKey []byte
	CreatedAt         time.Time
}

// DeviceSummary is one row of a device listing.
type DeviceSummary struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// IdentityService orchestrates account creation, verification and device
// provisioning. Every entry point authenticates the caller through the
// assertion verifier; the subject identity always comes from the signed
// token, never from request fields.
type IdentityService struct {
	store    repomanager.RepositoryManager
	verifier *auth.Verifier
	logger   logging.Logger
}

func NewIdentityService(store repomanager.RepositoryManager, verifier *auth.Verifier, logger logging.Logger) *IdentityService {
	return &IdentityService{store: store, verifier: verifier, logger: logger}
}

// UserCreate verifies the assertion, generates a master key pair for the
// authenticated subject and persists the account. The master private key is
// stored only wrapped under the password; creation fails with
// common.ErrAlreadyExists if the account id is taken in this segment.
func (s *IdentityService) UserCreate(ctx context.Context, token string, password []byte, opts UserCreateOpts) (*UserCreateResult, error) {
	assertion, err := s.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	master, err := cryptox.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(master.Private)

	salt := common.GenerateRandByteArray(32)
	wrapped, err := cryptox.WrapWithPassword(password, salt, master.Private)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:               assertion.Subject,
		SegmentID:        assertion.SegmentID,
		MasterPublicKey:  master.Public,
		WrappedMasterKey: wrapped,
		Salt:             salt,
		NeedsRotation:    opts.NeedsRotation,
		Version:          1,
	}

	repo := s.store.Accounts(s.store.Handle())
	if _, err := repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	s.logger.Info(ctx, "account created",
		"account", account.ID, "segment", account.SegmentID, "needs_rotation", account.NeedsRotation)

	return &UserCreateResult{
		AccountID:                  account.ID,
		SegmentID:                  account.SegmentID,
		NeedsRotation:              account.NeedsRotation,
		MasterPublicKeyFingerprint: cryptox.Fingerprint(account.MasterPublicKey),
	}, nil
}

// UserVerify checks whether the authenticated subject already has an
// account. A missing account is reported as (nil, nil), distinct from
// authentication or storage failures. Finding the account marks it verified;
// repeated verification is harmless.
func (s *IdentityService) UserVerify(ctx context.Context, token string) (*UserVerifyResult, error) {
	assertion, err := s.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	repo := s.store.Accounts(s.store.Handle())
	account, err := repo.Get(ctx, assertion.SegmentID, assertion.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	if !account.Verified {
		if err := repo.MarkVerified(ctx, account.SegmentID, account.ID); err != nil {
			return nil, fmt.Errorf("error marking account verified: %w", err)
		}
	}

	return &UserVerifyResult{
		AccountID:     account.ID,
		SegmentID:     account.SegmentID,
		NeedsRotation: account.NeedsRotation,
	}, nil
}

// GenerateNewDevice provisions a device key pair and signing key pair for
// the authenticated subject's account. The password must unwrap the current
// master private key; the device receives that key sealed to its own public
// key, so it keeps working across future rotations without regeneration.
func (s *IdentityService) GenerateNewDevice(ctx context.Context, token string, password []byte, opts DeviceCreateOpts) (*DeviceAddResult, error) {
	assertion, err := s.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	var device *models.Device
	var result *DeviceAddResult

	// The account version may move under us (another device being added, a
	// rotation committing). Stage against the version we read and retry on
	// conflict with fresh state.
	err = withConflictRetry(ctx, func(ctx context.Context) error {
		repo := s.store.Accounts(s.store.Handle())
		account, err := repo.Get(ctx, assertion.SegmentID, assertion.Subject)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrNoSuchAccount
			}
			return fmt.Errorf("error loading account: %w", err)
		}

		masterPrivate, err := cryptox.UnwrapWithPassword(password, account.Salt, account.WrappedMasterKey)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(masterPrivate)

		deviceKeys, err := cryptox.GenerateKeyPair()
		if err != nil {
			return err
		}
		signingPublic, signingPrivate, err := cryptox.GenerateSigningKeyPair()
		if err != nil {
			return err
		}

		wrappedAccess, err := cryptox.WrapKey(deviceKeys.Public, masterPrivate)
		if err != nil {
			return err
		}

		device = &models.Device{
			ID:               uuid.NewString(),
			AccountID:        account.ID,
			SegmentID:        account.SegmentID,
			Name:             opts.Name,
			DevicePublicKey:  deviceKeys.Public,
			SigningPublicKey: signingPublic,
			WrappedAccessKey: wrappedAccess,
			AccountVersion:   account.Version + 1,
		}

		err = s.store.WithinTransaction(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			if err := s.store.Accounts(tx).BumpVersion(ctx, account.SegmentID, account.ID, account.Version); err != nil {
				return err
			}
			_, err := s.store.Devices(tx).Create(ctx, device)
			return err
		})
		if err != nil {
			return err
		}

		result = &DeviceAddResult{
			DeviceID:          device.ID,
			AccountID:         device.AccountID,
			SegmentID:         device.SegmentID,
			Name:              device.Name,
			DevicePublicKey:   device.DevicePublicKey,
			SigningPublicKey:  device.SigningPublicKey,
			DevicePrivateKey:  deviceKeys.Private,
			SigningPrivateKey: signingPrivate,
			CreatedAt:         device.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "device provisioned",
		"account", device.AccountID, "segment", device.SegmentID, "device", device.ID)

	return result, nil
}

// ListDevices returns the account's devices in creation order.
func (s *IdentityService) ListDevices(ctx context.Context, segmentID, accountID string) ([]DeviceSummary, error) {
	list, err := s.store.Devices(s.store.Handle()).ListByAccount(ctx, segmentID, accountID)
	if err != nil {
		return nil, fmt.Errorf("error listing devices: %w", err)
	}

	result := make([]DeviceSummary, 0, len(list))
	for _, d := range list {
		result = append(result, DeviceSummary{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt})
	}
	return result, nil
}
