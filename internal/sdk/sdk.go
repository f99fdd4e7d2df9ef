package sdk

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/cryptox"
	"github.com/clintfred/ironoxide/internal/identity/auth"
	"github.com/clintfred/ironoxide/internal/identity/services"
)

// Backend is what a session needs from the identity backend. In-process
// deployments pass *services.Backend directly; a network client would
// implement the same interface.
type Backend interface {
	FetchDeviceState(ctx context.Context, sig *auth.RequestSignature) (*services.DeviceState, error)
	CreateGrant(ctx context.Context, sig *auth.RequestSignature, documentID string, wrappedContentKey []byte, accountVersion int64) error
	FetchGrant(ctx context.Context, sig *auth.RequestSignature, documentID string) (*services.GrantState, error)
	ListDevices(ctx context.Context, sig *auth.RequestSignature) ([]services.DeviceSummary, error)
	RotateMasterKey(ctx context.Context, sig *auth.RequestSignature, password []byte) (*services.RotationResult, error)
}

// SDK is an initialized session bound to one device. It caches the
// account's public key and version for encryption; the cache refreshes
// after rotations and on grant-version conflicts.
type SDK struct {
	backend Backend
	device  *DeviceContext

	mu               sync.Mutex
	deviceID         string
	accountPublicKey []byte
	accountVersion   int64
}

// Initialize resolves the device's account and returns a ready session,
// discarding any rotation-pending state. Use InitializeCheckRotation when
// the caller needs to react to a pending rotation.
func Initialize(ctx context.Context, backend Backend, device *DeviceContext) (*SDK, error) {
	s, _, err := initialize(ctx, backend, device)
	return s, err
}

// RotationCheck signals that the session's account has a rotation pending.
// It carries the account needing rotation and nothing else; it is advisory
// and never persisted.
type RotationCheck struct {
	accountID string
}

// AccountNeedingRotation returns the account the ticket was issued for.
func (r *RotationCheck) AccountNeedingRotation() string { return r.accountID }

// InitAndRotationCheck is the tagged result of InitializeCheckRotation.
// Exactly one of NoRotationNeeded / RotationNeeded reports true; the session
// is usable in both branches, so whether to force a rotation first is the
// caller's policy.
type InitAndRotationCheck struct {
	sdk   *SDK
	check *RotationCheck
}

// NoRotationNeeded returns the session when no rotation is pending.
func (ic InitAndRotationCheck) NoRotationNeeded() (*SDK, bool) {
	if ic.check != nil {
		return nil, false
	}
	return ic.sdk, true
}

// RotationNeeded returns the session and the rotation ticket when a
// rotation is pending.
func (ic InitAndRotationCheck) RotationNeeded() (*SDK, *RotationCheck, bool) {
	if ic.check == nil {
		return nil, nil, false
	}
	return ic.sdk, ic.check, true
}

// DiscardCheck returns the session regardless of rotation state.
func (ic InitAndRotationCheck) DiscardCheck() *SDK { return ic.sdk }

// InitializeCheckRotation resolves the device's account like Initialize but
// also reports whether the account has a rotation pending.
func InitializeCheckRotation(ctx context.Context, backend Backend, device *DeviceContext) (InitAndRotationCheck, error) {
	s, needsRotation, err := initialize(ctx, backend, device)
	if err != nil {
		return InitAndRotationCheck{}, err
	}
	if !needsRotation {
		return InitAndRotationCheck{sdk: s}, nil
	}
	return InitAndRotationCheck{sdk: s, check: &RotationCheck{accountID: device.AccountID()}}, nil
}

func initialize(ctx context.Context, backend Backend, device *DeviceContext) (*SDK, bool, error) {
	s := &SDK{backend: backend, device: device}

	state, err := s.fetchState(ctx)
	if err != nil {
		return nil, false, err
	}
	return s, state.NeedsRotation, nil
}

func (s *SDK) sign(method string) (*auth.RequestSignature, error) {
	return auth.SignRequest(s.device.signingPrivateKey, method,
		s.device.accountID, s.device.segmentID, s.device.devicePublicKey)
}

// fetchState pulls a fresh account snapshot and updates the cache.
func (s *SDK) fetchState(ctx context.Context) (*services.DeviceState, error) {
	sig, err := s.sign(services.MethodFetchDeviceState)
	if err != nil {
		return nil, err
	}

	state, err := s.backend.FetchDeviceState(ctx, sig)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.deviceID = state.DeviceID
	s.accountPublicKey = state.AccountPublicKey
	s.accountVersion = state.AccountVersion
	s.mu.Unlock()

	return state, nil
}

// AccountID returns the session's account.
func (s *SDK) AccountID() string { return s.device.accountID }

// DeviceID returns the resolved device record id.
func (s *SDK) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// UserListDevices returns the account's devices in creation order.
func (s *SDK) UserListDevices(ctx context.Context) ([]services.DeviceSummary, error) {
	sig, err := s.sign(services.MethodListDevices)
	if err != nil {
		return nil, err
	}
	return s.backend.ListDevices(ctx, sig)
}

// UserRotateMasterKey rotates the account's master private key in place.
// Conflicts with concurrent mutations are retried with backoff; documents
// encrypted before the rotation stay decryptable and no device needs
// reprovisioning. Each successful call yields fresh master key material.
func (s *SDK) UserRotateMasterKey(ctx context.Context, password []byte) (*services.RotationResult, error) {
	var result *services.RotationResult

	err := withConflictRetry(ctx, func(ctx context.Context) error {
		sig, err := s.sign(services.MethodRotateMasterKey)
		if err != nil {
			return err
		}
		result, err = s.backend.RotateMasterKey(ctx, sig, password)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The cached account key is stale now; future encrypts must wrap to the
	// rotated key.
	if _, err := s.fetchState(ctx); err != nil {
		return nil, fmt.Errorf("error refreshing state after rotation: %w", err)
	}
	return result, nil
}

// DocumentEncryptResult carries the ciphertext and the id under which the
// document's grant is recorded.
type DocumentEncryptResult struct {
	ID            string
	EncryptedData []byte
}

// DocumentEncrypt encrypts data under a fresh content key and records the
// key wrapped to the account's current master public key. If the account's
// key moves mid-flight (a rotation won the race), the wrap is redone against
// fresh state and retried.
func (s *SDK) DocumentEncrypt(ctx context.Context, data []byte) (*DocumentEncryptResult, error) {
	documentID := uuid.New()

	contentKey := cryptox.GenerateContentKey()
	defer common.WipeByteArray(contentKey)

	encrypted, err := cryptox.EncryptDocument(documentID, contentKey, data)
	if err != nil {
		return nil, err
	}

	err = withConflictRetry(ctx, func(ctx context.Context) error {
		s.mu.Lock()
		accountKey := s.accountPublicKey
		version := s.accountVersion
		s.mu.Unlock()

		wrapped, err := cryptox.WrapKey(accountKey, contentKey)
		if err != nil {
			return err
		}

		sig, err := s.sign(services.MethodCreateGrant)
		if err != nil {
			return err
		}

		err = s.backend.CreateGrant(ctx, sig, documentID.String(), wrapped, version)
		if common.Retryable(err) {
			// Re-read the account key before the next wrap attempt.
			if _, ferr := s.fetchState(ctx); ferr != nil {
				return ferr
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.accountVersion++
	s.mu.Unlock()

	return &DocumentEncryptResult{ID: documentID.String(), EncryptedData: encrypted}, nil
}

// DocumentDecryptResult carries the recovered plaintext.
type DocumentDecryptResult struct {
	ID            string
	DecryptedData []byte
}

// DocumentDecrypt decrypts a document produced by any of the account's
// sessions, before or after any number of master key rotations. The grant
// and the device's current access material are fetched together, so a
// rotation committed after this session initialized is handled transparently.
func (s *SDK) DocumentDecrypt(ctx context.Context, encrypted []byte) (*DocumentDecryptResult, error) {
	documentID, err := cryptox.ParseDocumentID(encrypted)
	if err != nil {
		return nil, err
	}

	sig, err := s.sign(services.MethodFetchGrant)
	if err != nil {
		return nil, err
	}

	grant, err := s.backend.FetchGrant(ctx, sig, documentID.String())
	if err != nil {
		return nil, err
	}

	masterPrivate, err := cryptox.UnwrapKey(s.device.devicePrivateKey, grant.WrappedAccessKey)
	if err != nil {
		return nil, fmt.Errorf("error unwrapping access material: %w", err)
	}
	defer common.WipeByteArray(masterPrivate)

	contentKey, err := cryptox.UnwrapKey(masterPrivate, grant.WrappedContentKey)
	if err != nil {
		return nil, fmt.Errorf("error unwrapping content key: %w", err)
	}
	defer common.WipeByteArray(contentKey)

	plaintext, err := cryptox.DecryptDocument(contentKey, encrypted)
	if err != nil {
		return nil, err
	}

	return &DocumentDecryptResult{ID: documentID.String(), DecryptedData: plaintext}, nil
}
