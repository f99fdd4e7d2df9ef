package repomanager

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/dbx"
	"github.com/clintfred/ironoxide/internal/identity/models"
	"github.com/clintfred/ironoxide/internal/identity/repositories/accounts"
	"github.com/clintfred/ironoxide/internal/identity/repositories/devices"
	"github.com/clintfred/ironoxide/internal/identity/repositories/grants"
)

// InMemoryRepositoryManager keeps all state in mutex-guarded maps. It backs
// tests and the embedded demo mode, and honors the same optimistic-concurrency
// contract as the Postgres implementation: version guards fail with
// common.ErrStorageConflict, never with partial writes.
type InMemoryRepositoryManager struct {
	txMu sync.Mutex

	accounts *inMemoryAccounts
	devices  *inMemoryDevices
	grants   *inMemoryGrants
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		accounts: &inMemoryAccounts{records: make(map[string]*models.Account)},
		devices:  &inMemoryDevices{records: make(map[string]*models.Device)},
		grants:   &inMemoryGrants{records: make(map[string]*models.AccessGrant)},
	}
}

func (m *InMemoryRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository { return m.accounts }
func (m *InMemoryRepositoryManager) Devices(db dbx.DBTX) devices.Repository  { return m.devices }
func (m *InMemoryRepositoryManager) Grants(db dbx.DBTX) grants.Repository    { return m.grants }

func (m *InMemoryRepositoryManager) Handle() dbx.DBTX { return nil }

// WithinTransaction serializes transactional sections with a single mutex.
// Atomicity then follows from the version CAS running first inside fn: a
// conflicting closure fails before it has written anything.
func (m *InMemoryRepositoryManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, nil)
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }

func accountKey(segmentID, accountID string) string {
	return segmentID + "\x00" + accountID
}

// --- accounts ---

type inMemoryAccounts struct {
	mu      sync.RWMutex
	records map[string]*models.Account
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	c.MasterPublicKey = append([]byte(nil), a.MasterPublicKey...)
	c.WrappedMasterKey = append([]byte(nil), a.WrappedMasterKey...)
	c.Salt = append([]byte(nil), a.Salt...)
	return &c
}

func (r *inMemoryAccounts) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := accountKey(account.SegmentID, account.ID)
	if _, ok := r.records[key]; ok {
		return nil, common.ErrAlreadyExists
	}

	account.CreatedAt = time.Now()
	r.records[key] = cloneAccount(account)
	return account, nil
}

func (r *inMemoryAccounts) Get(ctx context.Context, segmentID, accountID string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.records[accountKey(segmentID, accountID)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *inMemoryAccounts) MarkVerified(ctx context.Context, segmentID, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.records[accountKey(segmentID, accountID)]
	if !ok {
		return common.ErrNotFound
	}
	a.Verified = true
	return nil
}

func (r *inMemoryAccounts) BumpVersion(ctx context.Context, segmentID, accountID string, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.records[accountKey(segmentID, accountID)]
	if !ok || a.Version != expected {
		return common.ErrStorageConflict
	}
	a.Version++
	return nil
}

func (r *inMemoryAccounts) CommitRotation(ctx context.Context, account *models.Account, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.records[accountKey(account.SegmentID, account.ID)]
	if !ok || a.Version != expected {
		return common.ErrStorageConflict
	}

	a.MasterPublicKey = append([]byte(nil), account.MasterPublicKey...)
	a.WrappedMasterKey = append([]byte(nil), account.WrappedMasterKey...)
	a.Salt = append([]byte(nil), account.Salt...)
	a.NeedsRotation = false
	a.Version = account.Version
	return nil
}

// --- devices ---

type inMemoryDevices struct {
	mu      sync.RWMutex
	records map[string]*models.Device
}

func cloneDevice(d *models.Device) *models.Device {
	c := *d
	c.DevicePublicKey = append([]byte(nil), d.DevicePublicKey...)
	c.SigningPublicKey = append([]byte(nil), d.SigningPublicKey...)
	c.WrappedAccessKey = append([]byte(nil), d.WrappedAccessKey...)
	return &c
}

func (r *inMemoryDevices) Create(ctx context.Context, device *models.Device) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[device.ID]; ok {
		return nil, common.ErrAlreadyExists
	}

	device.CreatedAt = time.Now()
	r.records[device.ID] = cloneDevice(device)
	return device, nil
}

func (r *inMemoryDevices) ListByAccount(ctx context.Context, segmentID, accountID string) ([]*models.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Device
	for _, d := range r.records {
		if d.SegmentID == segmentID && d.AccountID == accountID {
			result = append(result, cloneDevice(d))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *inMemoryDevices) GetByPublicKey(ctx context.Context, segmentID, accountID string, devicePublicKey []byte) (*models.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.records {
		if d.SegmentID == segmentID && d.AccountID == accountID && string(d.DevicePublicKey) == string(devicePublicKey) {
			return cloneDevice(d), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *inMemoryDevices) UpdateAccess(ctx context.Context, deviceID string, wrappedAccessKey []byte, accountVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.records[deviceID]
	if !ok {
		return common.ErrNotFound
	}
	d.WrappedAccessKey = append([]byte(nil), wrappedAccessKey...)
	d.AccountVersion = accountVersion
	return nil
}

// --- grants ---

type inMemoryGrants struct {
	mu      sync.RWMutex
	records map[string]*models.AccessGrant
}

func grantKey(segmentID, accountID, documentID string) string {
	return segmentID + "\x00" + accountID + "\x00" + documentID
}

func cloneGrant(g *models.AccessGrant) *models.AccessGrant {
	c := *g
	c.WrappedContentKey = append([]byte(nil), g.WrappedContentKey...)
	return &c
}

func (r *inMemoryGrants) Create(ctx context.Context, grant *models.AccessGrant) (*models.AccessGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := grantKey(grant.SegmentID, grant.AccountID, grant.DocumentID)
	if _, ok := r.records[key]; ok {
		return nil, common.ErrAlreadyExists
	}

	grant.CreatedAt = time.Now()
	r.records[key] = cloneGrant(grant)
	return grant, nil
}

func (r *inMemoryGrants) Get(ctx context.Context, segmentID, accountID, documentID string) (*models.AccessGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.records[grantKey(segmentID, accountID, documentID)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneGrant(g), nil
}

func (r *inMemoryGrants) ListByAccount(ctx context.Context, segmentID, accountID string) ([]*models.AccessGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.AccessGrant
	for _, g := range r.records {
		if g.SegmentID == segmentID && g.AccountID == accountID {
			result = append(result, cloneGrant(g))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].DocumentID < result[j].DocumentID
	})
	return result, nil
}

func (r *inMemoryGrants) UpdateWrap(ctx context.Context, segmentID, accountID, documentID string, wrappedContentKey []byte, accountVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.records[grantKey(segmentID, accountID, documentID)]
	if !ok {
		return common.ErrNotFound
	}
	g.WrappedContentKey = append([]byte(nil), wrappedContentKey...)
	g.AccountVersion = accountVersion
	return nil
}
