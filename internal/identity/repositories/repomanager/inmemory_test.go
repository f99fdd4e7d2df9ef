package repomanager

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/identity/models"
)

func seedAccount(t *testing.T, m *InMemoryRepositoryManager) *models.Account {
	t.Helper()

	account := &models.Account{
		ID:               "alice",
		SegmentID:        "seg-1",
		MasterPublicKey:  []byte("pub"),
		WrappedMasterKey: []byte("wrapped"),
		Salt:             []byte("salt"),
		Version:          1,
	}
	if _, err := m.Accounts(nil).Create(context.Background(), account); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	return account
}

func TestInMemoryAccounts_CreateAndGet(t *testing.T) {
	t.Parallel()

	m := NewInMemoryRepositoryManager()
	ctx := context.Background()
	seedAccount(t, m)

	got, err := m.Accounts(nil).Get(ctx, "seg-1", "alice")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Version != 1 || !bytes.Equal(got.MasterPublicKey, []byte("pub")) {
		t.Fatalf("unexpected account: %+v", got)
	}

	if _, err := m.Accounts(nil).Create(ctx, &models.Account{ID: "alice", SegmentID: "seg-1"}); !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want common.ErrAlreadyExists, got %v", err)
	}

	// Same account id in another segment is a distinct record.
	if _, err := m.Accounts(nil).Create(ctx, &models.Account{ID: "alice", SegmentID: "seg-2", Version: 1}); err != nil {
		t.Fatalf("cross-segment Create error: %v", err)
	}

	if _, err := m.Accounts(nil).Get(ctx, "seg-1", "ghost"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestInMemoryAccounts_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	m := NewInMemoryRepositoryManager()
	ctx := context.Background()
	seedAccount(t, m)

	first, _ := m.Accounts(nil).Get(ctx, "seg-1", "alice")
	first.MasterPublicKey[0] = 'X'

	second, _ := m.Accounts(nil).Get(ctx, "seg-1", "alice")
	if !bytes.Equal(second.MasterPublicKey, []byte("pub")) {
		t.Fatal("mutation through a returned record leaked into the store")
	}
}

func TestInMemoryAccounts_BumpVersion(t *testing.T) {
	t.Parallel()

	m := NewInMemoryRepositoryManager()
	ctx := context.Background()
	seedAccount(t, m)

	if err := m.Accounts(nil).BumpVersion(ctx, "seg-1", "alice", 1); err != nil {
		t.Fatalf("BumpVersion error: %v", err)
	}

	// The old expected version is stale now.
	if err := m.Accounts(nil).BumpVersion(ctx, "seg-1", "alice", 1); !errors.Is(err, common.ErrStorageConflict) {
		t.Fatalf("want common.ErrStorageConflict, got %v", err)
	}

	got, _ := m.Accounts(nil).Get(ctx, "seg-1", "alice")
	if got.Version != 2 {
		t.Fatalf("version not bumped exactly once: %d", got.Version)
	}
}

func TestInMemoryAccounts_CommitRotation(t *testing.T) {
	t.Parallel()

	m := NewInMemoryRepositoryManager()
	ctx := context.Background()
	seedAccount(t, m)

	rotated := &models.Account{
		ID:               "alice",
		SegmentID:        "seg-1",
		MasterPublicKey:  []byte("new-pub"),
		WrappedMasterKey: []byte("new-wrapped"),
		Salt:             []byte("new-salt"),
		Version:          2,
	}

	if err := m.Accounts(nil).CommitRotation(ctx, rotated, 1); err != nil {
		t.Fatalf("CommitRotation error: %v", err)
	}

	got, _ := m.Accounts(nil).Get(ctx, "seg-1", "alice")
	if !bytes.Equal(got.MasterPublicKey, []byte("new-pub")) || got.Version != 2 || got.NeedsRotation {
		t.Fatalf("rotation not installed: %+v", got)
	}

	// A second commit against the old version is a lost race with no writes.
	if err := m.Accounts(nil).CommitRotation(ctx, rotated, 1); !errors.Is(err, common.ErrStorageConflict) {
		t.Fatalf("want common.ErrStorageConflict, got %v", err)
	}
	after, _ := m.Accounts(nil).Get(ctx, "seg-1", "alice")
	if after.Version != 2 {
		t.Fatalf("lost race mutated the record: %+v", after)
	}
}

func TestInMemoryDevices(t *testing.T) {
	t.Parallel()

	m := NewInMemoryRepositoryManager()
	ctx := context.Background()

	mk := func(id string, pub []byte) *models.Device {
		return &models.Device{
			ID: id, AccountID: "alice", SegmentID: "seg-1",
			DevicePublicKey: pub, SigningPublicKey: []byte("s"), WrappedAccessKey: []byte("a"),
		}
	}

	if _, err := m.Devices(nil).Create(ctx, mk("d-1", []byte("p1"))); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := m.Devices(nil).Create(ctx, mk("d-2", []byte("p2"))); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	list, err := m.Devices(nil).ListByAccount(ctx, "seg-1", "alice")
	if err != nil {
		t.Fatalf("ListByAccount error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("unexpected listing: %+v", list)
	}

	got, err := m.Devices(nil).GetByPublicKey(ctx, "seg-1", "alice", []byte("p2"))
	if err != nil {
		t.Fatalf("GetByPublicKey error: %v", err)
	}
	if got.ID != "d-2" {
		t.Fatalf("resolved wrong device: %+v", got)
	}

	if _, err := m.Devices(nil).GetByPublicKey(ctx, "seg-1", "alice", []byte("nope")); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}

	if err := m.Devices(nil).UpdateAccess(ctx, "d-1", []byte("rewrapped"), 5); err != nil {
		t.Fatalf("UpdateAccess error: %v", err)
	}
	got, _ = m.Devices(nil).GetByPublicKey(ctx, "seg-1", "alice", []byte("p1"))
	if !bytes.Equal(got.WrappedAccessKey, []byte("rewrapped")) || got.AccountVersion != 5 {
		t.Fatalf("access material not updated: %+v", got)
	}
}

func TestInMemoryGrants(t *testing.T) {
	t.Parallel()

	m := NewInMemoryRepositoryManager()
	ctx := context.Background()

	grant := &models.AccessGrant{
		DocumentID: "doc-1", AccountID: "alice", SegmentID: "seg-1",
		WrappedContentKey: []byte("wck"), AccountVersion: 2,
	}
	if _, err := m.Grants(nil).Create(ctx, grant); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := m.Grants(nil).Create(ctx, grant); !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want common.ErrAlreadyExists, got %v", err)
	}

	got, err := m.Grants(nil).Get(ctx, "seg-1", "alice", "doc-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !bytes.Equal(got.WrappedContentKey, []byte("wck")) {
		t.Fatalf("unexpected grant: %+v", got)
	}

	if err := m.Grants(nil).UpdateWrap(ctx, "seg-1", "alice", "doc-1", []byte("rewrapped"), 3); err != nil {
		t.Fatalf("UpdateWrap error: %v", err)
	}
	got, _ = m.Grants(nil).Get(ctx, "seg-1", "alice", "doc-1")
	if !bytes.Equal(got.WrappedContentKey, []byte("rewrapped")) || got.AccountVersion != 3 {
		t.Fatalf("wrap not updated: %+v", got)
	}

	list, err := m.Grants(nil).ListByAccount(ctx, "seg-1", "alice")
	if err != nil {
		t.Fatalf("ListByAccount error: %v", err)
	}
	if len(list) != 1 || list[0].DocumentID != "doc-1" {
		t.Fatalf("unexpected listing: %+v", list)
	}
}
