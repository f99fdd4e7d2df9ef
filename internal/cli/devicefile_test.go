package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/cryptox"
	"github.com/clintfred/ironoxide/internal/sdk"
)

func newDeviceContext(t *testing.T) *sdk.DeviceContext {
	t.Helper()

	kp, err := cryptox.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair error: %v", err)
	}
	_, signingPriv, err := cryptox.GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair error: %v", err)
	}

	d, err := sdk.NewDeviceContext("alice", "seg-1", kp.Private, signingPriv)
	if err != nil {
		t.Fatalf("NewDeviceContext error: %v", err)
	}
	return d
}

func TestDeviceFile_RoundTrip(t *testing.T) {
	t.Parallel()

	d := newDeviceContext(t)
	path := filepath.Join(t.TempDir(), "device.json")

	if err := saveDeviceContext(path, d); err != nil {
		t.Fatalf("saveDeviceContext error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("device file too permissive: %v", info.Mode())
	}

	got, err := loadDeviceContext(path)
	if err != nil {
		t.Fatalf("loadDeviceContext error: %v", err)
	}

	if got.AccountID() != d.AccountID() || got.SegmentID() != d.SegmentID() {
		t.Fatalf("identity mismatch: %q / %q", got.AccountID(), got.SegmentID())
	}
	if !bytes.Equal(got.DevicePrivateKeyBytes(), d.DevicePrivateKeyBytes()) {
		t.Fatal("device key not preserved")
	}
	if !bytes.Equal(got.SigningPrivateKeyBytes(), d.SigningPrivateKeyBytes()) {
		t.Fatal("signing key not preserved")
	}
}

func TestLoadDeviceContext_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if _, err := loadDeviceContext(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, err := loadDeviceContext(bad); err == nil {
		t.Fatal("expected error for invalid json")
	}

	truncated := filepath.Join(dir, "truncated.json")
	if err := os.WriteFile(truncated, []byte(`{"account_id":"a","segment_id":"s","device_private_key":"AAAA","signing_private_key":"AAAA"}`), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, err := loadDeviceContext(truncated); !errors.Is(err, common.ErrMalformedDeviceContext) {
		t.Fatalf("want ErrMalformedDeviceContext, got %v", err)
	}
}

func TestGetPassword(t *testing.T) {
	orig := readPassword
	readPassword = func(fd int) ([]byte, error) { return []byte("hunter2"), nil }
	defer func() { readPassword = orig }()

	var out bytes.Buffer
	pw, err := GetPassword(&out, "Enter password: ")
	if err != nil {
		t.Fatalf("GetPassword error: %v", err)
	}
	if string(pw) != "hunter2" {
		t.Fatalf("unexpected password: %q", pw)
	}
	if !bytes.Contains(out.Bytes(), []byte("Enter password: ")) {
		t.Fatalf("prompt not printed: %q", out.String())
	}
}
