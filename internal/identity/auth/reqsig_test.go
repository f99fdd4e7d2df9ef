package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/cryptox"
)

func TestRequestSignature_RoundTrip(t *testing.T) {
	t.Parallel()

	pub, priv, err := cryptox.GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair error: %v", err)
	}
	devicePub := common.GenerateRandByteArray(32)

	sig, err := SignRequest(priv, "ListDevices", "acct-1", "seg-1", devicePub)
	if err != nil {
		t.Fatalf("SignRequest error: %v", err)
	}

	if err := sig.Verify(pub, "ListDevices", time.Now()); err != nil {
		t.Fatalf("Verify error: %v", err)
	}
}

func TestRequestSignature_WrongMethod(t *testing.T) {
	t.Parallel()

	pub, priv, err := cryptox.GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair error: %v", err)
	}

	sig, err := SignRequest(priv, "ListDevices", "acct-1", "seg-1", nil)
	if err != nil {
		t.Fatalf("SignRequest error: %v", err)
	}

	err = sig.Verify(pub, "RotateMasterKey", time.Now())
	if !errors.Is(err, common.ErrInvalidRequestSignature) {
		t.Fatalf("want ErrInvalidRequestSignature, got %v", err)
	}
}

func TestRequestSignature_WrongKey(t *testing.T) {
	t.Parallel()

	_, priv, err := cryptox.GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair error: %v", err)
	}
	otherPub, _, err := cryptox.GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair error: %v", err)
	}

	sig, err := SignRequest(priv, "ListDevices", "acct-1", "seg-1", nil)
	if err != nil {
		t.Fatalf("SignRequest error: %v", err)
	}

	err = sig.Verify(otherPub, "ListDevices", time.Now())
	if !errors.Is(err, common.ErrInvalidRequestSignature) {
		t.Fatalf("want ErrInvalidRequestSignature, got %v", err)
	}
}

func TestRequestSignature_StaleTimestamp(t *testing.T) {
	t.Parallel()

	pub, priv, err := cryptox.GenerateSigningKeyPair()
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair error: %v", err)
	}

	sig, err := SignRequest(priv, "ListDevices", "acct-1", "seg-1", nil)
	if err != nil {
		t.Fatalf("SignRequest error: %v", err)
	}

	err = sig.Verify(pub, "ListDevices", time.Now().Add(SignatureWindow+time.Minute))
	if !errors.Is(err, common.ErrInvalidRequestSignature) {
		t.Fatalf("want ErrInvalidRequestSignature for stale timestamp, got %v", err)
	}
}

func TestSignRequest_BadKeyLength(t *testing.T) {
	t.Parallel()

	if _, err := SignRequest([]byte{1, 2, 3}, "m", "a", "s", nil); err == nil {
		t.Fatalf("expected error for short signing key")
	}
}
