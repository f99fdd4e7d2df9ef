package common

import (
	"bytes"
	"testing"
)

func TestGenerateRandByteArray(t *testing.T) {
	t.Parallel()

	a := GenerateRandByteArray(32)
	b := GenerateRandByteArray(32)

	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("unexpected lengths: %d, %d", len(a), len(b))
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two random draws are equal")
	}
}

func TestMakeRandHexString(t *testing.T) {
	t.Parallel()

	s, err := MakeRandHexString(16)
	if err != nil {
		t.Fatalf("MakeRandHexString error: %v", err)
	}
	if len(s) != 32 {
		t.Fatalf("want 32 hex chars, got %d", len(s))
	}
}

func TestWipeByteArray(t *testing.T) {
	t.Parallel()

	b := []byte{1, 2, 3}
	WipeByteArray(b)
	if !bytes.Equal(b, []byte{0, 0, 0}) {
		t.Fatalf("buffer not wiped: %v", b)
	}

	WipeByteArray(nil) // must not panic
}
