// Package cryptox implements the key material the identity subsystem manages:
// X25519 key pairs for accounts and devices, Ed25519 signing pairs,
// password-based wrapping of master private keys, ECIES-style key envelopes,
// and symmetric document encryption with per-document content keys.
package cryptox

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	// PublicKeySize and PrivateKeySize are raw X25519 key lengths.
	PublicKeySize  = 32
	PrivateKeySize = 32

	// SigningPublicKeySize and SigningPrivateKeySize are raw Ed25519 key lengths.
	SigningPublicKeySize  = ed25519.PublicKeySize
	SigningPrivateKeySize = ed25519.PrivateKeySize
)

// KeyPair holds the raw bytes of an X25519 key pair.
type KeyPair struct {
	Public  []byte
	Private []byte
}

// GenerateKeyPair creates a fresh X25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("key generation error: %w", err)
	}
	return &KeyPair{
		Public:  priv.PublicKey().Bytes(),
		Private: priv.Bytes(),
	}, nil
}

// DerivePublicKey recovers the X25519 public key for a raw private key.
// Used when a device context is rebuilt from persisted private key bytes.
func DerivePublicKey(privateKey []byte) ([]byte, error) {
	priv, err := ecdh.X25519().NewPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return priv.PublicKey().Bytes(), nil
}

// GenerateSigningKeyPair creates a fresh Ed25519 signing key pair.
// The private key is the 64-byte form that embeds the seed and public key.
func GenerateSigningKeyPair() (publicKey, privateKey []byte, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("signing key generation error: %w", err)
	}
	return pub, priv, nil
}

// Fingerprint returns a short, stable identifier for a public key:
// base58-encoded SHA-256 of the raw key bytes.
func Fingerprint(publicKey []byte) string {
	h := sha256.Sum256(publicKey)
	return base58.Encode(h[:])
}
