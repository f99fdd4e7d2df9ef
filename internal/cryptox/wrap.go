package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/clintfred/ironoxide/internal/common"
	"golang.org/x/crypto/argon2"
)

const nonceSize = 12

// DeriveKeyFromPassword stretches a password into a 32-byte AES key with
// Argon2id. The salt must be random per account and stored alongside the
// wrapped key.
func DeriveKeyFromPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// WrapWithPassword encrypts key material under a password-derived key.
// Layout of the result: nonce (12) | AES-GCM ciphertext.
func WrapWithPassword(password, salt, key []byte) ([]byte, error) {
	derived := DeriveKeyFromPassword(password, salt)
	defer common.WipeByteArray(derived)

	nonce := common.GenerateRandByteArray(nonceSize)
	ciphertext, err := aesSeal(derived, nonce, key, nil)
	if err != nil {
		return nil, err
	}
	return append(nonce, ciphertext...), nil
}

// UnwrapWithPassword reverses WrapWithPassword. A wrong password surfaces as
// common.ErrInvalidPassword, not as a generic decryption error, so callers
// can distinguish user mistakes from corrupted records.
func UnwrapWithPassword(password, salt, wrapped []byte) ([]byte, error) {
	if len(wrapped) <= nonceSize {
		return nil, fmt.Errorf("wrapped key too short: %d bytes", len(wrapped))
	}

	derived := DeriveKeyFromPassword(password, salt)
	defer common.WipeByteArray(derived)

	key, err := aesOpen(derived, wrapped[:nonceSize], wrapped[nonceSize:], nil)
	if err != nil {
		return nil, common.ErrInvalidPassword
	}
	return key, nil
}

// WrapKey seals key material to an X25519 public key using an ephemeral
// ECDH exchange (ECIES). Layout: ephemeral public key (32) | nonce (12) |
// AES-GCM ciphertext. Each call produces a distinct envelope even for the
// same inputs.
func WrapKey(recipientPublic, key []byte) ([]byte, error) {
	curve := ecdh.X25519()

	pub, err := curve.NewPublicKey(recipientPublic)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient key: %w", err)
	}

	eph, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ephemeral key generation error: %w", err)
	}

	shared, err := eph.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("ecdh error: %w", err)
	}
	wrapKey := envelopeKey(shared, eph.PublicKey().Bytes(), recipientPublic)
	defer common.WipeByteArray(wrapKey)
	common.WipeByteArray(shared)

	nonce := common.GenerateRandByteArray(nonceSize)
	ciphertext, err := aesSeal(wrapKey, nonce, key, nil)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, PublicKeySize+nonceSize+len(ciphertext))
	out = append(out, eph.PublicKey().Bytes()...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// UnwrapKey opens an envelope produced by WrapKey using the recipient's
// X25519 private key.
func UnwrapKey(recipientPrivate, wrapped []byte) ([]byte, error) {
	if len(wrapped) <= PublicKeySize+nonceSize {
		return nil, fmt.Errorf("wrapped key too short: %d bytes", len(wrapped))
	}

	curve := ecdh.X25519()

	priv, err := curve.NewPrivateKey(recipientPrivate)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient private key: %w", err)
	}

	ephPub, err := curve.NewPublicKey(wrapped[:PublicKeySize])
	if err != nil {
		return nil, fmt.Errorf("invalid ephemeral key: %w", err)
	}

	shared, err := priv.ECDH(ephPub)
	if err != nil {
		return nil, fmt.Errorf("ecdh error: %w", err)
	}
	wrapKey := envelopeKey(shared, wrapped[:PublicKeySize], priv.PublicKey().Bytes())
	defer common.WipeByteArray(wrapKey)
	common.WipeByteArray(shared)

	nonce := wrapped[PublicKeySize : PublicKeySize+nonceSize]
	key, err := aesOpen(wrapKey, nonce, wrapped[PublicKeySize+nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap error: %w", err)
	}
	return key, nil
}

// envelopeKey binds the AES key to both public keys of the exchange.
func envelopeKey(shared, ephemeralPublic, recipientPublic []byte) []byte {
	h := sha256.New()
	h.Write(shared)
	h.Write(ephemeralPublic)
	h.Write(recipientPublic)
	return h.Sum(nil)
}

func aesSeal(key, nonce, plaintext, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Seal(nil, nonce, plaintext, additionalData), nil
}

func aesOpen(key, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, additionalData)
}
