package cryptox

import (
	"bytes"
	"fmt"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/google/uuid"
)

// Encrypted document layout:
//
//	magic "IRON" (4) | version (1) | document id (16) | nonce (12) | ciphertext
//
// The header is authenticated as AES-GCM additional data, so tampering with
// the id or version fails decryption.
var documentMagic = []byte("IRON")

const (
	documentVersion   = 1
	documentIDSize    = 16
	documentHeaderLen = 4 + 1 + documentIDSize + nonceSize
)

// ContentKeySize is the length of the per-document symmetric key.
const ContentKeySize = 32

// GenerateContentKey returns a fresh random content key. Content keys are
// wrapped to account master keys and never change over the life of a
// document, even across master key rotations.
func GenerateContentKey() []byte {
	return common.GenerateRandByteArray(ContentKeySize)
}

// EncryptDocument encrypts plaintext under contentKey and prefixes the
// self-describing header carrying the document id.
func EncryptDocument(documentID uuid.UUID, contentKey, plaintext []byte) ([]byte, error) {
	nonce := common.GenerateRandByteArray(nonceSize)

	header := make([]byte, 0, documentHeaderLen)
	header = append(header, documentMagic...)
	header = append(header, documentVersion)
	header = append(header, documentID[:]...)
	header = append(header, nonce...)

	ciphertext, err := aesSeal(contentKey, nonce, plaintext, header)
	if err != nil {
		return nil, err
	}
	return append(header, ciphertext...), nil
}

// ParseDocumentID extracts the document id from an encrypted document without
// decrypting it. Malformed input yields common.ErrMalformedDocument.
func ParseDocumentID(encrypted []byte) (uuid.UUID, error) {
	if len(encrypted) < documentHeaderLen {
		return uuid.Nil, common.ErrMalformedDocument
	}
	if !bytes.Equal(encrypted[:4], documentMagic) {
		return uuid.Nil, common.ErrMalformedDocument
	}
	if encrypted[4] != documentVersion {
		return uuid.Nil, fmt.Errorf("%w: unsupported version %d", common.ErrMalformedDocument, encrypted[4])
	}

	var id uuid.UUID
	copy(id[:], encrypted[5:5+documentIDSize])
	return id, nil
}

// DecryptDocument reverses EncryptDocument.
func DecryptDocument(contentKey, encrypted []byte) ([]byte, error) {
	if _, err := ParseDocumentID(encrypted); err != nil {
		return nil, err
	}

	header := encrypted[:documentHeaderLen]
	nonce := header[5+documentIDSize:]

	plaintext, err := aesOpen(contentKey, nonce, encrypted[documentHeaderLen:], header)
	if err != nil {
		return nil, fmt.Errorf("document decryption error: %w", err)
	}
	return plaintext, nil
}
