package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/clintfred/ironoxide/internal/sdk"
)

// deviceFile is the on-disk form of a device context. The key material is
// the raw private bytes, base64 in JSON; everything needed to rebuild the
// context is here, nothing else is.
type deviceFile struct {
	AccountID         string `json:"account_id"`
	SegmentID         string `json:"segment_id"`
	DevicePrivateKey  string `json:"device_private_key"`
	SigningPrivateKey string `json:"signing_private_key"`
}

func saveDeviceContext(path string, d *sdk.DeviceContext) error {
	f := deviceFile{
		AccountID:         d.AccountID(),
		SegmentID:         d.SegmentID(),
		DevicePrivateKey:  base64.StdEncoding.EncodeToString(d.DevicePrivateKeyBytes()),
		SigningPrivateKey: base64.StdEncoding.EncodeToString(d.SigningPrivateKeyBytes()),
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func loadDeviceContext(path string) (*sdk.DeviceContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading device file: %w", err)
	}

	var f deviceFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing device file: %w", err)
	}

	devicePriv, err := base64.StdEncoding.DecodeString(f.DevicePrivateKey)
	if err != nil {
		return nil, fmt.Errorf("error decoding device key: %w", err)
	}
	signingPriv, err := base64.StdEncoding.DecodeString(f.SigningPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("error decoding signing key: %w", err)
	}

	return sdk.NewDeviceContext(f.AccountID, f.SegmentID, devicePriv, signingPriv)
}
