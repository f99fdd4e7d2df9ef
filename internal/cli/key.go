package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/sdk"
)

var keyRotateDevice string

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Master key operations",
}

var keyRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the account's master key in place",
	Long: `Rotate replaces the account's master key pair. Existing documents are not
re-encrypted and devices keep working: the new private key is re-sealed to
every device and every document grant is re-wrapped under the new public key.`,
	RunE: runKeyRotate,
}

func init() {
	keyRotateCmd.Flags().StringVar(&keyRotateDevice, "device", "device.json", "device context file")

	keyCmd.AddCommand(keyRotateCmd)
	rootCmd.AddCommand(keyCmd)
}

func runKeyRotate(cmd *cobra.Command, args []string) error {
	device, err := loadDeviceContext(keyRotateDevice)
	if err != nil {
		return err
	}

	session, err := sdk.Initialize(cmd.Context(), app.backend, device)
	if err != nil {
		return err
	}

	password, err := GetPassword(os.Stdout, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := session.UserRotateMasterKey(cmd.Context(), password)
	if err != nil {
		return err
	}

	fmt.Printf("rotated; new fingerprint: %s\n", res.NewMasterPublicKeyFingerprint)
	return nil
}
