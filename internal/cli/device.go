package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/identity/services"
	"github.com/clintfred/ironoxide/internal/sdk"
)

var (
	deviceNewAccount string
	deviceNewName    string
	deviceNewOut     string
	deviceListFile   string
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Device operations",
}

var deviceNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Provision a new device for an account",
	RunE:  runDeviceNew,
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the account's devices",
	RunE:  runDeviceList,
}

func init() {
	deviceNewCmd.Flags().StringVar(&deviceNewAccount, "account", "", "account id (required)")
	deviceNewCmd.Flags().StringVar(&deviceNewName, "name", "", "device name")
	deviceNewCmd.Flags().StringVar(&deviceNewOut, "out", "device.json", "file to write the device context to")
	deviceListCmd.Flags().StringVar(&deviceListFile, "device", "device.json", "device context file")

	deviceCmd.AddCommand(deviceNewCmd)
	deviceCmd.AddCommand(deviceListCmd)
	rootCmd.AddCommand(deviceCmd)
}

func runDeviceNew(cmd *cobra.Command, args []string) error {
	if deviceNewAccount == "" {
		return fmt.Errorf("--account is required")
	}

	password, err := GetPassword(os.Stdout, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	token, err := app.token(deviceNewAccount)
	if err != nil {
		return err
	}

	res, err := app.identity.GenerateNewDevice(cmd.Context(), token, password,
		services.DeviceCreateOpts{Name: deviceNewName})
	if err != nil {
		return err
	}

	device, err := sdk.DeviceContextFromAddResult(res)
	if err != nil {
		return err
	}
	if err := saveDeviceContext(deviceNewOut, device); err != nil {
		return err
	}

	fmt.Printf("device:  %s\n", res.DeviceID)
	fmt.Printf("account: %s\n", res.AccountID)
	fmt.Printf("written: %s\n", deviceNewOut)
	return nil
}

func runDeviceList(cmd *cobra.Command, args []string) error {
	device, err := loadDeviceContext(deviceListFile)
	if err != nil {
		return err
	}

	session, err := sdk.Initialize(cmd.Context(), app.backend, device)
	if err != nil {
		return err
	}

	list, err := session.UserListDevices(cmd.Context())
	if err != nil {
		return err
	}

	for _, d := range list {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%s  %s  %s\n", d.ID, d.CreatedAt.Format("2006-01-02 15:04:05"), name)
	}
	return nil
}
