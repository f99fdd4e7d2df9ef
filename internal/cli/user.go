package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/clintfred/ironoxide/internal/identity/services"
)

var (
	userCreateAccount       string
	userCreateNeedsRotation bool
	userVerifyAccount       string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Account operations",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account with a fresh master key pair",
	RunE:  runUserCreate,
}

var userVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check whether an account exists and mark it verified",
	RunE:  runUserVerify,
}

func init() {
	userCreateCmd.Flags().StringVar(&userCreateAccount, "account", "", "account id (random when omitted)")
	userCreateCmd.Flags().BoolVar(&userCreateNeedsRotation, "needs-rotation", false, "mark the new account as needing a master key rotation")
	userVerifyCmd.Flags().StringVar(&userVerifyAccount, "account", "", "account id (required)")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userVerifyCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	accountID := userCreateAccount
	if accountID == "" {
		accountID = uuid.NewString()
	}

	password, err := GetPassword(os.Stdout, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	token, err := app.token(accountID)
	if err != nil {
		return err
	}

	res, err := app.identity.UserCreate(cmd.Context(), token, password,
		services.UserCreateOpts{NeedsRotation: userCreateNeedsRotation})
	if err != nil {
		return err
	}

	fmt.Printf("account:     %s\n", res.AccountID)
	fmt.Printf("segment:     %s\n", res.SegmentID)
	fmt.Printf("fingerprint: %s\n", res.MasterPublicKeyFingerprint)
	if res.NeedsRotation {
		fmt.Println("rotation:    pending")
	}
	return nil
}

func runUserVerify(cmd *cobra.Command, args []string) error {
	if userVerifyAccount == "" {
		return fmt.Errorf("--account is required")
	}

	token, err := app.token(userVerifyAccount)
	if err != nil {
		return err
	}

	res, err := app.identity.UserVerify(cmd.Context(), token)
	if err != nil {
		return err
	}
	if res == nil {
		fmt.Printf("account %s does not exist\n", userVerifyAccount)
		return nil
	}

	fmt.Printf("account: %s\n", res.AccountID)
	fmt.Printf("segment: %s\n", res.SegmentID)
	if res.NeedsRotation {
		fmt.Println("rotation: pending")
	}
	return nil
}
