package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clintfred/ironoxide/internal/identity/config"
)

var app *App

var rootCmd = &cobra.Command{
	Use:   "ironoxide",
	Short: "ironoxide identity and key management",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		app, err = newApp(config.LoadConfig())
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app != nil {
			return app.Close()
		}
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
