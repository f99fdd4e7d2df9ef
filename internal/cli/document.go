package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentURLKey string

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Encrypted document blob operations",
}

var documentURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Issue a presigned blob URL",
	Long: `Without --key, reserves a new storage key and prints a presigned upload
URL for it. With --key, prints a presigned download URL for an existing blob.`,
	RunE: runDocumentURL,
}

func init() {
	documentURLCmd.Flags().StringVar(&documentURLKey, "key", "", "storage key of an existing blob (omit to get an upload URL)")

	documentCmd.AddCommand(documentURLCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentURL(cmd *cobra.Command, args []string) error {
	if documentURLKey != "" {
		url, err := app.documents.PresignedGetURL(cmd.Context(), documentURLKey)
		if err != nil {
			return err
		}
		fmt.Printf("url: %s\n", url)
		return nil
	}

	key, url, err := app.documents.PresignedPutURL(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("key: %s\n", key)
	fmt.Printf("url: %s\n", url)
	return nil
}
