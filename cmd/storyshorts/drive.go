package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/story-shorts/internal/config"
	"github.com/codebuildervaibhav/story-shorts/internal/storage"
)

var driveCode string

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Google Drive upload commands",
}

var driveAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Drive uploads",
	Long: `Without --code, prints the consent URL. Open it, approve access and run the
command again with --code to store the token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		creds := cfg.GoogleDrive.CredentialsFile

		if driveCode == "" {
			url, err := storage.AuthURL(creds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Open this link in your browser, then rerun with --code:\n%s\n", url)
			return nil
		}

		if err := storage.AuthorizeDrive(cmd.Context(), creds, cfg.GoogleDrive.TokenFile, driveCode); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.GoogleDrive.TokenFile)
		return nil
	},
}

func init() {
	driveAuthCmd.Flags().StringVar(&driveCode, "code", "", "authorization code from the consent page")
	driveCmd.AddCommand(driveAuthCmd)
}
