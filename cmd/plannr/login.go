package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richard-uk1/plannr/internal/ics"
)

var loginCmd = &cobra.Command{
	Use:   "login SOURCE",
	Short: "Authorize an OAuth2-protected source",
	Long: `Run the OAuth2 authorization-code flow for SOURCE. Open the printed
URL in a browser; the token is saved to the source's token_path.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	src, ok := cfg.Source(args[0])
	if !ok {
		return fmt.Errorf("unknown source %q", args[0])
	}
	if src.OAuth == nil {
		return fmt.Errorf("source %q has no oauth settings", args[0])
	}

	out := cmd.OutOrStdout()
	prompt := func(authURL string) {
		fmt.Fprintln(out, "Please visit the following URL to authorize plannr:")
		fmt.Fprintln(out, authURL)
		fmt.Fprintln(out, "\nWaiting for authorization...")
	}
	store := ics.FileTokenStore{Path: src.OAuth.TokenPath}
	if _, err := ics.Login(cmd.Context(), *src.OAuth, store, prompt); err != nil {
		return err
	}
	fmt.Fprintf(out, "Authorization successful; token saved to %s\n", src.OAuth.TokenPath)
	return nil
}
