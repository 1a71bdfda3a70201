package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sw360-console/sw360"
)

func loginCommand(app *cli) *cobra.Command {
	var username, password string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "exchange a username and password for an SW360 access token",
		Long: `login asks the SW360 authorization server for an access token and prints
it as a shell export line. The password may come from $SW360_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SW360_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			token, err := app.client.GenerateToken(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			out := cmd.OutOrStdout()
			if quiet {
				fmt.Fprintln(out, token.AccessToken)
				return nil
			}

			cred := token.Credential(time.Now())
			if profile, err := app.client.Profile(cmd.Context(), cred); err == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "signed in as %s (%s)\n", profile.Email, groupOrDefault(profile))
			}
			if !cred.ExpiresAt.IsZero() {
				fmt.Fprintf(cmd.ErrOrStderr(), "token expires at %s\n", cred.ExpiresAt.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "export SW360_TOKEN=%s\n", token.AccessToken)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&username, "username", "u", "", "SW360 user (e-mail)")
	fs.StringVarP(&password, "password", "p", "", "password (default: $SW360_PASSWORD)")
	fs.BoolVarP(&quiet, "quiet", "q", false, "print the bare token only")
	return cmd
}

func groupOrDefault(p sw360.Profile) string {
	if p.UserGroup == "" {
		return "USER"
	}
	return p.UserGroup
}
