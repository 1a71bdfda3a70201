package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sw360-console/renderer"
)

func smokeCommand() *cobra.Command {
	var (
		consoleURL string
		username   string
		password   string
		resource   string
		opts       renderer.Options
	)
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "sign in to a running console with headless Chrome and open a list",
		Long: `smoke drives the console the way a person would: it signs in through the
form, follows the redirect to a list page and waits out the processing
indicator. It fails when the list never settles or sign-in is refused.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SW360_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			res, err := renderer.SmokeTest(cmd.Context(), consoleURL, username, password, resource, opts)
			if err != nil {
				return fmt.Errorf("smoke test failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url:     %s\n", res.URL)
			fmt.Fprintf(out, "heading: %s\n", res.Heading)
			fmt.Fprintf(out, "rows:    %d\n", res.Rows)
			if res.Summary != "" {
				fmt.Fprintf(out, "footer:  %s\n", res.Summary)
			}
			for _, a := range res.Alerts {
				fmt.Fprintf(out, "alert:   %s\n", a)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&consoleURL, "console-url", "http://localhost:3000", "base URL of the running console")
	fs.StringVarP(&username, "username", "u", "", "SW360 user (e-mail)")
	fs.StringVarP(&password, "password", "p", "", "password (default: $SW360_PASSWORD)")
	fs.StringVarP(&resource, "resource", "r", "components", "list page to open after sign-in")
	fs.StringVar(&opts.ChromePath, "chrome", "", "Chrome or Chromium binary (default: $CHROME_PATH)")
	fs.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "overall browser timeout")
	fs.IntVar(&opts.MaxRefreshes, "max-refreshes", 10, "processing reloads to wait out")
	return cmd
}
