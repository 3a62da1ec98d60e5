package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sawpanic/taskbridge/internal/signature"
)

func newSignCmd() *cobra.Command {
	var secret, file string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the webhook signature header for a body",
		Long: `Computes the sha256=<hex> signature of a request body, read from --file or
stdin, for replaying webhook deliveries by hand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("GITHUB_WEBHOOK_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("--secret or GITHUB_WEBHOOK_SECRET is required")
			}

			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			body, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", signature.HeaderName, signature.Sign(body, secret))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Shared webhook secret")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Body file (default stdin)")
	return cmd
}
