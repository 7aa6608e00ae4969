// This command prints a freshly signed client assertion without exchanging
// it. It is useful for checking a key and kid against the PDND back office,
// or for calling the token endpoint by hand.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/isprambiente/pdnd-client/internal/assertion"
	"github.com/isprambiente/pdnd-client/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	var environment, configPath string

	cmd := &cobra.Command{
		Use:           "assertion",
		Short:         "Print a signed PDND client assertion",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			resolved, err := config.Resolve(ctx, config.ResolveOptions{
				Path:        configPath,
				Environment: environment,
			})
			if err != nil {
				return err
			}

			signer, err := assertion.NewSigner(ctx, resolved.Credentials, resolved.Profile)
			if err != nil {
				return err
			}

			signed, err := signer.Sign()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&environment, "env", "e", config.EnvironmentProduction, "environment to use (production, staging)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path of the JSON configuration file")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error creating assertion: %v\n", err)
		os.Exit(1)
	}
}
