package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the remote backend is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, err := a.backend.Ping(cmd.Context())
			if err != nil {
				return fmt.Errorf("backend unreachable: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok (server version %s)\n", version)
			return err
		},
	}
}
