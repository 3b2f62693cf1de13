package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bookingd",
		Short:         "Booking gateway for a remote Odoo calendar backend",
		Long:          "bookingd manages authenticated sessions against a remote Odoo-style calendar, serves availability slot grids, and books appointments with conflict detection over a backend that offers no transactions.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(app),
		newSlotsCmd(app),
		newPingCmd(app),
	)

	return rootCmd
}
