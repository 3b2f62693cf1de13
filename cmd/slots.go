package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/customk9/booking-gateway/internal/domain"
)

func newSlotsCmd(a *app) *cobra.Command {
	var (
		date        string
		sessionType string
		login       string
		password    string
	)

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the free slots for a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := time.Parse("2006-01-02", date)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			typ, err := domain.ParseSessionType(sessionType)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if login != "" {
				if _, err := a.sessions.Authenticate(ctx, domain.Credential{Login: login, Secret: password}); err != nil {
					return err
				}
			}

			slots, err := a.availability.Slots(ctx, day, typ)
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no free slots")
				return nil
			}
			for _, s := range slots {
				fmt.Fprintln(cmd.OutOrStdout(), s.Label())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", time.Now().UTC().Format("2006-01-02"), "day to inspect (YYYY-MM-DD)")
	cmd.Flags().StringVar(&sessionType, "type", string(domain.SessionIndividual), "session type (individual or group)")
	cmd.Flags().StringVar(&login, "login", "", "authenticate first with this login")
	cmd.Flags().StringVar(&password, "password", "", "password for --login")
	return cmd
}
