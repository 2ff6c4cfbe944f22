package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botdesk/botdesk/internal/client/session"
)

var consentCmd = &cobra.Command{
	Use:   "consent",
	Short: "Record or show your cookie consent decision",
}

func consentDecisionCmd(accept bool) *cobra.Command {
	use, short := "decline", "Decline analytics cookies"
	if accept {
		use, short = "accept", "Accept analytics cookies"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app(cmd).Session.RecordConsent(cmd.Context(), accept)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Consent %s (version %s)\n", consentLabel(c.Accepted), c.Version)
			return nil
		},
	}
}

var consentStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the recorded decision",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var c session.Consent
		found, err := app(cmd).Session.Repository().GetPreference(cmd.Context(), session.PrefCookieConsent, &c)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !found {
			fmt.Fprintln(out, "No decision recorded. Run 'botdesk consent accept' or 'botdesk consent decline'.")
			return nil
		}
		fmt.Fprintf(out, "%s on %s (version %s)\n", consentLabel(c.Accepted), c.Timestamp.Local().Format("2006-01-02 15:04"), c.Version)
		return nil
	},
}

func consentLabel(accepted bool) string {
	if accepted {
		return "accepted"
	}
	return "declined"
}

func init() {
	consentCmd.AddCommand(consentDecisionCmd(true), consentDecisionCmd(false), consentStatusCmd)
	rootCmd.AddCommand(consentCmd)
}
