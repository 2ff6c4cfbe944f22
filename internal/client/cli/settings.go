package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/dashboard/views"
	"github.com/botdesk/botdesk/internal/client/session"
	apperrors "github.com/botdesk/botdesk/pkg/errors"
	"github.com/botdesk/botdesk/pkg/utils"
)

const (
	emailSettingsPath   = "/dashboard/settings/email-configuration"
	generalSettingsPath = "/settings/general"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Account and system settings",
}

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "SMTP configuration (admin)",
}

var emailOutput string

var emailGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the SMTP configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(emailSettingsPath); err != nil {
			return err
		}
		if err := checkOutput(emailOutput); err != nil {
			return err
		}

		cfg, err := a.Client.GetEmailConfiguration(cmd.Context())
		if err != nil {
			return friendly(err, "Failed to load email configuration")
		}
		settings := cfg.WithDefaults()

		out := cmd.OutOrStdout()
		if emailOutput == outputJSON {
			return printJSON(out, settings)
		}
		fmt.Fprintf(out, "SMTP host:   %s\n", settings.SMTPHost)
		fmt.Fprintf(out, "SMTP port:   %s\n", settings.SMTPPort)
		fmt.Fprintf(out, "Username:    %s\n", settings.SMTPUsername)
		fmt.Fprintf(out, "From:        %s <%s>\n", settings.FromName, settings.FromEmail)
		fmt.Fprintf(out, "Encryption:  %s\n", settings.Encryption)
		return nil
	},
}

var emailInput api.EmailSettings

var emailSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the SMTP configuration",
	Long: `Update the SMTP configuration. Fields left out keep their current values.
The password can also be given through BOTDESK_SMTP_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(emailSettingsPath); err != nil {
			return err
		}

		current, err := a.Client.GetEmailConfiguration(cmd.Context())
		if err != nil {
			return friendly(err, "Failed to load email configuration")
		}

		in := api.EmailSettings{
			SMTPHost:     pick(emailInput.SMTPHost, current.SMTPHost),
			SMTPPort:     pick(emailInput.SMTPPort, current.SMTPPort),
			SMTPUsername: pick(emailInput.SMTPUsername, current.SMTPUsername),
			SMTPPassword: pick(emailInput.SMTPPassword, os.Getenv("BOTDESK_SMTP_PASSWORD")),
			FromEmail:    pick(emailInput.FromEmail, current.FromEmail),
			FromName:     pick(emailInput.FromName, current.FromName),
			Encryption:   pick(emailInput.Encryption, current.Encryption),
		}.WithDefaults()
		if in.FromEmail != "" {
			if err := utils.ValidateEmail(in.FromEmail); err != nil {
				return friendly(err, "Invalid sender email")
			}
		}

		msg, err := a.Client.SaveEmailConfiguration(cmd.Context(), in)
		if err != nil {
			return friendly(err, "Failed to save email configuration")
		}
		printMessage(cmd.OutOrStdout(), msg, "Email configuration saved")
		return nil
	},
}

var testEmail api.TestEmail

var emailTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test email with the saved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if _, err := a.RequirePath(emailSettingsPath); err != nil {
			return err
		}
		if err := newPrompter(cmd).fill(
			promptField{"Send to", &testEmail.To},
			promptField{"Subject", &testEmail.Subject},
			promptField{"Message", &testEmail.Message},
		); err != nil {
			return err
		}
		if err := utils.ValidateTestEmail(testEmail.To, testEmail.Subject, testEmail.Message); err != nil {
			return friendly(err, "Please fill in all test email fields")
		}

		msg, err := a.Client.SendTestEmail(cmd.Context(), testEmail)
		if err != nil {
			return friendly(err, "Failed to send test email")
		}
		printMessage(cmd.OutOrStdout(), msg, "Test email sent to "+testEmail.To)
		return nil
	},
}

var generalOutput string

var generalCmd = &cobra.Command{
	Use:   "general",
	Short: "Show your account and organization details",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		user, err := a.RequirePath(generalSettingsPath)
		if err != nil {
			return err
		}
		if err := checkOutput(generalOutput); err != nil {
			return err
		}

		org, err := views.OrganizationOf(cmd.Context(), a.Client, user)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return friendly(err, "Failed to load organization details")
		}

		out := cmd.OutOrStdout()
		if generalOutput == outputJSON {
			return printJSON(out, struct {
				User         api.User          `json:"user"`
				Organization *api.Organization `json:"organization,omitempty"`
			}{user, org})
		}

		fmt.Fprintln(out, "Account")
		fmt.Fprintf(out, "  Name:   %s\n", displayName(user))
		fmt.Fprintf(out, "  Email:  %s\n", user.Email)
		fmt.Fprintf(out, "  Role:   %s\n", session.RoleOf(user))

		fmt.Fprintln(out, "\nOrganization")
		if org == nil {
			fmt.Fprintln(out, "  Individual account: no organization is linked to this email.")
			return nil
		}
		fmt.Fprintf(out, "  Name:     %s\n", org.Name)
		fmt.Fprintf(out, "  ID:       %s\n", pick(org.OrganizationID, org.ID))
		fmt.Fprintf(out, "  Contact:  %s\n", org.ContactPerson)
		fmt.Fprintf(out, "  Email:    %s\n", org.Email)
		fmt.Fprintf(out, "  Phone:    %s\n", org.Phone)
		fmt.Fprintf(out, "  Address:  %s\n", org.Address)
		fmt.Fprintf(out, "  Status:   %s\n", activeLabel(org.Active))
		if org.Subscription != "" {
			fmt.Fprintf(out, "  Plan:     %s\n", org.Subscription)
		}
		return nil
	},
}

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Site assistant configuration used by botdesk chat (admin)",
}

var assistantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assistant configurations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if err := requireAdmin(a); err != nil {
			return err
		}
		configs, err := a.Client.ListChatBotSettings(cmd.Context())
		if err != nil {
			return friendly(err, "Failed to load assistant configuration")
		}
		return printJSON(cmd.OutOrStdout(), configs)
	},
}

var assistantInput api.ChatBotSettings

var assistantSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update the assistant configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if err := requireAdmin(a); err != nil {
			return err
		}
		if err := newPrompter(cmd).fill(promptField{"Company name", &assistantInput.CompanyName}); err != nil {
			return err
		}

		saved, err := a.Client.SaveChatBotSettings(cmd.Context(), assistantInput)
		if err != nil {
			return friendly(err, "Failed to save assistant configuration")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Assistant configuration saved (%s)\n", saved.ID)
		return nil
	},
}

func requireAdmin(a *App) error {
	if _, err := a.RequireUser(); err != nil {
		return err
	}
	if a.Session.Role() != session.RoleAdmin {
		return fmt.Errorf("administrator access required: %w", apperrors.ErrUnauthorized)
	}
	return nil
}

func init() {
	emailGetCmd.Flags().StringVarP(&emailOutput, "output", "o", outputTable, "output format: table or json")

	emailSetCmd.Flags().StringVar(&emailInput.SMTPHost, "host", "", "SMTP host")
	emailSetCmd.Flags().StringVar(&emailInput.SMTPPort, "port", "", "SMTP port (default 587)")
	emailSetCmd.Flags().StringVar(&emailInput.SMTPUsername, "username", "", "SMTP username")
	emailSetCmd.Flags().StringVar(&emailInput.SMTPPassword, "password", "", "SMTP password")
	emailSetCmd.Flags().StringVar(&emailInput.FromEmail, "from-email", "", "sender address")
	emailSetCmd.Flags().StringVar(&emailInput.FromName, "from-name", "", "sender name")
	emailSetCmd.Flags().StringVar(&emailInput.Encryption, "encryption", "", "tls, ssl or none (default tls)")

	emailTestCmd.Flags().StringVar(&testEmail.To, "to", "", "recipient")
	emailTestCmd.Flags().StringVar(&testEmail.Subject, "subject", "", "subject")
	emailTestCmd.Flags().StringVar(&testEmail.Message, "message", "", "message body")

	generalCmd.Flags().StringVarP(&generalOutput, "output", "o", outputTable, "output format: table or json")

	assistantSetCmd.Flags().StringVar(&assistantInput.ID, "id", "", "configuration to update (default: create)")
	assistantSetCmd.Flags().StringVar(&assistantInput.CompanyName, "company", "", "company name the assistant speaks for")
	assistantSetCmd.Flags().StringVar(&assistantInput.CompanyEmail, "email", "", "company email")
	assistantSetCmd.Flags().StringVar(&assistantInput.Instructions, "instructions", "", "instructions for the assistant")

	emailCmd.AddCommand(emailGetCmd, emailSetCmd, emailTestCmd)
	assistantCmd.AddCommand(assistantListCmd, assistantSetCmd)
	settingsCmd.AddCommand(emailCmd, generalCmd, assistantCmd)
	rootCmd.AddCommand(settingsCmd)
}
