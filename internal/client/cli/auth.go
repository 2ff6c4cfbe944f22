package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/botdesk/botdesk/internal/client/api"
	"github.com/botdesk/botdesk/internal/client/session"
	"github.com/botdesk/botdesk/pkg/utils"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in, sign out and manage your account",
}

var (
	authEmail    string
	authPassword string
	authName     string
	authConfirm  string
	authToken    string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Sign in with email and password. Missing values are prompted for;
the password can also come from BOTDESK_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if authPassword == "" {
			authPassword = os.Getenv("BOTDESK_PASSWORD")
		}
		p := newPrompter(cmd)
		if err := p.fill(promptField{"Email", &authEmail}, promptField{"Password", &authPassword}); err != nil {
			return err
		}

		user, err := a.Session.Login(cmd.Context(), authEmail, authPassword)
		if err != nil {
			return friendly(err, "Login failed")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Signed in as %s (%s)\n", displayName(*user), user.Email)
		printNavigation(cmd.OutOrStdout(), session.RoleOf(*user))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := app(cmd).Session.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if _, err := a.RequireUser(); err != nil {
			return err
		}
		user, err := a.Session.Validate(cmd.Context())
		if err != nil {
			return friendly(err, "Session check failed")
		}

		out := cmd.OutOrStdout()
		role := session.RoleOf(*user)
		fmt.Fprintf(out, "Name:     %s\n", displayName(*user))
		fmt.Fprintf(out, "Email:    %s\n", user.Email)
		fmt.Fprintf(out, "Role:     %s\n", role)
		fmt.Fprintf(out, "Verified: %s\n", yesNo(user.IsVerified))
		if user.OrganizationID != "" {
			fmt.Fprintf(out, "Org ID:   %s\n", user.OrganizationID)
		}
		if exp, ok, err := session.TokenExpiry(a.Session.Token()); err == nil && ok {
			fmt.Fprintf(out, "Expires:  %s\n", exp.Local().Format("2006-01-02 15:04"))
		}
		printNavigation(out, role)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p := newPrompter(cmd)
		if err := p.fill(
			promptField{"Full name", &authName},
			promptField{"Email", &authEmail},
			promptField{"Password", &authPassword},
			promptField{"Confirm password", &authConfirm},
		); err != nil {
			return err
		}
		if err := utils.ValidateRegistration(utils.RegistrationInput{
			Name: authName, Email: authEmail, Password: authPassword, ConfirmPassword: authConfirm,
		}); err != nil {
			return friendly(err, "Invalid registration")
		}

		msg, err := app(cmd).Client.Register(cmd.Context(), api.Registration{
			Name: authName, Email: authEmail, Password: authPassword,
		})
		if err != nil {
			return friendly(err, "Registration failed")
		}
		printMessage(cmd.OutOrStdout(), msg, "Account created. Check your email to verify your address.")
		return nil
	},
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Email a password reset link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := newPrompter(cmd).fill(promptField{"Email", &authEmail}); err != nil {
			return err
		}
		if err := utils.ValidateEmail(authEmail); err != nil {
			return friendly(err, "Invalid email")
		}
		msg, err := app(cmd).Client.ForgotPassword(cmd.Context(), authEmail)
		if err != nil {
			return friendly(err, "Failed to send reset link")
		}
		printMessage(cmd.OutOrStdout(), msg, "If the account exists, a reset link is on its way.")
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password with the emailed token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := newPrompter(cmd).fill(
			promptField{"Reset token", &authToken},
			promptField{"New password", &authPassword},
			promptField{"Confirm password", &authConfirm},
		); err != nil {
			return err
		}
		if err := utils.ValidatePasswordReset(authPassword, authConfirm); err != nil {
			return friendly(err, "Invalid password")
		}
		msg, err := app(cmd).Client.ResetPassword(cmd.Context(), authToken, authPassword)
		if err != nil {
			return friendly(err, "Failed to reset password")
		}
		printMessage(cmd.OutOrStdout(), msg, "Password updated. You can sign in now.")
		return nil
	},
}

var verifyEmailCmd = &cobra.Command{
	Use:   "verify-email",
	Short: "Confirm your email address with the emailed token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := newPrompter(cmd).fill(promptField{"Verification token", &authToken}); err != nil {
			return err
		}
		msg, err := app(cmd).Client.VerifyEmail(cmd.Context(), authToken)
		if err != nil {
			return friendly(err, "Verification failed")
		}
		printMessage(cmd.OutOrStdout(), msg, "Email verified.")
		return nil
	},
}

var resendVerificationCmd = &cobra.Command{
	Use:   "resend-verification",
	Short: "Send another verification email",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := newPrompter(cmd).fill(promptField{"Email", &authEmail}); err != nil {
			return err
		}
		if err := utils.ValidateEmail(authEmail); err != nil {
			return friendly(err, "Invalid email")
		}
		msg, err := app(cmd).Client.ResendVerification(cmd.Context(), authEmail)
		if err != nil {
			return friendly(err, "Failed to resend verification email")
		}
		printMessage(cmd.OutOrStdout(), msg, "Verification email sent.")
		return nil
	},
}

var googleCmd = &cobra.Command{
	Use:   "google",
	Short: "Sign in with Google",
	Long: `Without --token, prints the URL that starts Google sign-in in a browser.
With --token, stores the token the browser flow returned.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a := app(cmd)
		if authToken == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to continue with Google:\n  %s\n", a.Client.GoogleSignInURL())
			fmt.Fprintln(cmd.OutOrStdout(), "Then run: botdesk auth google --token <token>")
			return nil
		}
		user, err := a.Session.SignInWithToken(cmd.Context(), authToken)
		if err != nil {
			return friendly(err, "Google sign-in failed")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Signed in as %s (%s)\n", displayName(*user), user.Email)
		printNavigation(cmd.OutOrStdout(), session.RoleOf(*user))
		return nil
	},
}

func displayName(u api.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func printMessage(w io.Writer, msg, fallback string) {
	if msg == "" {
		msg = fallback
	}
	fmt.Fprintf(w, "✓ %s\n", msg)
}

func printNavigation(w io.Writer, role session.Role) {
	nav := session.NavigationFor(role)
	fmt.Fprintf(w, "\n%s · %s\n", nav.Team.Name, nav.Team.Subtitle)
	for _, items := range [][]session.NavItem{nav.Sections, nav.Settings} {
		for _, it := range items {
			fmt.Fprintf(w, "  %-20s %s\n", it.Title, it.Command)
		}
	}
}

func init() {
	loginCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "account password")

	registerCmd.Flags().StringVar(&authName, "name", "", "full name")
	registerCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&authPassword, "password", "", "password")
	registerCmd.Flags().StringVar(&authConfirm, "confirm-password", "", "password again")

	forgotPasswordCmd.Flags().StringVar(&authEmail, "email", "", "account email")

	resetPasswordCmd.Flags().StringVar(&authToken, "token", "", "reset token from the email")
	resetPasswordCmd.Flags().StringVar(&authPassword, "password", "", "new password")
	resetPasswordCmd.Flags().StringVar(&authConfirm, "confirm-password", "", "new password again")

	verifyEmailCmd.Flags().StringVar(&authToken, "token", "", "verification token from the email")
	resendVerificationCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	googleCmd.Flags().StringVar(&authToken, "token", "", "token returned by the Google flow")

	authCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd, forgotPasswordCmd,
		resetPasswordCmd, verifyEmailCmd, resendVerificationCmd, googleCmd)
	rootCmd.AddCommand(authCmd)
}
