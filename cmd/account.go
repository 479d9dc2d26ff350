package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"handoff-client/internal/models"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompt reads one line from in when value is empty.
func prompt(cmd *cobra.Command, in *bufio.Reader, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret is prompt without echo when stdin is a terminal.
func promptSecret(cmd *cobra.Command, in *bufio.Reader, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return prompt(cmd, in, label, value)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return string(secret), nil
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with your university email",
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if email, err = prompt(cmd, in, "Email", email); err != nil {
				return err
			}
			if password, err = promptSecret(cmd, in, "Password", password); err != nil {
				return err
			}

			if err := a.auth.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			user, _ := a.auth.User()
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", user.FullName)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			user, ok := a.auth.User()
			if !ok {
				fmt.Fprintln(out, "Not signed in")
				return nil
			}
			fmt.Fprintf(out, "Name:       %s\n", user.FullName)
			fmt.Fprintf(out, "Varsity ID: %s\n", user.VarsityID)
			fmt.Fprintf(out, "Email:      %s\n", user.Email)
			fmt.Fprintf(out, "Phone:      %s\n", user.PhoneNumber)
			fmt.Fprintf(out, "Role:       %s\n", user.Role)
			if exp, ok := a.auth.TokenExpiry(); ok {
				fmt.Fprintf(out, "Session expires %s\n", exp.Local().Format(time.RFC1123))
			}
			return nil
		}),
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var form models.RegisterForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; a verification code is emailed",
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if form.Password, err = promptSecret(cmd, in, "Password", form.Password); err != nil {
				return err
			}
			if form.ConfirmPassword, err = promptSecret(cmd, in, "Confirm password", form.ConfirmPassword); err != nil {
				return err
			}

			res, err := a.auth.Register(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			fmt.Fprintf(cmd.OutOrStdout(), "Run: handoff verify-email --email %s --code <code>\n", res.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&form.VarsityID, "varsity-id", "", "university ID")
	cmd.Flags().StringVar(&form.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&form.Email, "email", "", "university email")
	cmd.Flags().StringVar(&form.PhoneNumber, "phone", "", "phone number (optional)")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "password again (prompted when omitted)")
	return cmd
}

func newVerifyEmailCmd(a *app) *cobra.Command {
	var email, code string
	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Confirm registration with the emailed code",
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			if err := a.auth.VerifyEmail(cmd.Context(), email, code); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Email verified. You can now log in.")
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "registered email")
	cmd.Flags().StringVar(&code, "code", "", "6-digit code")
	return cmd
}

func newPasswordCmd(a *app) *cobra.Command {
	var email, code string
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Recover a forgotten password",
	}
	cmd.PersistentFlags().StringVar(&email, "email", "", "account email")

	forgot := &cobra.Command{
		Use:   "forgot",
		Short: "Email a reset code",
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			if err := a.auth.ForgotPassword(cmd.Context(), email); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "A reset code has been sent to", email)
			return nil
		}),
	}

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check a reset code",
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			if err := a.auth.VerifyResetCode(cmd.Context(), email, code); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Code accepted")
			return nil
		}),
	}
	verify.Flags().StringVar(&code, "code", "", "6-digit code")

	var password, confirm string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password",
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if password, err = promptSecret(cmd, in, "New password", password); err != nil {
				return err
			}
			if confirm, err = promptSecret(cmd, in, "Confirm password", confirm); err != nil {
				return err
			}

			err = a.auth.ResetPassword(cmd.Context(), models.ResetPasswordForm{
				Email:           email,
				Code:            code,
				Password:        password,
				ConfirmPassword: confirm,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password updated. You can now log in.")
			return nil
		}),
	}
	reset.Flags().StringVar(&code, "code", "", "verified 6-digit code")
	reset.Flags().StringVar(&password, "password", "", "new password (prompted when omitted)")
	reset.Flags().StringVar(&confirm, "confirm-password", "", "new password again (prompted when omitted)")

	cmd.AddCommand(forgot, verify, reset)
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Edit your profile",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set-phone <number>",
		Short: "Change the phone number buyers see",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			phone := args[0]
			user, err := a.auth.UpdateProfile(cmd.Context(), models.ProfileUpdate{PhoneNumber: &phone})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Phone number set to %s\n", user.PhoneNumber)
			return nil
		}),
	})
	return cmd
}
