package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecoai-civic/ecoai-client/internal/navigation"
	"github.com/ecoai-civic/ecoai-client/internal/presence"
	"github.com/ecoai-civic/ecoai-client/internal/service"
)

type credentialFlags struct {
	username string
	email    string
	password string
}

func (f *credentialFlags) bind(cmd *cobra.Command, withEmail bool) {
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	if withEmail {
		cmd.Flags().StringVar(&f.email, "email", "", "account email")
		_ = cmd.MarkFlagRequired("email")
	}
}

func (f *credentialFlags) credentials() service.Credentials {
	return service.Credentials{Username: f.username, Email: f.email, Password: f.password}
}

func newLoginCommand(rt *runtime) *cobra.Command {
	flags := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.accounts.Login(cmd.Context(), rt.client, flags.credentials()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", flags.username)
			return nil
		},
	}
	flags.bind(cmd, false)
	return cmd
}

func newStaffLoginCommand(rt *runtime) *cobra.Command {
	flags := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "staff-login",
		Short: "Log in and confirm the account is staff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, err := rt.accounts.StaffLogin(cmd.Context(), rt.client, flags.credentials())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as staff member %s\n", identity.Username)
			return nil
		},
	}
	flags.bind(cmd, false)
	return cmd
}

func newSignupCommand(rt *runtime) *cobra.Command {
	flags := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log into it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.accounts.Signup(cmd.Context(), rt.client, flags.credentials()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created\n", flags.username)
			return nil
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec := navigation.NewRecorder()
			indicator := presence.NewIndicator(rt.store, rt.backends.Dispatcher, rec, rt.policy.LoginPath, nil)
			if err := indicator.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newRefreshCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.accounts.Refresh(cmd.Context(), rt.client); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Access token refreshed")
			return nil
		},
	}
}

func newWhoamiCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Ask the remote service who the stored credential belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity := rt.resolver.Resolve(cmd.Context())
			out := cmd.OutOrStdout()
			if !identity.Authenticated {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}
			role := "user"
			if identity.Staff {
				role = "staff"
			}
			fmt.Fprintf(out, "%s <%s> (%s)\n", identity.Username, identity.Email, role)
			return nil
		},
	}
}
