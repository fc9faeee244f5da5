package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-auth-client/authapi"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.engine.Login(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("%s", a.engine.Snapshot().LastError)
			}
			printUser(cmd, a.engine.Snapshot())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")    //nolint:errcheck
	cmd.MarkFlagRequired("password") //nolint:errcheck
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.engine.Register(cmd.Context(), name, email, password); err != nil {
				return fmt.Errorf("%s", a.engine.Snapshot().LastError)
			}
			printUser(cmd, a.engine.Snapshot())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")    //nolint:errcheck
	cmd.MarkFlagRequired("password") //nolint:errcheck
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			a.engine.Logout(cmd.Context())
			cmd.Println("logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user, recovering the session if possible",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			printUser(cmd, s)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session status without contacting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			s := a.engine.Snapshot()
			cmd.Printf("status: %s\n", s.Status)
			if s.AccessToken != "" {
				cmd.Println("access token: stored")
			} else {
				cmd.Println("access token: absent")
			}
			return nil
		},
	}
}

func newProfileCmd() *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and update the current user's profile",
	}

	var name string
	update := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, s, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			if !s.Authenticated() {
				return fmt.Errorf("not logged in")
			}
			updated, err := a.userSvc.UpdateProfile(cmd.Context(), authapi.UpdateProfileRequest{Name: name})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated: %s <%s>\n", updated.Name, updated.Email)
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "new display name")
	update.MarkFlagRequired("name") //nolint:errcheck

	show := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a profile (the current user's by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, s, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			if !s.Authenticated() {
				return fmt.Errorf("not logged in")
			}
			if len(args) == 1 {
				user, err := a.userSvc.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (id %s, role %s)\n", user.Name, user.Email, user.ID, user.Role)
				return nil
			}
			user, err := a.userSvc.Profile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (id %s, role %s)\n", user.Name, user.Email, user.ID, user.Role)
			return nil
		},
	}

	profile.AddCommand(update, show)
	return profile
}
