// Package cli implements the authcli command tree. Commands that act on a
// logged-in user run the session bootstrap first, so protected work is gated
// on the recovery outcome the same way a UI would gate its protected routes.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-auth-client/session"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "authcli",
		Short:         "Session manager for the auth backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newStatusCmd(),
		newProfileCmd(),
	)
	return root
}

// bootstrap creates the app and runs session recovery once, returning the
// resolved session. A failed recovery is not an error: the caller just sees a
// logged-out session.
func bootstrap(cmd *cobra.Command) (*app, session.Session, error) {
	a, err := newApp()
	if err != nil {
		return nil, session.Session{}, err
	}
	return a, a.engine.Bootstrap(cmd.Context()), nil
}

func printUser(cmd *cobra.Command, s session.Session) {
	if !s.Authenticated() {
		cmd.Println("not logged in")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (id %s, role %s)\n", s.User.Name, s.User.Email, s.User.ID, s.User.Role)
}
