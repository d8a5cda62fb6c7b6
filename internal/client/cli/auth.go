package cli

import (
	"fmt"

	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/spf13/cobra"
)

func (a *App) promptEmail(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(a.reader, "Enter email", a.out)
}

func (a *App) registerCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register [email]",
		Short: "Create an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := a.promptEmail(args)
			if err != nil {
				return err
			}

			password, err := getPassword(a.out, "Choose password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			confirm, err := getPassword(a.out, "Repeat password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(confirm)
			if string(password) != string(confirm) {
				return fmt.Errorf("passwords do not match")
			}

			user, err := a.authService.Register(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}

			a.logger.Debug(cmd.Context(), "registered", "account_id", user.ID)
			fmt.Fprintf(a.out, "Registered %s\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (defaults to the part of the email before @)")
	return cmd
}

func (a *App) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login [email]",
		Short: "Log in with SRP and cache the session token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := a.promptEmail(args)
			if err != nil {
				return err
			}

			password, err := getPassword(a.out, "Password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			session, err := a.authService.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			a.logger.Debug(cmd.Context(), "logged in", "account_id", session.User.ID)
			fmt.Fprintf(a.out, "Logged in as %s (server verified)\n", session.User.Email)
			return nil
		},
	}
}

func (a *App) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account of the cached login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.authService.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\t%s\t%s\n", user.ID, user.Email, user.Name)
			return nil
		},
	}
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the cached login and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authService.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *App) pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authService.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "OK")
			return nil
		},
	}
}
