package cli

import (
	"github.com/dmitrijs2005/srpkeeper/internal/client/config"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "srpkeeper",
		Short:         "Log in to the todo service without ever sending your password",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.config.Resolve(cmd.Flags(), configPath); err != nil {
				return err
			}
			return app.open(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.close(cmd.Context())
		},
	}

	config.BindFlags(root.PersistentFlags(), app.config)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (json or yaml)")

	root.AddCommand(
		app.registerCommand(),
		app.loginCommand(),
		app.whoamiCommand(),
		app.logoutCommand(),
		app.pingCommand(),
		app.encryptCommand(),
		app.decryptCommand(),
	)
	return root
}
