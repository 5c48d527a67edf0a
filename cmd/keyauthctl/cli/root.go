package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "keyauthctl",
		Short:         "Operate a keyauth service",
		Long:          "keyauthctl bootstraps credentials and exercises the challenge/response exchange against a running service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, same format as the server's")

	cmd.AddCommand(newCreateKeyCmd())
	cmd.AddCommand(newAuthFlowCmd())

	return cmd
}
