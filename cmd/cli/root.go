package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "acousticmatch",
		Short:         "Match audio clips against a library of reference recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.dbFlag, "db", "", "Path to the SQLite database file")
	flags.StringVar(&ctx.tempFlag, "temp", "", "Directory for temporary audio conversion files")
	flags.IntVar(&ctx.rateFlag, "rate", 0, "Sample rate every recording is decoded to")
	flags.IntVar(&ctx.factorFlag, "factor", 0, "Downsample factor used when matching")
	flags.StringVar(&ctx.logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newMatchCommand(ctx))
	rootCmd.AddCommand(newCompareCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newSnipCommand())
	rootCmd.AddCommand(newInfoCommand())

	return rootCmd
}
