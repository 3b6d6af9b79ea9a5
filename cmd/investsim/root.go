package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "investsim",
		Short:         "Simulated securities market with price-target buy triggers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				_ = godotenv.Load(envFile)
				return
			}
			_ = godotenv.Load() // .env in the working directory, if any
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file")
	cmd.AddCommand(newServeCmd(), newWatchPricesCmd())
	return cmd
}
