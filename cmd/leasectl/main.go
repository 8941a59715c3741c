package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "leasectl",
		Short:         "Lease escrow command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts := bindGlobalFlags(rootCmd)

	rootCmd.AddCommand(
		tokenCmd(),
		propertyCmd(opts),
		agreementCmd(opts),
		disputeCmd(opts),
		ledgerCmd(opts),
		statementCmd(opts),
		platformCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
