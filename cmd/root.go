package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "por-s3",
	Short: "Proof-of-reserves launch-and-run pipeline",
	Long: `por-s3 reacts to ledger uploads in object storage by launching one
ephemeral compute instance per upload, runs the proof-generation
workload on that instance, and publishes the resulting artifacts back
next to the input.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

// Execute runs the CLI and exits nonzero on any failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
