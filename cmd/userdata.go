package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nick/por-s3/internal/config"
	"github.com/nick/por-s3/internal/userdata"
)

var userdataProofDir string

var userdataCmd = &cobra.Command{
	Use:   "userdata",
	Short: "Render the bootstrap script for a proof directory",
	Long: `Prints the bootstrap script the launcher would embed in a launch
request for the given proof directory, using the current launch
configuration. Useful for reviewing what a new instance will execute.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadLaunchConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}

		script, err := userdata.Render(userdata.Params{
			Bucket:           cfg.Bucket,
			ProofDir:         userdataProofDir,
			Region:           cfg.Region,
			UserProofsAlways: true,
			Mode:             cfg.BootstrapMode,
			AccountID:        cfg.AccountID,
			Repository:       cfg.ECRRepository,
		})
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), script)
		return nil
	},
}

func init() {
	userdataCmd.Flags().StringVar(&userdataProofDir, "proof-dir", "", "proof directory to render for")
	rootCmd.AddCommand(userdataCmd)
}
