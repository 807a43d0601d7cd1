package cmd

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nick/por-s3/internal/compute"
	"github.com/nick/por-s3/internal/config"
	"github.com/nick/por-s3/internal/pipeline"
	"github.com/nick/por-s3/internal/prover"
	"github.com/nick/por-s3/internal/storage"
)

var (
	runBucket        string
	runProofDir      string
	runRegion        string
	runWorkspace     string
	runProverBinary  string
	runUserProofs    bool
	runSelfTerminate bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the on-instance proof pipeline",
	Long: `Downloads the ledger for one proof directory, generates proofs,
conditionally generates per-user inclusion proofs, and publishes the
artifact set back to object storage. Exits nonzero on the first
failing stage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadRunConfig()
		applyRunFlags(cmd, &cfg)
		logger := log.With("component", "pipeline", "proof_dir", cfg.ProofDir)

		// Self-termination is resolved up front and deferred so every
		// exit path of the pipeline, success or failure, releases the
		// instance.
		if runSelfTerminate {
			instanceID, err := compute.SelfInstanceID(cmd.Context())
			if err != nil {
				return err
			}
			ec2Launcher, err := compute.NewEC2Launcher(cmd.Context(), cfg.Region)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				logger.Info("terminating instance", "instance_id", instanceID)
				if err := ec2Launcher.Terminate(ctx, instanceID); err != nil {
					logger.Error("self-termination failed", "err", err)
				}
			}()
		}

		store, err := storage.NewS3Store(cmd.Context(), storage.S3Config{
			Endpoint:   cfg.Endpoint,
			BucketName: cfg.Bucket,
			Region:     cfg.Region,
		})
		if err != nil {
			return err
		}

		runner := pipeline.NewRunner(cfg, store, prover.NewBinaryProver(cfg.ProverBinary), logger)
		if err := runner.Run(cmd.Context()); err != nil {
			if kind, ok := pipeline.KindOf(err); ok {
				logger.Error("run failed", "kind", string(kind), "err", err)
			}
			return err
		}
		return nil
	},
}

// applyRunFlags overrides environment-sourced settings with any flags
// the operator set explicitly.
func applyRunFlags(cmd *cobra.Command, cfg *config.RunConfig) {
	if cmd.Flags().Changed("bucket") {
		cfg.Bucket = runBucket
	}
	if cmd.Flags().Changed("proof-dir") {
		cfg.ProofDir = runProofDir
	}
	if cmd.Flags().Changed("region") {
		cfg.Region = runRegion
	}
	if cmd.Flags().Changed("workspace") {
		cfg.Workspace = runWorkspace
	}
	if cmd.Flags().Changed("prover-bin") {
		cfg.ProverBinary = runProverBinary
	}
	if cmd.Flags().Changed("always-user-proofs") {
		cfg.UserProofsAlways = runUserProofs
	}
}

func init() {
	runCmd.Flags().StringVar(&runBucket, "bucket", "", "storage bucket (overrides S3_BUCKET)")
	runCmd.Flags().StringVar(&runProofDir, "proof-dir", "", "proof directory (overrides PROOF_DIR)")
	runCmd.Flags().StringVar(&runRegion, "region", "", "target region (overrides TARGET_REGION)")
	runCmd.Flags().StringVar(&runWorkspace, "workspace", "", "local working directory (overrides WORKSPACE)")
	runCmd.Flags().StringVar(&runProverBinary, "prover-bin", "", "prover binary path (overrides PROVER_BIN)")
	runCmd.Flags().BoolVar(&runUserProofs, "always-user-proofs", true, "always generate user inclusion proofs (overrides USER_PROOFS_ALWAYS)")
	runCmd.Flags().BoolVar(&runSelfTerminate, "self-terminate", false, "terminate this instance when the run concludes")
	rootCmd.AddCommand(runCmd)
}
