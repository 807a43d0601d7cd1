package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears a variable for the duration of the test. t.Setenv
// registers the restore; Unsetenv removes the value it just set.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadLaunchConfigDefaults(t *testing.T) {
	unsetEnv(t, "AMI_ID", "INSTANCE_TYPE", "IAM_INSTANCE_PROFILE", "EC2_KEY_NAME",
		"ECR_REPOSITORY", "FUNCTION_NAME", "BOOTSTRAP_MODE")
	t.Setenv("S3_BUCKET", "reserves-bucket")
	t.Setenv("AWS_ACCOUNT_ID", "123456789012")
	t.Setenv("TARGET_REGION", "us-east-1")

	cfg := LoadLaunchConfig()
	assert.Equal(t, DefaultAMIID, cfg.AMIID)
	assert.Equal(t, DefaultInstanceType, cfg.InstanceType)
	assert.Equal(t, DefaultInstanceProfile, cfg.InstanceProfile)
	assert.Equal(t, DefaultECRRepository, cfg.ECRRepository)
	assert.Equal(t, DefaultFunctionName, cfg.FunctionName)
	assert.Equal(t, "build", cfg.BootstrapMode)
	assert.Empty(t, cfg.KeyName)
	require.NoError(t, cfg.Validate())
}

func TestLoadLaunchConfigOverrides(t *testing.T) {
	t.Setenv("AMI_ID", "ami-custom")
	t.Setenv("INSTANCE_TYPE", "c7i.8xlarge")
	t.Setenv("EC2_KEY_NAME", "ops-keypair")
	t.Setenv("S3_BUCKET", "reserves-bucket")
	t.Setenv("AWS_ACCOUNT_ID", "123456789012")
	t.Setenv("TARGET_REGION", "eu-west-1")

	cfg := LoadLaunchConfig()
	assert.Equal(t, "ami-custom", cfg.AMIID)
	assert.Equal(t, "c7i.8xlarge", cfg.InstanceType)
	assert.Equal(t, "ops-keypair", cfg.KeyName)
	assert.Equal(t, "eu-west-1", cfg.Region)
}

func TestLaunchConfigValidateMissingMandatory(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*LaunchConfig)
		wantMissing []string
	}{
		{"no bucket", func(c *LaunchConfig) { c.Bucket = "" }, []string{"S3_BUCKET"}},
		{"no account id", func(c *LaunchConfig) { c.AccountID = "" }, []string{"AWS_ACCOUNT_ID"}},
		{"no region", func(c *LaunchConfig) { c.Region = "" }, []string{"TARGET_REGION"}},
		{
			"all missing",
			func(c *LaunchConfig) { c.Bucket, c.AccountID, c.Region = "", "", "" },
			[]string{"S3_BUCKET", "AWS_ACCOUNT_ID", "TARGET_REGION"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LaunchConfig{
				Bucket:        "reserves-bucket",
				AccountID:     "123456789012",
				Region:        "us-east-1",
				BootstrapMode: "build",
			}
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var missing *MissingSettingsError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.wantMissing, missing.Missing)
		})
	}
}

func TestLaunchConfigValidateBootstrapMode(t *testing.T) {
	cfg := LaunchConfig{
		Bucket:        "reserves-bucket",
		AccountID:     "123456789012",
		Region:        "us-east-1",
		BootstrapMode: "container",
	}
	assert.Error(t, cfg.Validate())

	cfg.BootstrapMode = "image"
	assert.NoError(t, cfg.Validate())
}

func TestLoadRunConfigDefaults(t *testing.T) {
	unsetEnv(t, "TARGET_REGION", "WORKSPACE", "PROVER_BIN", "USER_PROOFS_ALWAYS")
	t.Setenv("S3_BUCKET", "reserves-bucket")
	t.Setenv("PROOF_DIR", "proof-runs/2024-01-15")

	cfg := LoadRunConfig()
	assert.Equal(t, DefaultRegion, cfg.Region)
	assert.Equal(t, DefaultWorkspace, cfg.Workspace)
	assert.Equal(t, DefaultProverBinary, cfg.ProverBinary)
	assert.True(t, cfg.UserProofsAlways, "user proofs default to always on")
	require.NoError(t, cfg.Validate())
}

func TestLoadRunConfigUserProofsFlag(t *testing.T) {
	t.Setenv("USER_PROOFS_ALWAYS", "false")
	assert.False(t, LoadRunConfig().UserProofsAlways)

	t.Setenv("USER_PROOFS_ALWAYS", "not-a-bool")
	assert.True(t, LoadRunConfig().UserProofsAlways, "unparseable value falls back to default")
}

func TestRunConfigValidate(t *testing.T) {
	cfg := RunConfig{Bucket: "reserves-bucket", ProofDir: "proof-runs/2024-01-15"}
	require.NoError(t, cfg.Validate())

	var missing *MissingSettingsError
	err := RunConfig{ProofDir: "proof-runs/2024-01-15"}.Validate()
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"S3_BUCKET"}, missing.Missing)

	err = RunConfig{Bucket: "reserves-bucket"}.Validate()
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"PROOF_DIR"}, missing.Missing)
}
