package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Default values for the optional launch settings. S3_BUCKET,
// AWS_ACCOUNT_ID and TARGET_REGION have no defaults and must be set.
const (
	DefaultAMIID           = "ami-0de716d6197524dd9" // Amazon Linux 2023, x86_64
	DefaultInstanceType    = "r6i.4xlarge"
	DefaultInstanceProfile = "por-proof-runner"
	DefaultECRRepository   = "por-runner"
	DefaultFunctionName    = "por-launch"
	DefaultRegion          = "us-east-1"
	DefaultWorkspace       = "/workspace"
	DefaultProverBinary    = "plonky2_por"
)

// LaunchConfig holds every setting the launch decision service reads.
// It is built once at process start and passed read-only from there on.
type LaunchConfig struct {
	AMIID           string
	InstanceType    string
	InstanceProfile string
	KeyName         string // optional; omitted from the launch request when empty
	Bucket          string
	AccountID       string
	Region          string
	ECRRepository   string
	FunctionName    string
	BootstrapMode   string // "build" or "image"
	DatabaseDSN     string // optional; enables the proof-run audit table
	RedisAddr       string // optional; enables the in-flight run registry
}

// RunConfig holds every setting the on-instance run pipeline reads.
type RunConfig struct {
	Bucket           string
	ProofDir         string
	Region           string
	Workspace        string
	ProverBinary     string
	UserProofsAlways bool
	Endpoint         string // optional S3-compatible endpoint override
}

var loadEnvOnce sync.Once

// loadEnvFile loads a .env file once, if one is present next to the
// process. Missing files are fine; real deployments use the environment.
func loadEnvFile() {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Debug("no .env file found, using process environment")
		}
	})
}

// LoadLaunchConfig assembles the launch configuration from the
// environment. It does not validate; callers validate before launching
// so that a misconfigured handler fails without side effects.
func LoadLaunchConfig() LaunchConfig {
	loadEnvFile()
	return LaunchConfig{
		AMIID:           getEnv("AMI_ID", DefaultAMIID),
		InstanceType:    getEnv("INSTANCE_TYPE", DefaultInstanceType),
		InstanceProfile: getEnv("IAM_INSTANCE_PROFILE", DefaultInstanceProfile),
		KeyName:         getEnv("EC2_KEY_NAME", ""),
		Bucket:          getEnv("S3_BUCKET", ""),
		AccountID:       getEnv("AWS_ACCOUNT_ID", ""),
		Region:          getEnv("TARGET_REGION", ""),
		ECRRepository:   getEnv("ECR_REPOSITORY", DefaultECRRepository),
		FunctionName:    getEnv("FUNCTION_NAME", DefaultFunctionName),
		BootstrapMode:   getEnv("BOOTSTRAP_MODE", "build"),
		DatabaseDSN:     getEnv("DATABASE_DSN", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
	}
}

// LoadRunConfig assembles the run-pipeline configuration from the
// environment. Command-line flags may override individual fields.
func LoadRunConfig() RunConfig {
	loadEnvFile()
	return RunConfig{
		Bucket:           getEnv("S3_BUCKET", ""),
		ProofDir:         getEnv("PROOF_DIR", ""),
		Region:           getEnv("TARGET_REGION", DefaultRegion),
		Workspace:        getEnv("WORKSPACE", DefaultWorkspace),
		ProverBinary:     getEnv("PROVER_BIN", DefaultProverBinary),
		UserProofsAlways: getBoolEnv("USER_PROOFS_ALWAYS", true),
		Endpoint:         getEnv("S3_ENDPOINT", ""),
	}
}

// MissingSettingsError reports which mandatory settings were absent.
type MissingSettingsError struct {
	Missing []string
}

func (e *MissingSettingsError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

// Validate checks the mandatory launch settings. A non-nil error means
// no launch may be attempted for the triggering event.
func (c LaunchConfig) Validate() error {
	var missing []string
	if c.Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if c.AccountID == "" {
		missing = append(missing, "AWS_ACCOUNT_ID")
	}
	if c.Region == "" {
		missing = append(missing, "TARGET_REGION")
	}
	if len(missing) > 0 {
		return &MissingSettingsError{Missing: missing}
	}
	if c.BootstrapMode != "build" && c.BootstrapMode != "image" {
		return fmt.Errorf("invalid BOOTSTRAP_MODE %q: must be build or image", c.BootstrapMode)
	}
	return nil
}

// Validate checks the settings the run pipeline cannot proceed without.
func (c RunConfig) Validate() error {
	var missing []string
	if c.Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if c.ProofDir == "" {
		missing = append(missing, "PROOF_DIR")
	}
	if len(missing) > 0 {
		return &MissingSettingsError{Missing: missing}
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn("unparseable boolean setting, using default", "key", key, "value", value)
		return defaultValue
	}
	return parsed
}
