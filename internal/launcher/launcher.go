// Package launcher turns ledger upload notifications into compute
// launch requests: one instance per triggering object, no retries, no
// side effects when configuration is incomplete.
package launcher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nick/por-s3/internal/compute"
	"github.com/nick/por-s3/internal/config"
	"github.com/nick/por-s3/internal/models"
	"github.com/nick/por-s3/internal/proofset"
	"github.com/nick/por-s3/internal/registry"
	"github.com/nick/por-s3/internal/repository"
	"github.com/nick/por-s3/internal/userdata"
)

// PurposeTag marks launched instances for operator discoverability.
const PurposeTag = "proof-generation"

// registryTTL bounds how long a run is considered in flight when
// nothing reports back.
const registryTTL = 6 * time.Hour

// UploadEvent is one storage notification: an object was created.
type UploadEvent struct {
	Bucket    string
	Key       string
	EventTime time.Time
}

// Service is the launch decision service. The repository and registry
// are optional; a nil value disables that concern.
type Service struct {
	cfg      config.LaunchConfig
	compute  compute.InstanceLauncher
	runs     repository.ProofRunRepository
	registry *registry.RunRegistry
	log      *log.Logger
}

func NewService(cfg config.LaunchConfig, launcher compute.InstanceLauncher, runs repository.ProofRunRepository, reg *registry.RunRegistry, logger *log.Logger) *Service {
	return &Service{
		cfg:      cfg,
		compute:  launcher,
		runs:     runs,
		registry: reg,
		log:      logger,
	}
}

// HandleUpload processes one upload notification. Keys that do not
// name a ledger file are ignored and return an empty instance ID.
// Configuration errors fail the invocation before any launch attempt;
// redelivery of the same event may launch again, which is accepted.
func (s *Service) HandleUpload(ctx context.Context, ev UploadEvent) (string, error) {
	if !proofset.IsLedgerKey(ev.Key) {
		s.log.Debug("ignoring non-ledger object", "key", ev.Key)
		return "", nil
	}

	if err := s.cfg.Validate(); err != nil {
		return "", fmt.Errorf("launch configuration: %w", err)
	}

	proofDir := proofset.ProofDirFromKey(ev.Key)

	if s.registry != nil {
		if rec, ok := s.registry.InFlight(ctx, proofDir); ok {
			s.log.Warn("run already in flight for proof directory, launching anyway",
				"proof_dir", proofDir, "instance_id", rec.InstanceID)
		}
	}

	script, err := userdata.Render(userdata.Params{
		Bucket:           ev.Bucket,
		ProofDir:         proofDir,
		Region:           s.cfg.Region,
		UserProofsAlways: true,
		Mode:             s.cfg.BootstrapMode,
		AccountID:        s.cfg.AccountID,
		Repository:       s.cfg.ECRRepository,
	})
	if err != nil {
		return "", err
	}

	instanceID, err := s.compute.Launch(ctx, compute.LaunchSpec{
		ImageID:         s.cfg.AMIID,
		InstanceType:    s.cfg.InstanceType,
		InstanceProfile: s.cfg.InstanceProfile,
		KeyName:         s.cfg.KeyName,
		UserData:        script,
		Tags: map[string]string{
			"purpose":   PurposeTag,
			"proof-dir": proofDir,
		},
	})
	if err != nil {
		return "", fmt.Errorf("launch instance for %s: %w", ev.Key, err)
	}

	s.log.Info("launched instance", "instance_id", instanceID, "key", ev.Key)
	s.record(ctx, ev.Bucket, proofDir, instanceID)
	return instanceID, nil
}

// record persists the launch to the optional audit stores. Both are
// best effort: a failed write must not fail a launch that already
// happened.
func (s *Service) record(ctx context.Context, bucket, proofDir, instanceID string) {
	if s.registry != nil {
		if err := s.registry.Mark(ctx, proofDir, instanceID, registryTTL); err != nil {
			s.log.Warn("run registry update failed", "err", err)
		}
	}
	if s.runs != nil {
		_, err := s.runs.Create(ctx, &models.ProofRun{
			ID:         uuid.New(),
			Bucket:     bucket,
			ProofDir:   proofDir,
			InstanceID: instanceID,
			State:      models.RunStateLaunched,
		})
		if err != nil {
			s.log.Warn("audit record write failed", "err", err)
		}
	}
}

// HandleS3Event processes every record of an S3 notification event and
// returns the launched instance IDs. The first failing record aborts
// the batch.
func (s *Service) HandleS3Event(ctx context.Context, event events.S3Event) ([]string, error) {
	var launched []string
	for _, record := range event.Records {
		// S3 notification records URL-encode the object key.
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return launched, fmt.Errorf("decode object key %q: %w", record.S3.Object.Key, err)
		}

		instanceID, err := s.HandleUpload(ctx, UploadEvent{
			Bucket:    record.S3.Bucket.Name,
			Key:       key,
			EventTime: record.EventTime,
		})
		if err != nil {
			return launched, err
		}
		if instanceID != "" {
			launched = append(launched, instanceID)
		}
	}
	return launched, nil
}
