// Package pipeline implements the on-instance run: download the ledger,
// generate proofs, conditionally generate per-user inclusion proofs,
// and publish the artifact set back next to the input. The stages run
// strictly in order and the first failure aborts the run.
package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"

	"github.com/nick/por-s3/internal/config"
	"github.com/nick/por-s3/internal/proofset"
	"github.com/nick/por-s3/internal/prover"
	"github.com/nick/por-s3/internal/storage"
	"github.com/nick/por-s3/internal/utils"
)

// Clock supplies the current time. Injected so the midnight window
// branch is testable at its boundaries.
type Clock func() time.Time

// Runner executes one proof-generation run.
type Runner struct {
	cfg    config.RunConfig
	store  storage.ObjectStore
	prover prover.Prover
	now    Clock
	log    *log.Logger
}

// NewRunner builds a Runner with the real wall clock.
func NewRunner(cfg config.RunConfig, store storage.ObjectStore, p prover.Prover, logger *log.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		store:  store,
		prover: p,
		now:    time.Now,
		log:    logger,
	}
}

// WithClock overrides the time source.
func (r *Runner) WithClock(c Clock) *Runner {
	r.now = c
	return r
}

// Run executes the pipeline stages in order. The returned error, if
// any, is a *Failure tagged with the stage kind that aborted the run.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.cfg.Validate(); err != nil {
		return &Failure{Kind: KindConfiguration, Err: err}
	}

	if err := resetWorkspace(r.cfg.Workspace); err != nil {
		return failf(KindConfiguration, "prepare workspace %s: %w", r.cfg.Workspace, err)
	}

	if err := r.download(ctx); err != nil {
		return err
	}

	if err := r.prove(ctx); err != nil {
		return err
	}

	includeUserProofs := r.cfg.UserProofsAlways || inInclusionWindow(r.now())
	if includeUserProofs {
		r.log.Info("generating user inclusion proofs")
		if err := r.prover.ProveInclusion(ctx, r.cfg.Workspace); err != nil {
			return failf(KindProve, "inclusion proof generation: %w", err)
		}
	} else {
		r.log.Info("skipping user inclusion proofs", "always", r.cfg.UserProofsAlways)
	}

	if err := r.publish(ctx, includeUserProofs); err != nil {
		return failf(KindPublish, "publish artifacts: %w", err)
	}

	r.log.Info("proof run completed", "proof_dir", r.cfg.ProofDir)
	return nil
}

// resetWorkspace ensures the working area exists and starts empty. The
// directory itself is kept: on-instance it is a tmpfs mountpoint.
func resetWorkspace(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) download(ctx context.Context) error {
	key := proofset.ObjectKey(r.cfg.ProofDir, proofset.LedgerFileName)
	dest := filepath.Join(r.cfg.Workspace, proofset.LedgerFileName)

	// The object may be gone again by the time a replayed notification
	// gets here; check before transferring.
	exists, err := r.store.ObjectExists(ctx, key)
	if err == nil && !exists {
		return failf(KindDownload, "ledger object %s does not exist", key)
	}

	r.log.Info("downloading ledger", "key", key)
	if err := r.store.DownloadToFile(ctx, key, dest); err != nil {
		return failf(KindDownload, "fetch %s: %w", key, err)
	}

	// The fetch must yield a readable, non-empty file before proving
	// starts. Zero-length counts as a failed fetch, deliberately
	// stricter than bare existence: an empty ledger has nothing to
	// prove.
	info, err := os.Stat(dest)
	if err != nil || info.Size() == 0 {
		return failf(KindDownload, "ledger %s not readable after download", dest)
	}
	return nil
}

func (r *Runner) prove(ctx context.Context) error {
	r.log.Info("generating proofs")
	if err := r.prover.Prove(ctx, r.cfg.Workspace); err != nil {
		return failf(KindProve, "proof generation: %w", err)
	}

	for _, name := range []string{proofset.MerkleTreeFileName, proofset.FinalProofFileName} {
		if _, err := os.Stat(filepath.Join(r.cfg.Workspace, name)); err != nil {
			return failf(KindProve, "proof generation did not produce %s", name)
		}
	}
	return nil
}

// inInclusionWindow reports whether the UTC time of day falls in the
// wrap-around window [23:55, 00:05] inclusive.
func inInclusionWindow(t time.Time) bool {
	utc := t.UTC()
	hhmm := utc.Hour()*100 + utc.Minute()
	return hhmm >= 2355 || hhmm <= 5
}

// publish uploads every workspace artifact except the input ledger,
// then the public archive, then the manifest. The manifest goes last so
// readers can treat its presence as the commit marker for the set.
func (r *Runner) publish(ctx context.Context, includesUserProofs bool) error {
	if err := r.buildArchive(); err != nil {
		return err
	}

	excluded := map[string]bool{
		proofset.LedgerFileName:   true,
		proofset.ArchiveFileName:  true, // uploaded separately, with public read
		proofset.ManifestFileName: true,
	}

	var entries []proofset.ManifestEntry
	err := filepath.WalkDir(r.cfg.Workspace, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(r.cfg.Workspace, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if excluded[rel] {
			return nil
		}

		entry, err := r.uploadArtifact(ctx, rel, p, false)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return err
	}

	archivePath := filepath.Join(r.cfg.Workspace, proofset.ArchiveFileName)
	archiveEntry, err := r.uploadArtifact(ctx, proofset.ArchiveFileName, archivePath, true)
	if err != nil {
		return err
	}
	entries = append(entries, archiveEntry)

	manifest := proofset.Manifest{
		ProofDir:           r.cfg.ProofDir,
		CompletedAt:        r.now().UTC(),
		IncludesUserProofs: includesUserProofs,
		Artifacts:          entries,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return r.store.UploadBytes(ctx, proofset.ObjectKey(r.cfg.ProofDir, proofset.ManifestFileName), data)
}

func (r *Runner) uploadArtifact(ctx context.Context, name, path string, publicRead bool) (proofset.ManifestEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return proofset.ManifestEntry{}, err
	}
	checksum, err := utils.ChecksumFile(path)
	if err != nil {
		return proofset.ManifestEntry{}, err
	}

	key := proofset.ObjectKey(r.cfg.ProofDir, name)
	r.log.Info("uploading artifact", "key", key, "size", info.Size())
	if err := r.store.UploadFile(ctx, key, path, publicRead); err != nil {
		return proofset.ManifestEntry{}, err
	}

	return proofset.ManifestEntry{
		Name:     name,
		Size:     info.Size(),
		Checksum: checksum,
	}, nil
}

// buildArchive zips the two primary proof outputs for public download.
func (r *Runner) buildArchive() error {
	archivePath := filepath.Join(r.cfg.Workspace, proofset.ArchiveFileName)
	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, name := range []string{proofset.MerkleTreeFileName, proofset.FinalProofFileName} {
		src, err := os.Open(filepath.Join(r.cfg.Workspace, name))
		if err != nil {
			w.Close()
			return err
		}
		dst, err := w.Create(name)
		if err != nil {
			src.Close()
			w.Close()
			return err
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			w.Close()
			return err
		}
		src.Close()
	}
	return w.Close()
}
