// Package proofset names the artifacts of one proof-generation run and
// the storage layout they share. A run is scoped by its proof directory,
// the parent path of the ledger object that triggered it; every object
// the run reads or writes lives under that prefix.
package proofset

import (
	"path"
	"time"
)

const (
	// LedgerFileName is the input object every run starts from. Its
	// arrival triggers a run; it is never republished.
	LedgerFileName = "private_ledger.json"

	// MerkleTreeFileName and FinalProofFileName are the primary outputs
	// of the proving step. Both must exist for a run to publish.
	MerkleTreeFileName = "merkle_tree.json"
	FinalProofFileName = "final_proof.json"

	// ArchiveFileName bundles the two primary outputs for public
	// download.
	ArchiveFileName = "proofs.zip"

	// ManifestFileName is written last during publish and acts as the
	// commit marker for the artifact set.
	ManifestFileName = "manifest.json"
)

// IsLedgerKey reports whether an object key names a ledger upload,
// either at the bucket root or inside a proof directory.
func IsLedgerKey(key string) bool {
	return key != "" && path.Base(key) == LedgerFileName
}

// ProofDirFromKey derives the run's proof directory from the triggering
// object key: the parent path of the key, empty for bucket-root keys.
func ProofDirFromKey(key string) string {
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// ObjectKey joins a proof directory and an artifact name into the full
// object key, handling the bucket-root case.
func ObjectKey(proofDir, name string) string {
	if proofDir == "" {
		return name
	}
	return proofDir + "/" + name
}

// ManifestEntry describes one published artifact.
type ManifestEntry struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Manifest is the last object written during publish. Readers that want
// a consistent view of a run's artifacts wait for it.
type Manifest struct {
	ProofDir           string          `json:"proof_dir"`
	CompletedAt        time.Time       `json:"completed_at"`
	IncludesUserProofs bool            `json:"includes_user_proofs"`
	Artifacts          []ManifestEntry `json:"artifacts"`
}
