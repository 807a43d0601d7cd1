// Package prover wraps the external proof-generation binary. The
// algorithm itself is opaque here; the pipeline only cares about which
// subcommand runs and whether the expected outputs appear afterwards.
package prover

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Prover runs the proof-generation workload against a workspace
// directory.
type Prover interface {
	// Prove generates the merkle tree and the final proof from the
	// ledger file in workDir.
	Prove(ctx context.Context, workDir string) error
	// ProveInclusion generates per-user inclusion proofs for all users
	// in one batched invocation.
	ProveInclusion(ctx context.Context, workDir string) error
}

type binaryProver struct {
	binary string
}

// NewBinaryProver returns a Prover that invokes the given binary in the
// workspace directory. The binary reads its input and writes its
// outputs relative to the working directory.
func NewBinaryProver(binary string) Prover {
	return &binaryProver{binary: binary}
}

func (p *binaryProver) Prove(ctx context.Context, workDir string) error {
	return p.invoke(ctx, workDir, "prove")
}

func (p *binaryProver) ProveInclusion(ctx context.Context, workDir string) error {
	return p.invoke(ctx, workDir, "prove-inclusion", "--all-batched")
}

func (p *binaryProver) invoke(ctx context.Context, workDir string, args ...string) error {
	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Dir = workDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", p.binary, args, err)
	}
	return nil
}
