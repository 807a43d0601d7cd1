package models

import (
	"time"

	"github.com/google/uuid"
)

// Run states recorded in the audit table. The launcher writes
// "launched"; later states are advisory and only appear when something
// on the run path reports back.
const (
	RunStateLaunched  = "launched"
	RunStateCompleted = "completed"
	RunStateFailed    = "failed"
)

// ProofRun records one launch decision and the instance it produced.
type ProofRun struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Bucket     string    `json:"bucket" gorm:"not null"`
	ProofDir   string    `json:"proof_dir" gorm:"not null;index"`
	InstanceID string    `json:"instance_id"`
	State      string    `json:"state" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
