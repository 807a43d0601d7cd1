package schemas

import "github.com/nick/por-s3/internal/models"

// EventResponse reports the outcome of one notification batch.
type EventResponse struct {
	Launched []string `json:"launched"` // instance IDs, one per matching record
}

// RunListResponse wraps the audit records returned by the runs
// endpoint.
type RunListResponse struct {
	Runs []*models.ProofRun `json:"runs"`
}

// RunStateRequest reports the terminal outcome of a run.
type RunStateRequest struct {
	State string `json:"state" binding:"required"` // completed or failed
}
