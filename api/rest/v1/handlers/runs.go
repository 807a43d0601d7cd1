package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	v1 "github.com/nick/por-s3/api/rest/v1"
	"github.com/nick/por-s3/api/rest/v1/schemas"
	"github.com/nick/por-s3/internal/models"
	"github.com/nick/por-s3/internal/repository"
)

const defaultRunListLimit = 50

type RunHandler struct {
	runs repository.ProofRunRepository
}

func NewRunHandler(runs repository.ProofRunRepository) *RunHandler {
	return &RunHandler{runs: runs}
}

// ListRuns returns launch audit records, newest first. A proof_dir
// query scopes the list to one run namespace.
func (h *RunHandler) ListRuns(c *gin.Context) error {
	if h.runs == nil {
		return errAuditUnconfigured()
	}

	if proofDir := c.Query("proof_dir"); proofDir != "" {
		runs, err := h.runs.FindByProofDir(c.Request.Context(), proofDir)
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, schemas.RunListResponse{Runs: runs})
		return nil
	}

	limit := defaultRunListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return v1.APIError{
				Code: http.StatusBadRequest,
				Err:  "invalid limit",
			}
		}
		limit = parsed
	}

	runs, err := h.runs.Recent(c.Request.Context(), limit)
	if err != nil {
		return err
	}

	c.JSON(http.StatusOK, schemas.RunListResponse{Runs: runs})
	return nil
}

// UpdateRunState records the terminal outcome of a launched run.
func (h *RunHandler) UpdateRunState(c *gin.Context) error {
	if h.runs == nil {
		return errAuditUnconfigured()
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return v1.APIError{
			Code: http.StatusNotFound,
			Err:  "invalid run identifier format",
		}
	}

	var req schemas.RunStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return v1.APIError{
			Code: http.StatusBadRequest,
			Err:  "invalid state payload",
		}
	}
	if req.State != models.RunStateCompleted && req.State != models.RunStateFailed {
		return v1.APIError{
			Code: http.StatusBadRequest,
			Err:  "state must be completed or failed",
		}
	}

	if _, err := h.runs.FindByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return v1.APIError{
				Code: http.StatusNotFound,
				Err:  "run not found",
			}
		}
		return err
	}

	if err := h.runs.UpdateState(c.Request.Context(), id, req.State); err != nil {
		return err
	}

	c.JSON(http.StatusOK, gin.H{"id": id.String(), "state": req.State})
	return nil
}

func errAuditUnconfigured() error {
	return v1.APIError{
		Code: http.StatusServiceUnavailable,
		Err:  "run audit storage is not configured",
	}
}
