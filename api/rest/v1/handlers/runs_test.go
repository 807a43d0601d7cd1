package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	v1 "github.com/nick/por-s3/api/rest/v1"
	"github.com/nick/por-s3/internal/models"
	"github.com/nick/por-s3/internal/repository"
)

type fakeRunRepo struct {
	runs    []*models.ProofRun
	updated map[uuid.UUID]string
}

func newFakeRunRepo(runs ...*models.ProofRun) *fakeRunRepo {
	return &fakeRunRepo{
		runs:    runs,
		updated: make(map[uuid.UUID]string),
	}
}

func (f *fakeRunRepo) Create(_ context.Context, run *models.ProofRun) (*models.ProofRun, error) {
	f.runs = append(f.runs, run)
	return run, nil
}

func (f *fakeRunRepo) FindByID(_ context.Context, id uuid.UUID) (*models.ProofRun, error) {
	for _, run := range f.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRunRepo) FindByProofDir(_ context.Context, proofDir string) ([]*models.ProofRun, error) {
	var matched []*models.ProofRun
	for _, run := range f.runs {
		if run.ProofDir == proofDir {
			matched = append(matched, run)
		}
	}
	return matched, nil
}

func (f *fakeRunRepo) Recent(_ context.Context, limit int) ([]*models.ProofRun, error) {
	if limit > len(f.runs) {
		limit = len(f.runs)
	}
	return f.runs[:limit], nil
}

func (f *fakeRunRepo) UpdateState(_ context.Context, id uuid.UUID, state string) error {
	f.updated[id] = state
	return nil
}

func newRunsRouter(repo repository.ProofRunRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewRunHandler(repo)
	engine := gin.New()
	engine.GET("/api/v1/runs", v1.ErrorHandler(handler.ListRuns))
	engine.PATCH("/api/v1/runs/:id", v1.ErrorHandler(handler.UpdateRunState))
	return engine
}

func auditRun(proofDir string) *models.ProofRun {
	return &models.ProofRun{
		ID:         uuid.New(),
		Bucket:     "reserves-bucket",
		ProofDir:   proofDir,
		InstanceID: "i-0abc123",
		State:      models.RunStateLaunched,
	}
}

func TestListRunsUnconfigured(t *testing.T) {
	router := newRunsRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}

func TestListRunsReturnsRecent(t *testing.T) {
	repo := newFakeRunRepo(
		auditRun("proof-runs/2024-01-16"),
		auditRun("proof-runs/2024-01-15"),
	)
	router := newRunsRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "proof-runs/2024-01-16")
	assert.Contains(t, w.Body.String(), "proof-runs/2024-01-15")
}

func TestListRunsLimit(t *testing.T) {
	repo := newFakeRunRepo(
		auditRun("proof-runs/2024-01-16"),
		auditRun("proof-runs/2024-01-15"),
	)
	router := newRunsRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "proof-runs/2024-01-16")
	assert.NotContains(t, w.Body.String(), "proof-runs/2024-01-15")
}

func TestListRunsInvalidLimit(t *testing.T) {
	router := newRunsRouter(newFakeRunRepo())

	for _, limit := range []string{"0", "-1", "abc"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestListRunsProofDirFilter(t *testing.T) {
	repo := newFakeRunRepo(
		auditRun("proof-runs/2024-01-16"),
		auditRun("proof-runs/2024-01-15"),
	)
	router := newRunsRouter(repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs?proof_dir=proof-runs/2024-01-15", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "proof-runs/2024-01-15")
	assert.NotContains(t, w.Body.String(), "proof-runs/2024-01-16")
}

func TestUpdateRunState(t *testing.T) {
	run := auditRun("proof-runs/2024-01-15")
	repo := newFakeRunRepo(run)
	router := newRunsRouter(repo)

	for _, state := range []string{models.RunStateCompleted, models.RunStateFailed} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/runs/"+run.ID.String(),
			strings.NewReader(`{"state":"`+state+`"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, "state=%s", state)
		assert.Equal(t, state, repo.updated[run.ID])
	}
}

func TestUpdateRunStateRejectsInvalidState(t *testing.T) {
	run := auditRun("proof-runs/2024-01-15")
	repo := newFakeRunRepo(run)
	router := newRunsRouter(repo)

	for _, body := range []string{`{"state":"launched"}`, `{"state":"done"}`, `{}`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/runs/"+run.ID.String(), strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "body=%s", body)
		assert.Empty(t, repo.updated)
	}
}

func TestUpdateRunStateUnknownRun(t *testing.T) {
	repo := newFakeRunRepo()
	router := newRunsRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/runs/"+uuid.NewString(),
		strings.NewReader(`{"state":"completed"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, repo.updated)
}

func TestUpdateRunStateMalformedID(t *testing.T) {
	router := newRunsRouter(newFakeRunRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/runs/not-a-uuid",
		strings.NewReader(`{"state":"completed"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
