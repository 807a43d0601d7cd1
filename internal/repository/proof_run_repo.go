package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nick/por-s3/internal/models"
)

// ProofRunRepository defines the persistence operations for the launch
// audit table.
type ProofRunRepository interface {
	Create(ctx context.Context, run *models.ProofRun) (*models.ProofRun, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProofRun, error)
	FindByProofDir(ctx context.Context, proofDir string) ([]*models.ProofRun, error)
	Recent(ctx context.Context, limit int) ([]*models.ProofRun, error)
	UpdateState(ctx context.Context, id uuid.UUID, state string) error
}

type proofRunRepository struct {
	db *gorm.DB
}

// Open connects to the audit database and migrates the schema.
func Open(dsn string) (ProofRunRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.ProofRun{}); err != nil {
		return nil, err
	}
	return NewProofRunRepository(db), nil
}

// NewProofRunRepository wraps an existing gorm handle.
func NewProofRunRepository(db *gorm.DB) ProofRunRepository {
	return &proofRunRepository{db: db}
}

// Create persists a new run record and returns it with DB-generated
// fields filled in.
func (r *proofRunRepository) Create(ctx context.Context, run *models.ProofRun) (*models.ProofRun, error) {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *proofRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProofRun, error) {
	var run models.ProofRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *proofRunRepository) FindByProofDir(ctx context.Context, proofDir string) ([]*models.ProofRun, error) {
	var runs []*models.ProofRun
	err := r.db.WithContext(ctx).
		Where("proof_dir = ?", proofDir).
		Order("created_at desc").
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *proofRunRepository) Recent(ctx context.Context, limit int) ([]*models.ProofRun, error) {
	var runs []*models.ProofRun
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *proofRunRepository) UpdateState(ctx context.Context, id uuid.UUID, state string) error {
	return r.db.WithContext(ctx).
		Model(&models.ProofRun{}).
		Where("id = ?", id).
		Update("state", state).Error
}
