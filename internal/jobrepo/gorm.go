package jobrepo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GormRepository implements Repository using GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GormRepository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) SaveRun(ctx context.Context, run *Run) error {
	record, err := FromRun(run)
	if err != nil {
		return fmt.Errorf("jobrepo: marshalling run: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("jobrepo: saving run %s: %w", run.JobUUID, err)
	}
	return nil
}

func (r *GormRepository) GetRunByUUID(ctx context.Context, jobUUID string) (*Run, error) {
	var record ClusterRun
	err := r.db.WithContext(ctx).Where("job_uuid = ?", jobUUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("jobrepo: run not found: %s", jobUUID)
		}
		return nil, fmt.Errorf("jobrepo: getting run %s: %w", jobUUID, err)
	}
	return record.ToRun(), nil
}

func (r *GormRepository) ListRecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	var records []ClusterRun
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("jobrepo: listing recent runs: %w", err)
	}
	runs := make([]*Run, len(records))
	for i, rec := range records {
		runs[i] = rec.ToRun()
	}
	return runs, nil
}
