package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/ce-community/cebot/cebot/database/models"
	"github.com/ce-community/cebot/internal/domain/logger"
	"github.com/ce-community/cebot/internal/domain/reconcile"
)

// PassRepository keeps a history of pass reports.
type PassRepository struct {
	db *bun.DB
}

func NewPassRepository(db *bun.DB) *PassRepository {
	return &PassRepository{db: db}
}

func (r *PassRepository) Save(ctx context.Context, report *reconcile.Report) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	op := logger.NewOpLogger("postgres", "save_pass", report.ID)

	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	res, err := r.db.NewInsert().
		Model(&models.PassRecord{
			ID:         report.ID,
			StartedAt:  report.StartedAt,
			FinishedAt: report.FinishedAt,
			Events:     report.TotalEvents(),
			Errors:     len(report.Errors),
			Report:     raw,
		}).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	op.Log(err, rowsAffected(res))
	return err
}

// Recent returns the latest pass records, newest first.
func (r *PassRepository) Recent(ctx context.Context, limit int) ([]models.PassRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var records []models.PassRecord
	err := r.db.NewSelect().
		Model(&records).
		Order("started_at DESC").
		Limit(limit).
		Scan(ctx)
	return records, err
}
