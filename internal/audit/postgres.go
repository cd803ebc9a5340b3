package audit

import (
	"context"
	"fmt"
	"time"

	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/sqlinline"
)

type Postgres struct {
	sql infra.SQLExecutor
}

func NewPostgres(sql infra.SQLExecutor) *Postgres {
	return &Postgres{sql: sql}
}

func (p *Postgres) Record(ctx context.Context, rec domain.GenerationRecord) error {
	_, err := p.sql.Exec(ctx, sqlinline.QInsertGeneration,
		rec.UserEmail,
		string(rec.Status),
		rec.CostCredits,
		rec.Provider,
		rec.Model,
		rec.PromptMode,
		rec.AspectRatio,
		int(rec.Duration.Milliseconds()),
		rec.ImageURL,
		rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("audit: insert generation: %w", err)
	}
	return nil
}

func (p *Postgres) ListSuccessful(ctx context.Context, email string, limit int) ([]domain.GenerationRecord, error) {
	rows, err := p.sql.Query(ctx, sqlinline.QListSuccessfulGenerations, email, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list generations: %w", err)
	}
	defer rows.Close()

	var out []domain.GenerationRecord
	for rows.Next() {
		var (
			rec        domain.GenerationRecord
			status     string
			durationMS int
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.UserEmail,
			&status,
			&rec.CostCredits,
			&rec.Provider,
			&rec.Model,
			&rec.PromptMode,
			&rec.AspectRatio,
			&durationMS,
			&rec.ImageURL,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: scan generation: %w", err)
		}
		rec.Status = domain.GenerationStatus(status)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate generations: %w", err)
	}
	return out, nil
}

var _ Recorder = (*Postgres)(nil)
