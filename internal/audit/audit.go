// Package audit appends one immutable record per generation attempt.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tryon/internal/domain"
)

const appendTimeout = 5 * time.Second

// Recorder persists audit records. Records are never updated or deleted.
type Recorder interface {
	Record(ctx context.Context, rec domain.GenerationRecord) error
	ListSuccessful(ctx context.Context, email string, limit int) ([]domain.GenerationRecord, error)
}

// Log is the write path used by request handling: an audit failure is
// logged and otherwise ignored so it never changes the response.
type Log struct {
	recorder Recorder
	logger   zerolog.Logger
}

func NewLog(recorder Recorder, logger zerolog.Logger) *Log {
	return &Log{recorder: recorder, logger: logger}
}

// Append writes rec on a context detached from the request so an aborted
// client does not drop the record.
func (l *Log) Append(ctx context.Context, rec domain.GenerationRecord) {
	if rec.CostCredits == 0 && rec.Status == domain.GenerationSucceeded {
		rec.CostCredits = domain.CreditsPerGeneration
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
	defer cancel()
	if err := l.recorder.Record(writeCtx, rec); err != nil {
		l.logger.Error().
			Err(err).
			Str("user_email", rec.UserEmail).
			Str("status", string(rec.Status)).
			Msg("audit: append generation record failed")
	}
}

// History lists the caller's successful generations, newest first.
func (l *Log) History(ctx context.Context, email string, limit int) ([]domain.GenerationRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return l.recorder.ListSuccessful(ctx, email, limit)
}
