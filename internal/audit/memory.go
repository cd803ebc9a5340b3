package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"tryon/internal/domain"
)

// Memory keeps records in process for tests and LEDGER_DRIVER=memory.
type Memory struct {
	mu      sync.Mutex
	records []domain.GenerationRecord
	err     error
}

func NewMemory() *Memory {
	return &Memory{}
}

// FailWith makes subsequent Record calls return err.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *Memory) Record(ctx context.Context, rec domain.GenerationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rec.ID = int64(len(m.records) + 1)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) ListSuccessful(ctx context.Context, email string, limit int) ([]domain.GenerationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GenerationRecord
	for _, rec := range m.records {
		if rec.UserEmail == email && rec.Status == domain.GenerationSucceeded {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Records returns a copy of everything recorded so far.
func (m *Memory) Records() []domain.GenerationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GenerationRecord, len(m.records))
	copy(out, m.records)
	return out
}

var _ Recorder = (*Memory)(nil)
