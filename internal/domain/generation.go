package domain

import "time"

// GenerationStatus is the outcome stored on an audit record.
type GenerationStatus string

const (
	GenerationSucceeded    GenerationStatus = "success"
	GenerationFailedStatus GenerationStatus = "failed"
)

// CreditsPerGeneration is the fixed price of one try-on.
const CreditsPerGeneration = 1

// GenerationRecord is one append-only audit entry. It is created once per
// attempt and never updated.
type GenerationRecord struct {
	ID           int64
	UserEmail    string
	Status       GenerationStatus
	CostCredits  int
	Provider     string
	Model        string
	PromptMode   string
	AspectRatio  string
	Duration     time.Duration
	ImageURL     string
	ErrorMessage string
	CreatedAt    time.Time
}
