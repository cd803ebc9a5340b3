// Package tryon runs one try-on request end to end: reserve a credit, edit
// the image, publish it, record the attempt, and give the credit back when
// generation fails.
package tryon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tryon/internal/audit"
	"tryon/internal/domain"
	"tryon/internal/imagecodec"
	"tryon/internal/ledger"
	"tryon/internal/storage"
)

// Generator is the bounded, timed provider call.
type Generator interface {
	Edit(ctx context.Context, person, garment imagecodec.Payload, aspect string) (imagecodec.Payload, error)
	ProviderName() string
	Model() string
}

// Request is an authenticated generation request. BaseImage and
// ProductImage are data URLs.
type Request struct {
	Principal    domain.Principal
	UserEmail    string
	BaseImage    string
	ProductImage string
	PromptMode   string
	AspectRatio  string
}

// Result is returned for every successful generation, including ones whose
// upload failed.
type Result struct {
	ImageURL         string
	InlineImage      string
	PublicURL        string
	RemainingCredits int
	PublishError     string
}

type Service struct {
	ledger    ledger.Ledger
	generator Generator
	publisher storage.Publisher
	audit     *audit.Log
	logger    zerolog.Logger
	now       func() time.Time
}

type Options struct {
	Ledger    ledger.Ledger
	Generator Generator
	// Publisher may be nil; results are then returned inline only.
	Publisher storage.Publisher
	Audit     *audit.Log
	Logger    zerolog.Logger
}

func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Ledger == nil:
		return nil, errors.New("tryon: ledger is required")
	case opts.Generator == nil:
		return nil, errors.New("tryon: generator is required")
	case opts.Audit == nil:
		return nil, errors.New("tryon: audit log is required")
	}
	return &Service{
		ledger:    opts.Ledger,
		generator: opts.Generator,
		publisher: opts.Publisher,
		audit:     opts.Audit,
		logger:    opts.Logger,
		now:       time.Now,
	}, nil
}

// Generate validates and decodes both images before touching the ledger,
// so malformed input never costs a credit. Once the credit is reserved,
// every exit either commits it after a successful edit or refunds it
// exactly once and records the failure.
//
// Caller cancellation is not propagated: a client that hangs up after the
// credit is consumed still gets its generation settled. The invoker's
// timeout bounds the provider call.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	if !req.Principal.Valid() {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(req.BaseImage) == "" || strings.TrimSpace(req.ProductImage) == "" {
		return nil, domain.MalformedInput("baseImage and productImage are required")
	}
	person, err := imagecodec.Decode(req.BaseImage)
	if err != nil {
		return nil, fmt.Errorf("baseImage: %w", err)
	}
	garment, err := imagecodec.Decode(req.ProductImage)
	if err != nil {
		return nil, fmt.Errorf("productImage: %w", err)
	}

	logger := s.logger.With().Str("user_id", req.Principal.UserID).Logger()
	email := auditEmail(req)

	reservation, err := ledger.Reserve(ctx, s.ledger, req.Principal.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientCredits) {
			err = fmt.Errorf("%w: %w", domain.ErrInsufficientCredits, err)
		}
		logger.Info().Err(err).Msg("tryon: credit not reserved")
		return nil, err
	}
	logger.Debug().Int("remaining", reservation.Remaining()).Msg("tryon: credit reserved")

	rec := domain.GenerationRecord{
		UserEmail:   email,
		CostCredits: domain.CreditsPerGeneration,
		Provider:    s.generator.ProviderName(),
		Model:       s.generator.Model(),
		PromptMode:  req.PromptMode,
		AspectRatio: req.AspectRatio,
	}
	start := s.now()
	committed := false

	defer func() {
		if p := recover(); p != nil {
			if !committed {
				s.fail(ctx, reservation, rec, start, fmt.Errorf("panic: %v", p), logger)
			}
			panic(p)
		}
	}()

	out, err := s.generator.Edit(ctx, person, garment, req.AspectRatio)
	if err != nil {
		if !errors.Is(err, domain.ErrGenerationFailed) {
			err = domain.GenerationFailed(err)
		}
		s.fail(ctx, reservation, rec, start, err, logger)
		return nil, err
	}

	result := &Result{
		InlineImage:      imagecodec.Encode(out),
		RemainingCredits: reservation.Remaining(),
	}
	result.PublicURL, result.PublishError = s.publish(ctx, out, logger)
	result.ImageURL = result.PublicURL
	if result.ImageURL == "" {
		result.ImageURL = result.InlineImage
	}

	reservation.Commit()
	committed = true

	rec.Status = domain.GenerationSucceeded
	rec.Duration = s.now().Sub(start)
	rec.ImageURL = result.PublicURL
	s.audit.Append(ctx, rec)

	logger.Info().
		Dur("took", rec.Duration).
		Bool("published", result.PublicURL != "").
		Int("remaining", result.RemainingCredits).
		Msg("tryon: generation succeeded")
	return result, nil
}

func (s *Service) publish(ctx context.Context, out imagecodec.Payload, logger zerolog.Logger) (string, string) {
	if s.publisher == nil {
		return "", ""
	}
	url, err := s.publisher.Publish(ctx, storage.Object{
		Key:         storage.NewObjectKey(out.MIME),
		ContentType: out.MIME,
		Data:        out.Data,
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrPublishFailed, err)
		logger.Warn().Err(err).Msg("tryon: returning inline image")
		return "", err.Error()
	}
	return url, ""
}

func (s *Service) fail(ctx context.Context, reservation *ledger.Reservation, rec domain.GenerationRecord, start time.Time, cause error, logger zerolog.Logger) {
	if err := reservation.Release(ctx); err != nil {
		logger.Error().Err(err).Msg("tryon: refund failed; credit must be restored manually")
	}
	rec.Status = domain.GenerationFailedStatus
	rec.Duration = s.now().Sub(start)
	rec.ErrorMessage = cause.Error()
	s.audit.Append(ctx, rec)
	logger.Warn().Err(cause).Dur("took", rec.Duration).Msg("tryon: generation failed, credit refunded")
}

// Credits reads the caller's balance.
func (s *Service) Credits(ctx context.Context, principal domain.Principal) (int, error) {
	if !principal.Valid() {
		return 0, domain.ErrUnauthorized
	}
	return s.ledger.Balance(ctx, principal.UserID)
}

// History lists the caller's successful generations, newest first.
func (s *Service) History(ctx context.Context, principal domain.Principal, limit int) ([]domain.GenerationRecord, error) {
	if !principal.Valid() {
		return nil, domain.ErrUnauthorized
	}
	if principal.Email == "" {
		return nil, nil
	}
	return s.audit.History(ctx, principal.Email, limit)
}

// auditEmail prefers the identity provider's email over the one the client
// sent.
func auditEmail(req Request) string {
	if email := strings.TrimSpace(req.Principal.Email); email != "" {
		return email
	}
	return strings.TrimSpace(req.UserEmail)
}
