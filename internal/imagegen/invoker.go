package imagegen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"tryon/internal/domain"
	"tryon/internal/imagecodec"
)

const (
	DefaultMaxConcurrency = 5
	DefaultTimeout        = 3 * time.Minute
)

// Provider is an image-editing backend. Images are passed in order; the
// instruction refers to them as Image 1, Image 2, ...
type Provider interface {
	Name() string
	Model() string
	Edit(ctx context.Context, prompt, size string, images ...imagecodec.Payload) (imagecodec.Payload, error)
}

type Options struct {
	MaxConcurrency int
	Timeout        time.Duration
	Logger         zerolog.Logger
}

// Invoker bounds the number of in-flight provider calls process-wide.
// Waiters are admitted in arrival order.
type Invoker struct {
	provider Provider
	sem      *semaphore.Weighted
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewInvoker(provider Provider, opts Options) *Invoker {
	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Invoker{
		provider: provider,
		sem:      semaphore.NewWeighted(int64(limit)),
		timeout:  timeout,
		logger:   opts.Logger,
	}
}

func (i *Invoker) ProviderName() string { return i.provider.Name() }

func (i *Invoker) Model() string { return i.provider.Model() }

// Edit dresses the person in the garment. Every failure, including a
// cancelled wait for a slot, is a *domain.GenerationFailedError. There is no
// retry.
func (i *Invoker) Edit(ctx context.Context, person, garment imagecodec.Payload, aspect string) (imagecodec.Payload, error) {
	waitStart := time.Now()
	if err := i.sem.Acquire(ctx, 1); err != nil {
		return imagecodec.Payload{}, domain.GenerationFailed(fmt.Errorf("waiting for a provider slot: %w", err))
	}
	defer i.sem.Release(1)
	if waited := time.Since(waitStart); waited > time.Second {
		i.logger.Debug().Dur("waited", waited).Msg("imagegen: acquired provider slot")
	}

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	size := SizeForAspect(aspect)
	out, err := i.provider.Edit(callCtx, TryOnInstruction, size, person, garment)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("provider call timed out after %s: %w", i.timeout, err)
		}
		return imagecodec.Payload{}, domain.GenerationFailed(err)
	}
	if len(out.Data) == 0 {
		return imagecodec.Payload{}, domain.GenerationFailed(errors.New("provider returned an empty image"))
	}
	if out.MIME == "" {
		out.MIME = imagecodec.Sniff(out.Data, "image/jpeg")
	}
	return out, nil
}
