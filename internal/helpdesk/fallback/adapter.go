package fallback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"erp-helpdesk-workers/internal/common/logger"
)

var (
	ErrFallbackUnavailable = errors.New("generative fallback unavailable")
	ErrFallbackTimeout     = errors.New("generative fallback timed out")
	ErrAnswerTooShort      = errors.New("generated answer too short")
)

const (
	minAnswerLength = 20

	remoteConfidence = 85.0
	localConfidence  = 75.0
)

// State is the lifecycle of the model behind an Adapter.
type State int

const (
	StateUnavailable State = iota
	StateAcquiring
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAcquiring:
		return "acquiring"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unavailable"
	}
}

type Options struct {
	Timeout        time.Duration
	AcquireTimeout time.Duration
	ReacquireAfter time.Duration
	MaxTokens      int
	Temperature    float64
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = 15 * time.Minute
	}
	if o.ReacquireAfter <= 0 {
		o.ReacquireAfter = time.Minute
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 500
	}
	if o.Temperature <= 0 {
		o.Temperature = 0.7
	}
}

// Adapter owns the generative model. Callers never wait for the model to be acquired: until
// it is ready Generate returns ErrFallbackUnavailable and kicks off acquisition in the
// background, at most one at a time.
type Adapter struct {
	provider Provider
	acquirer Acquirer
	breaker  *CircuitBreaker
	opts     Options
	log      logger.Logger

	group singleflight.Group

	mu       sync.RWMutex
	state    State
	failedAt time.Time
	lastErr  error
	now      func() time.Time
}

// NewAdapter wraps provider. A nil provider yields an adapter that is permanently unavailable.
func NewAdapter(provider Provider, breaker *CircuitBreaker, opts Options, log logger.Logger) *Adapter {
	opts.applyDefaults()
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	a := &Adapter{
		provider: provider,
		breaker:  breaker,
		opts:     opts,
		log:      log,
		state:    StateUnavailable,
		now:      time.Now,
	}
	if provider == nil {
		return a
	}
	if acq, ok := acquirerOf(provider); ok {
		a.acquirer = acq
	} else {
		a.state = StateReady
	}
	return a
}

func (a *Adapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Available reports whether a Generate call would reach the model right now. When the
// model is not ready it starts a background acquisition, like Generate does.
func (a *Adapter) Available() bool {
	if a.provider == nil || !a.ensureReady() {
		return false
	}
	return a.breaker == nil || !a.breaker.IsOpen()
}

// Confidence is the score given to answers produced by this adapter's model.
func (a *Adapter) Confidence() float64 {
	if isLocal(a.provider) {
		return localConfidence
	}
	return remoteConfidence
}

func (a *Adapter) ProviderName() string {
	if a.provider == nil {
		return "none"
	}
	return a.provider.Name()
}

// Warm acquires the model and blocks until acquisition finishes or AcquireTimeout passes.
// Concurrent calls share one acquisition.
func (a *Adapter) Warm(ctx context.Context) error {
	if a.provider == nil {
		return ErrFallbackUnavailable
	}
	a.mu.Lock()
	if a.state == StateReady {
		a.mu.Unlock()
		return nil
	}
	a.state = StateAcquiring
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.opts.AcquireTimeout)
	defer cancel()
	return a.acquire(ctx)
}

func (a *Adapter) acquire(ctx context.Context) error {
	_, err, _ := a.group.Do("acquire", func() (interface{}, error) {
		a.log.Info("acquiring generative model", map[string]interface{}{"provider": a.provider.Name()})
		started := a.now()
		err := a.acquirer.Acquire(ctx)

		a.mu.Lock()
		defer a.mu.Unlock()
		if err != nil {
			a.state = StateFailed
			a.failedAt = a.now()
			a.lastErr = err
			a.log.Warn("generative model acquisition failed", map[string]interface{}{
				"provider": a.provider.Name(),
				"error":    err.Error(),
			})
			return nil, err
		}
		a.state = StateReady
		a.lastErr = nil
		a.log.Info("generative model ready", map[string]interface{}{
			"provider": a.provider.Name(),
			"duration": a.now().Sub(started).String(),
		})
		return nil, nil
	})
	return err
}

// ensureReady returns true when the model can be called. Otherwise it starts a background
// acquisition if none is running and the retry delay after a failure has passed.
func (a *Adapter) ensureReady() bool {
	a.mu.Lock()
	switch a.state {
	case StateReady:
		a.mu.Unlock()
		return true
	case StateAcquiring:
		a.mu.Unlock()
		return false
	case StateFailed:
		if a.now().Sub(a.failedAt) < a.opts.ReacquireAfter {
			a.mu.Unlock()
			return false
		}
	}
	a.state = StateAcquiring
	a.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.opts.AcquireTimeout)
		defer cancel()
		_ = a.acquire(ctx)
	}()
	return false
}

// Generate asks the model for an answer within the configured timeout. A maxTokens or
// temperature of zero uses the adapter defaults. The returned text has markdown removed.
func (a *Adapter) Generate(ctx context.Context, prompt Prompt, maxTokens int, temperature float64) (string, error) {
	if a.provider == nil || !a.ensureReady() {
		return "", ErrFallbackUnavailable
	}
	if a.breaker != nil {
		if err := a.breaker.Allow(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrFallbackUnavailable, err)
		}
	}
	if maxTokens <= 0 {
		maxTokens = a.opts.MaxTokens
	}
	if temperature <= 0 {
		temperature = a.opts.Temperature
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	type result struct {
		resp *CompletionResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := a.provider.Complete(ctx, CompletionRequest{
			System:      prompt.System,
			Prompt:      prompt.User,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		a.record(ErrFallbackTimeout)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrFallbackTimeout
		}
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			a.record(r.err)
			if errors.Is(r.err, context.DeadlineExceeded) {
				return "", ErrFallbackTimeout
			}
			return "", fmt.Errorf("%s: %w", a.provider.Name(), r.err)
		}
		text := RemoveMarkdown(r.resp.Content)
		if utf8.RuneCountInString(text) <= minAnswerLength {
			a.record(ErrAnswerTooShort)
			return "", ErrAnswerTooShort
		}
		a.record(nil)
		return text, nil
	}
}

func (a *Adapter) record(err error) {
	if a.breaker != nil {
		a.breaker.Record(err)
	}
}
