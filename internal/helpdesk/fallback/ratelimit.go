package fallback

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a token bucket allowing rpm requests per minute.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

func NewRateLimitedProvider(provider Provider, rpm int) *RateLimitedProvider {
	if rpm <= 0 {
		rpm = 60
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

// Unwrap returns the wrapped provider.
func (r *RateLimitedProvider) Unwrap() Provider {
	return r.provider
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

type unwrapper interface {
	Unwrap() Provider
}

func acquirerOf(p Provider) (Acquirer, bool) {
	for p != nil {
		if a, ok := p.(Acquirer); ok {
			return a, true
		}
		u, ok := p.(unwrapper)
		if !ok {
			break
		}
		p = u.Unwrap()
	}
	return nil, false
}

func isLocal(p Provider) bool {
	for p != nil {
		if l, ok := p.(Locality); ok {
			return l.Local()
		}
		u, ok := p.(unwrapper)
		if !ok {
			break
		}
		p = u.Unwrap()
	}
	return false
}
