package fallback

import (
	"errors"
	"sync"
	"time"

	"erp-helpdesk-workers/internal/common/logger"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calls to a model after maxFailures consecutive errors until cooldown
// has passed.
type CircuitBreaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	failures    int
	lastFailure time.Time
	isOpen      bool
	mu          sync.RWMutex
	log         logger.Logger
	now         func() time.Time
}

func NewCircuitBreaker(name string, maxFailures int, cooldown time.Duration, log logger.Logger) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &CircuitBreaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		log:         log,
		now:         time.Now,
	}
}

// Allow returns ErrCircuitOpen while the breaker is open. Once the cooldown has elapsed the
// breaker moves to half-open and lets a call through.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.isOpen {
		return nil
	}
	if cb.now().Sub(cb.lastFailure) > cb.cooldown {
		cb.isOpen = false
		cb.failures = cb.maxFailures - 1
		cb.log.Info("circuit breaker half-open", map[string]interface{}{"breaker": cb.name})
		return nil
	}
	return ErrCircuitOpen
}

// Record feeds the outcome of a call into the breaker.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.failures >= cb.maxFailures && !cb.isOpen {
			cb.isOpen = true
			cb.log.Warn("circuit breaker opened", map[string]interface{}{
				"breaker":  cb.name,
				"failures": cb.failures,
				"cooldown": cb.cooldown.String(),
			})
		}
		return
	}

	if cb.failures > 0 {
		cb.log.Info("circuit breaker closed", map[string]interface{}{
			"breaker":  cb.name,
			"failures": cb.failures,
		})
	}
	cb.failures = 0
}

// Call runs fn under breaker protection.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.Allow(); err != nil {
		return err
	}
	err := fn()
	cb.Record(err)
	return err
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.isOpen
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.isOpen = false
}
