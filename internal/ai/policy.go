package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
)

// Policy is the model-fallback strategy applied to every backend call.
// Model i is attempted after waiting BaseDelay + i*Step.
type Policy struct {
	Models    []string
	BaseDelay time.Duration
	Step      time.Duration
	// Classify decides how a failed call is handled. Defaults to Classify.
	Classify func(error) ErrorKind
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	Log   logger.Logger
}

// Delay returns the wait before attempt i.
func (p Policy) Delay(i int) time.Duration {
	return p.BaseDelay + time.Duration(i)*p.Step
}

// Do runs call against each model in order until one succeeds and returns
// the model that answered. When every model fails the error wraps
// ErrExhausted; cancellation of ctx is returned as-is.
func (p Policy) Do(ctx context.Context, call func(ctx context.Context, model string) error) (string, error) {
	if len(p.Models) == 0 {
		return "", fmt.Errorf("%w: no models configured", ErrExhausted)
	}
	classify := p.Classify
	if classify == nil {
		classify = Classify
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	log := logger.Ensure(p.Log)

	var lastErr error
	for i, model := range p.Models {
		if d := p.Delay(i); d > 0 {
			if err := sleep(ctx, d); err != nil {
				return "", err
			}
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		err := call(ctx, model)
		if err == nil {
			return model, nil
		}
		lastErr = err

		switch classify(err) {
		case KindCanceled:
			return "", err
		case KindQuota:
			log.WarnObj("model quota or overload, trying next", "ai_fallback", map[string]any{
				"model": model,
			})
		case KindNotFound:
			log.DebugObj("model not found, trying next", "ai_fallback", map[string]any{
				"model": model,
			})
		default:
			log.ErrorObj("model call failed", "ai_error", map[string]any{
				"model": model,
				"error": err.Error(),
			})
		}
	}

	return "", fmt.Errorf("%w (%d models, last error: %v)", ErrExhausted, len(p.Models), lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
