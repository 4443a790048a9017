// Package dispatch selects the capability matching a classified intent and
// invokes it under a bounded timeout. Backend failures come back typed:
// timeouts as TimeoutError, everything else wrapped as ExecutionError with
// the cause preserved.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultBaseDelay = 200 * time.Millisecond
)

type Config struct {
	// Timeout bounds a single backend invocation. Applies uniformly to both
	// capabilities.
	Timeout time.Duration
	// MaxRetries caps additional attempts after the first. Only failures the
	// backend marked transient are retried; the default is no retry.
	MaxRetries int
	BaseDelay  time.Duration
	// ParamSpec maps calculational categories to their required parameter
	// fields. Requests missing a required field fail before any backend call.
	ParamSpec map[string][]string
}

type Dispatcher struct {
	retrieval contractx.Retrieval
	compute   contractx.Compute

	paramSpec  map[string][]string
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
}

func New(retrieval contractx.Retrieval, compute contractx.Compute, cfg Config) (*Dispatcher, error) {
	if retrieval == nil {
		return nil, errors.New("retrieval backend is required")
	}
	if compute == nil {
		return nil, errors.New("compute backend is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Dispatcher{
		retrieval:  retrieval,
		compute:    compute,
		paramSpec:  cfg.ParamSpec,
		timeout:    timeout,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}, nil
}

// Dispatch routes the request to the capability matching intent. It performs
// exactly one backend invocation unless a transient failure permits a bounded
// retry.
func (d *Dispatcher) Dispatch(ctx context.Context, intent contractx.Intent, req contractx.ChatRequest) (contractx.CapabilityResult, error) {
	switch intent {
	case contractx.IntentInformational:
		return d.invoke(ctx, intent, func(callCtx context.Context) (contractx.CapabilityResult, error) {
			return d.retrieval.Run(callCtx, req.Category, req.Message, req.UserID)
		})

	case contractx.IntentCalculational:
		params := req.Params
		if params == nil {
			params = map[string]any{}
		}
		if err := d.checkParams(req.Category, params); err != nil {
			return contractx.CapabilityResult{}, err
		}
		return d.invoke(ctx, intent, func(callCtx context.Context) (contractx.CapabilityResult, error) {
			return d.compute.Run(callCtx, req.Category, params, req.UserID)
		})

	default:
		return contractx.CapabilityResult{}, fmt.Errorf("%w: no capability for intent %q", contractx.ErrInvalidRequest, intent)
	}
}

// checkParams rejects incomplete params before the backend is ever invoked.
// Categories absent from the table are left for the backend to judge.
func (d *Dispatcher) checkParams(category string, params map[string]any) error {
	required, ok := d.paramSpec[category]
	if !ok {
		return nil
	}
	var missing []string
	for _, field := range required {
		if _, present := params[field]; !present {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: category %q requires %v", contractx.ErrMissingParameter, category, missing)
	}
	return nil
}

type outcome struct {
	res contractx.CapabilityResult
	err error
}

func (d *Dispatcher) invoke(ctx context.Context, intent contractx.Intent, call func(context.Context) (contractx.CapabilityResult, error)) (contractx.CapabilityResult, error) {
	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		res, err := d.invokeOnce(ctx, intent, call)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil || !contractx.IsTransient(err) || attempt == d.maxRetries {
			break
		}

		select {
		case <-time.After(backoff(d.baseDelay, attempt)):
		case <-ctx.Done():
			return contractx.CapabilityResult{}, ctx.Err()
		}
	}
	return contractx.CapabilityResult{}, lastErr
}

func (d *Dispatcher) invokeOnce(ctx context.Context, intent contractx.Intent, call func(context.Context) (contractx.CapabilityResult, error)) (contractx.CapabilityResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		res, err := call(callCtx)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err == nil {
			return out.res, nil
		}
		return contractx.CapabilityResult{}, d.wrap(ctx, callCtx, intent, out.err, start)
	case <-callCtx.Done():
		// The guard fires even if the backend ignores its context; the
		// stray goroutine finishes into the buffered channel.
		if err := ctx.Err(); err != nil {
			return contractx.CapabilityResult{}, err
		}
		return contractx.CapabilityResult{}, &contractx.TimeoutError{Intent: intent, Elapsed: time.Since(start)}
	}
}

func (d *Dispatcher) wrap(ctx, callCtx context.Context, intent contractx.Intent, err error, start time.Time) error {
	// Caller cancellation is not a backend fault.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) && callCtx.Err() != nil {
		return &contractx.TimeoutError{Intent: intent, Elapsed: time.Since(start)}
	}
	// Client-input failures (missing params and friends) surface unchanged.
	if contractx.IsClientError(err) {
		return err
	}
	return &contractx.ExecutionError{Intent: intent, Cause: err}
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := float64(base) * float64(int(1)<<attempt)
	jitter := rand.Float64() * 0.2 * d
	return time.Duration(d + jitter)
}
