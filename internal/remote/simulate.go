package remote

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/events"
	"github.com/julianstephens/calgrid/internal/models"
)

// ErrSimulatedFailure is returned for injected network failures.
var ErrSimulatedFailure = errors.New("simulated network error")

// SimulateConfig shapes the fake network placed in front of a backend.
type SimulateConfig struct {
	AddLatency    time.Duration
	UpdateLatency time.Duration
	DeleteLatency time.Duration
	// FailureRate is the probability in [0, 1] that a call fails before reaching the backend.
	FailureRate float64
	// Rand overrides the failure source. It must return values in [0, 1).
	Rand func() float64
}

// DefaultSimulateConfig returns the stock latencies and a 10% failure rate.
func DefaultSimulateConfig() SimulateConfig {
	return SimulateConfig{
		AddLatency:    constants.DefaultAddLatency,
		UpdateLatency: constants.DefaultUpdateLatency,
		DeleteLatency: constants.DefaultDeleteLatency,
		FailureRate:   constants.DefaultFailureRate,
	}
}

type simulator struct {
	cfg SimulateConfig
	mu  sync.Mutex
}

func (s *simulator) fail() bool {
	if s.cfg.FailureRate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Rand() < s.cfg.FailureRate
}

// wait sleeps for d or until ctx is done, then rolls for a failure.
func (s *simulator) wait(ctx context.Context, d time.Duration) error {
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if s.fail() {
		return ErrSimulatedFailure
	}
	return nil
}

// Simulate wraps ops with per-kind latency and random failures. Nil operations stay
// nil so that mode selection is unchanged.
func Simulate(ops events.RemoteOps, cfg SimulateConfig) events.RemoteOps {
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	sim := &simulator{cfg: cfg}

	var out events.RemoteOps
	if add := ops.Add; add != nil {
		out.Add = func(ctx context.Context, draft models.Event) (models.OperationResult, error) {
			if err := sim.wait(ctx, cfg.AddLatency); err != nil {
				return models.OperationResult{}, err
			}
			return add(ctx, draft)
		}
	}
	if update := ops.Update; update != nil {
		out.Update = func(ctx context.Context, id string, patch models.EventPatch) (models.OperationResult, error) {
			if err := sim.wait(ctx, cfg.UpdateLatency); err != nil {
				return models.OperationResult{}, err
			}
			return update(ctx, id, patch)
		}
	}
	if del := ops.Delete; del != nil {
		out.Delete = func(ctx context.Context, id string) (models.OperationResult, error) {
			if err := sim.wait(ctx, cfg.DeleteLatency); err != nil {
				return models.OperationResult{}, err
			}
			return del(ctx, id)
		}
	}
	return out
}
