package cli

import (
	"fmt"

	"github.com/julianstephens/calgrid/internal/config"
	"github.com/julianstephens/calgrid/internal/events"
	"github.com/julianstephens/calgrid/internal/logger"
	"github.com/julianstephens/calgrid/internal/remote"
)

// Calendar is an event session over the context's store together with the
// persister that writes its sync-mode changes.
type Calendar struct {
	Session *events.Session
	persist *remote.Persister
}

// RemoteOps builds the remote operations for cfg: storage-backed, optionally behind
// the simulated network, with kinds configured as sync left nil.
func (c *Context) RemoteOps() events.RemoteOps {
	cfg := c.config()
	ops := remote.FromProvider(c.Store)
	if cfg.Simulate.Enabled {
		ops = remote.Simulate(ops, remote.SimulateConfig{
			AddLatency:    cfg.Simulate.AddLatency,
			UpdateLatency: cfg.Simulate.UpdateLatency,
			DeleteLatency: cfg.Simulate.DeleteLatency,
			FailureRate:   cfg.Simulate.FailureRate,
		})
	}
	if !cfg.Async.Add {
		ops.Add = nil
	}
	if !cfg.Async.Update {
		ops.Update = nil
	}
	if !cfg.Async.Delete {
		ops.Delete = nil
	}
	return ops
}

func (c *Context) config() *config.Config {
	if c.Config == nil {
		return config.DefaultConfig("")
	}
	return c.Config
}

// OpenCalendar loads every stored event into a new session.
func (c *Context) OpenCalendar(opts ...events.Option) (*Calendar, error) {
	initial, err := c.Store.GetAllEvents()
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	persist := remote.NewPersister(c.Store)
	base := []events.Option{
		events.WithTimeout(c.config().Timeout),
		events.WithOptimistic(!c.config().WaitForRemote),
		events.WithErrorHandler(func(err error, kind events.Kind, data any) {
			logger.Warn("Event mutation failed", "kind", kind, "error", err)
		}),
	}

	session, err := events.NewSession(events.SessionConfig{
		Initial: initial,
		Remote:  c.RemoteOps(),
		Sync:    persist.Callbacks(),
		Options: append(base, opts...),
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("Calendar session opened",
		"events", len(initial),
		"add", session.Mode(events.KindAdd),
		"update", session.Mode(events.KindUpdate),
		"delete", session.Mode(events.KindDelete))

	return &Calendar{Session: session, persist: persist}, nil
}

// Apply runs op, a single mutation of kind, and returns its failure. In sync mode it
// also waits for the change to reach storage.
func (cal *Calendar) Apply(kind events.Kind, op func() bool) error {
	local := cal.Session.Mode(kind) == events.ModeSync
	if local {
		cal.persist.Expect(1)
	}

	if !op() {
		if local {
			cal.persist.Release(1)
		}
		if err := cal.Session.Status().Err; err != nil {
			return err
		}
		return fmt.Errorf("failed to %s event", kind)
	}

	if local {
		return cal.persist.Wait()
	}
	return nil
}
