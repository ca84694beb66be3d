package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/julianstephens/calgrid/internal/logger"
	"github.com/julianstephens/calgrid/internal/models"
)

// Engine performs optimistic mutations against a Store: it applies the change
// locally, asks the remote to confirm it, then commits or rolls back.
//
// Operations on different ids may overlap. Two in-flight updates of the same id are
// not serialized; whichever resolves last wins.
type Engine struct {
	store   *Store
	tracker *tracker
	opts    options
}

// NewEngine returns an engine mutating store.
func NewEngine(store *Store, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		store:   store,
		tracker: &tracker{},
		opts:    o,
	}
}

// Store returns the store the engine mutates.
func (e *Engine) Store() *Store {
	return e.store
}

// Status returns the in-flight markers and the last failure.
func (e *Engine) Status() Status {
	return e.tracker.status()
}

// ClearError resets the last failure.
func (e *Engine) ClearError() {
	e.tracker.clearErr()
}

// PerformAdd inserts candidate optimistically and asks remote to persist it. The
// remote receives the candidate without its id. It reports whether the add
// committed.
func (e *Engine) PerformAdd(ctx context.Context, candidate models.Event, remote AddFunc) bool {
	op := e.start(ctx, KindAdd, candidate.ID)
	defer op.finish()
	if !e.opts.optimistic {
		return e.confirmAdd(op, candidate, remote)
	}

	optimistic := candidate
	_, err := e.store.begin(func() error {
		if optimistic.ID == "" {
			optimistic.ID = e.placeholderLocked()
		}
		return e.store.addLocked(optimistic)
	})
	op.setID(optimistic.ID)
	if err != nil {
		e.fail(op, OutcomeDuplicate, err, err.Error(), candidate)
		return false
	}
	e.notify()

	e.tracker.begin(KindAdd, optimistic.ID)
	defer e.tracker.end(KindAdd, optimistic.ID)

	draft := candidate
	draft.ID = ""
	res, err := e.invoke(op.ctx, func(ctx context.Context) (models.OperationResult, error) {
		return remote(ctx, draft)
	})
	if outcome, msg, failErr := classify(KindAdd, res, err); failErr != nil {
		e.store.Delete(optimistic.ID)
		e.notify()
		e.fail(op, outcome, failErr, msg, candidate)
		return false
	}

	if res.Data != nil {
		committed := *res.Data
		if committed.ID == "" {
			committed.ID = optimistic.ID
		}
		if err := e.store.swap(optimistic.ID, committed); err != nil {
			if errors.Is(err, ErrNotFound) {
				// The placeholder was replaced wholesale while the call was in flight.
				logger.Warn("Committed event no longer present", "placeholder", optimistic.ID, "id", committed.ID)
				e.succeed(op, committed.ID)
				return true
			}
			e.store.Delete(optimistic.ID)
			e.notify()
			e.fail(op, OutcomeFaulted, fmt.Errorf("%w: %w", ErrRemoteFaulted, err), err.Error(), candidate)
			return false
		}
		op.setID(committed.ID)
		e.notify()
	}

	e.succeed(op, op.id)
	return true
}

// PerformUpdate merges patch into the event with the given id optimistically and
// asks remote to persist it. An unknown id fails fast without calling remote.
//
// Overlapping updates of the same id are not serialized: whichever resolves last
// determines the stored record, and a rollback restores the record this call saw.
func (e *Engine) PerformUpdate(ctx context.Context, id string, patch models.EventPatch, remote UpdateFunc) bool {
	op := e.start(ctx, KindUpdate, id)
	defer op.finish()
	if !e.opts.optimistic {
		return e.confirmUpdate(op, id, patch, remote)
	}

	snap, err := e.store.begin(func() error {
		_, err := e.store.updateLocked(id, patch)
		return err
	})
	if err != nil {
		e.fail(op, OutcomeNotFound, err, ErrNotFound.Error(), patch)
		return false
	}
	e.notify()

	e.tracker.begin(KindUpdate, id)
	defer e.tracker.end(KindUpdate, id)

	res, err := e.invoke(op.ctx, func(ctx context.Context) (models.OperationResult, error) {
		return remote(ctx, id, patch)
	})
	if outcome, msg, failErr := classify(KindUpdate, res, err); failErr != nil {
		if original, _, ok := snap.Lookup(id); ok && !e.store.put(original) {
			logger.Warn("Rollback target no longer present", "kind", KindUpdate, "id", id)
		}
		e.notify()
		e.fail(op, outcome, failErr, msg, patch)
		return false
	}

	if e.applyServerUpdate(id, res) {
		e.notify()
	}

	e.succeed(op, id)
	return true
}

// applyServerUpdate replaces the record with res.Data and then merges res.Patch.
// It reports whether either was present.
func (e *Engine) applyServerUpdate(id string, res models.OperationResult) bool {
	if res.Data != nil {
		replaced := *res.Data
		replaced.ID = id
		e.store.put(replaced)
	}
	if res.Patch != nil {
		_, _ = e.store.Update(id, *res.Patch)
	}
	return res.Data != nil || res.Patch != nil
}

// PerformDelete removes the event optimistically and asks remote to delete it. On
// failure the record is restored at its original position.
func (e *Engine) PerformDelete(ctx context.Context, id string, remote DeleteFunc) bool {
	op := e.start(ctx, KindDelete, id)
	defer op.finish()
	if !e.opts.optimistic {
		return e.confirmDelete(op, id, remote)
	}

	snap, err := e.store.begin(func() error {
		if _, _, ok := e.store.removeLocked(id); !ok {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		e.fail(op, OutcomeNotFound, err, ErrNotFound.Error(), id)
		return false
	}
	e.notify()

	e.tracker.begin(KindDelete, id)
	defer e.tracker.end(KindDelete, id)

	res, err := e.invoke(op.ctx, func(ctx context.Context) (models.OperationResult, error) {
		return remote(ctx, id)
	})
	if outcome, msg, failErr := classify(KindDelete, res, err); failErr != nil {
		if original, index, ok := snap.Lookup(id); ok {
			e.store.insertAt(index, original)
		}
		e.notify()
		e.fail(op, outcome, failErr, msg, id)
		return false
	}

	e.succeed(op, id)
	return true
}

// RecordError stores err as the last failure and reports it to the error handler.
// Sessions use it for failures that never reach the engine.
func (e *Engine) RecordError(kind Kind, id string, err error, data any) {
	opErr := &OpError{Kind: kind, ID: id, Message: err.Error(), Err: err}
	e.tracker.setErr(opErr)
	e.report(opErr, kind, data)
}

type call struct {
	res models.OperationResult
	err error
}

// invoke runs fn on its own goroutine so that panics become faults and the engine
// timeout can abandon a stuck call.
func (e *Engine) invoke(ctx context.Context, fn func(context.Context) (models.OperationResult, error)) (models.OperationResult, error) {
	if e.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.timeout)
		defer cancel()
	}

	done := make(chan call, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- call{err: &panicError{value: r}}
			}
		}()
		res, err := fn(ctx)
		done <- call{res: res, err: err}
	}()

	select {
	case c := <-done:
		return c.res, c.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.OperationResult{}, ErrTimeout
		}
		return models.OperationResult{}, fmt.Errorf("%w: %w", ErrRemoteFaulted, ctx.Err())
	}
}

// classify maps a remote result to an outcome, the message to surface, and the
// error to record. A nil error means success.
func classify(kind Kind, res models.OperationResult, err error) (Outcome, string, error) {
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return OutcomeTimedOut, msgTimedOut, err
		}
		msg := err.Error()
		if msg == "" {
			msg = msgUnknown
		}
		if !errors.Is(err, ErrRemoteFaulted) {
			err = fmt.Errorf("%w: %w", ErrRemoteFaulted, err)
		}
		return OutcomeFaulted, msg, err
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = rejectionFallback(kind)
		}
		return OutcomeRejected, msg, ErrRemoteRejected
	}
	return OutcomeCommitted, "", nil
}

// placeholderLocked must be called with the store lock held.
func (e *Engine) placeholderLocked() string {
	id := e.opts.placeholder()
	base := id
	for n := 1; e.store.indexLocked(id) >= 0; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func (e *Engine) notify() {
	for _, fn := range e.opts.onChange {
		fn()
	}
}

func (e *Engine) report(err error, kind Kind, data any) {
	if e.opts.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Error handler panicked", "kind", kind, "panic", r)
		}
	}()
	e.opts.onError(err, kind, data)
}

// operation carries per-mutation bookkeeping: timing, span and outcome.
type operation struct {
	engine  *Engine
	kind    Kind
	id      string
	ctx     context.Context
	span    trace.Span
	started time.Time
	outcome Outcome
}

func (e *Engine) start(ctx context.Context, kind Kind, id string) *operation {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := e.opts.tracer.Start(ctx, "calgrid.events."+string(kind),
		trace.WithAttributes(attribute.String("calgrid.kind", string(kind))),
	)
	if e.opts.recorder != nil {
		e.opts.recorder.MutationStarted(kind)
	}
	return &operation{
		engine:  e,
		kind:    kind,
		id:      id,
		ctx:     ctx,
		span:    span,
		started: time.Now(),
		outcome: OutcomeFaulted,
	}
}

func (op *operation) setID(id string) {
	op.id = id
}

func (e *Engine) succeed(op *operation, id string) {
	op.outcome = OutcomeCommitted
	op.span.SetStatus(codes.Ok, "")
	logger.Debug("Mutation committed", "kind", op.kind, "id", id)
}

func (e *Engine) fail(op *operation, outcome Outcome, err error, msg string, data any) {
	op.outcome = outcome
	opErr := &OpError{Kind: op.kind, ID: op.id, Message: msg, Err: err}
	e.tracker.setErr(opErr)

	op.span.RecordError(err)
	op.span.SetStatus(codes.Error, msg)
	logger.Warn("Mutation rolled back", "kind", op.kind, "id", op.id, "outcome", outcome, "error", msg)

	e.report(opErr, op.kind, data)
}

// finish runs deferred, so the recorder and span always settle, even on panic.
func (op *operation) finish() {
	op.span.SetAttributes(
		attribute.String("calgrid.event_id", op.id),
		attribute.String("calgrid.outcome", string(op.outcome)),
	)
	op.span.End()
	if op.engine.opts.recorder != nil {
		op.engine.opts.recorder.MutationSettled(op.kind, op.outcome, time.Since(op.started))
	}
}
