package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/calgrid/internal/logger"
	"github.com/julianstephens/calgrid/internal/models"
)

// The confirm* paths run when optimistic apply is disabled: the store is left
// alone until the remote succeeds, so a failure has nothing to roll back.

func (e *Engine) confirmAdd(op *operation, candidate models.Event, remote AddFunc) bool {
	if candidate.ID != "" && e.store.Has(candidate.ID) {
		err := fmt.Errorf("%w: %q", ErrDuplicateID, candidate.ID)
		e.fail(op, OutcomeDuplicate, err, err.Error(), candidate)
		return false
	}

	e.tracker.begin(KindAdd, candidate.ID)
	defer e.tracker.end(KindAdd, candidate.ID)

	draft := candidate
	draft.ID = ""
	res, err := e.invoke(op.ctx, func(ctx context.Context) (models.OperationResult, error) {
		return remote(ctx, draft)
	})
	if outcome, msg, failErr := classify(KindAdd, res, err); failErr != nil {
		e.fail(op, outcome, failErr, msg, candidate)
		return false
	}

	committed := candidate
	if res.Data != nil {
		committed = *res.Data
		if committed.ID == "" {
			committed.ID = candidate.ID
		}
	}
	if committed.ID == "" {
		committed.ID = uuid.New().String()
	}
	op.setID(committed.ID)
	if err := e.store.Add(committed); err != nil {
		e.fail(op, OutcomeFaulted, fmt.Errorf("%w: %w", ErrRemoteFaulted, err), err.Error(), candidate)
		return false
	}
	e.notify()

	e.succeed(op, committed.ID)
	return true
}

func (e *Engine) confirmUpdate(op *operation, id string, patch models.EventPatch, remote UpdateFunc) bool {
	if !e.store.Has(id) {
		e.fail(op, OutcomeNotFound, fmt.Errorf("%w: %q", ErrNotFound, id), ErrNotFound.Error(), patch)
		return false
	}

	e.tracker.begin(KindUpdate, id)
	defer e.tracker.end(KindUpdate, id)

	res, err := e.invoke(op.ctx, func(ctx context.Context) (models.OperationResult, error) {
		return remote(ctx, id, patch)
	})
	if outcome, msg, failErr := classify(KindUpdate, res, err); failErr != nil {
		e.fail(op, outcome, failErr, msg, patch)
		return false
	}

	if _, err := e.store.Update(id, patch); err != nil {
		logger.Warn("Confirmed update target no longer present", "id", id)
		e.succeed(op, id)
		return true
	}
	e.applyServerUpdate(id, res)
	e.notify()

	e.succeed(op, id)
	return true
}

func (e *Engine) confirmDelete(op *operation, id string, remote DeleteFunc) bool {
	if !e.store.Has(id) {
		e.fail(op, OutcomeNotFound, fmt.Errorf("%w: %q", ErrNotFound, id), ErrNotFound.Error(), id)
		return false
	}

	e.tracker.begin(KindDelete, id)
	defer e.tracker.end(KindDelete, id)

	res, err := e.invoke(op.ctx, func(ctx context.Context) (models.OperationResult, error) {
		return remote(ctx, id)
	})
	if outcome, msg, failErr := classify(KindDelete, res, err); failErr != nil {
		e.fail(op, outcome, failErr, msg, id)
		return false
	}

	if _, ok := e.store.Delete(id); ok {
		e.notify()
	}
	e.succeed(op, id)
	return true
}
