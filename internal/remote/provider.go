// Package remote adapts persistent storage to the engine's remote operations.
package remote

import (
	"context"
	"errors"

	"github.com/julianstephens/calgrid/internal/events"
	"github.com/julianstephens/calgrid/internal/logger"
	"github.com/julianstephens/calgrid/internal/models"
	"github.com/julianstephens/calgrid/internal/storage"
)

// FromProvider returns remote operations backed by p. Not-found and invalid-event
// errors are reported as rejections; every other storage error is a fault.
func FromProvider(p storage.Provider) events.RemoteOps {
	return events.RemoteOps{
		Add: func(ctx context.Context, draft models.Event) (models.OperationResult, error) {
			if err := ctx.Err(); err != nil {
				return models.OperationResult{}, err
			}
			// The server owns ids.
			draft.ID = ""
			saved, err := p.AddEvent(draft)
			if err != nil {
				return reject(err)
			}
			logger.Debug("Event stored", "id", saved.ID)
			return models.OperationResult{Success: true, Data: &saved}, nil
		},
		Update: func(ctx context.Context, id string, patch models.EventPatch) (models.OperationResult, error) {
			if err := ctx.Err(); err != nil {
				return models.OperationResult{}, err
			}
			saved, err := p.UpdateEvent(id, patch)
			if err != nil {
				return reject(err)
			}
			return models.OperationResult{Success: true, Data: &saved}, nil
		},
		Delete: func(ctx context.Context, id string) (models.OperationResult, error) {
			if err := ctx.Err(); err != nil {
				return models.OperationResult{}, err
			}
			if err := p.DeleteEvent(id); err != nil {
				return reject(err)
			}
			return models.OperationResult{Success: true}, nil
		},
	}
}

func reject(err error) (models.OperationResult, error) {
	if errors.Is(err, storage.ErrEventNotFound) || errors.Is(err, storage.ErrInvalidEvent) || errors.Is(err, storage.ErrDuplicateEvent) {
		return models.OperationResult{Success: false, Error: err.Error()}, nil
	}
	return models.OperationResult{}, err
}
