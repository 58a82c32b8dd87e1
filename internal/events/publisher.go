// Package events fans workbench events out to the subscribers of a session.
package events

import (
	"context"

	"github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/types"
)

// Publisher delivers events to every subscriber of a session.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, event types.Event) error
	Subscribe(ctx context.Context, sessionID, subscriberID string, filters ...types.EventType) (<-chan types.Event, error)
	Unsubscribe(ctx context.Context, sessionID, subscriberID string) error
	Shutdown(ctx context.Context) error
}

// Emit builds an event from payload and publishes it.
func Emit(ctx context.Context, publisher Publisher, eventType types.EventType, sessionID string, payload interface{}) error {
	event, err := types.NewEvent(eventType, sessionID, payload)
	if err != nil {
		return errors.Wrap(err, errors.ServerError, "failed to build event")
	}
	if err := publisher.Publish(ctx, sessionID, event); err != nil {
		return errors.Wrap(err, errors.ServerError, "failed to publish event")
	}
	return nil
}

func matchesFilters(event types.Event, filters []types.EventType) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if event.Type == f {
			return true
		}
	}
	return false
}
