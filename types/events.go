package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/NomadCrew/ap-workbench/errors"
	"github.com/google/uuid"
)

type EventType string

const (
	CategoryInvoice = "INVOICE"
	CategoryDossier = "DOSSIER"
	CategoryJob     = "JOB"
	CategoryCanvas  = "CANVAS"
	CategorySession = "SESSION"
)

const (
	// Invoice list events
	EventTypeInvoiceListRefresh EventType = CategoryInvoice + "_LIST_REFRESH"
	EventTypeInvoiceTransition  EventType = CategoryInvoice + "_STATUS_CHANGED"

	// Dossier events
	EventTypeDossierLoaded EventType = CategoryDossier + "_LOADED"
	EventTypeDossierFailed EventType = CategoryDossier + "_FAILED"

	// Job events
	EventTypeJobProgress EventType = CategoryJob + "_PROGRESS"
	EventTypeJobFinished EventType = CategoryJob + "_FINISHED"
	EventTypeJobFailed   EventType = CategoryJob + "_POLL_FAILED"

	// Canvas events
	EventTypeCanvasOpened EventType = CategoryCanvas + "_OPENED"
	EventTypeCanvasClosed EventType = CategoryCanvas + "_CLOSED"

	EventTypeSessionClosed EventType = CategorySession + "_CLOSED"
)

// Event is pushed to a session's subscribers.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Validate checks the fields every publisher relies on.
func (e Event) Validate() error {
	if e.Type == "" {
		return errors.ValidationFailed("invalid event", "event type is required")
	}
	if e.SessionID == "" {
		return errors.ValidationFailed("invalid event", "session ID is required")
	}
	return nil
}

// NewEvent builds an event with a fresh id and the payload JSON-encoded.
func NewEvent(eventType EventType, sessionID string, payload interface{}) (Event, error) {
	ev := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		ev.Payload = data
	}
	return ev, nil
}

// JobEventPayload accompanies job progress and completion events.
type JobEventPayload struct {
	Job      Job     `json:"job"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

// InvoiceEventPayload accompanies invoice status and refresh events.
type InvoiceEventPayload struct {
	InvoiceDBID int64         `json:"invoiceDbId"`
	InvoiceID   string        `json:"invoiceId,omitempty"`
	Status      InvoiceStatus `json:"status,omitempty"`
}
