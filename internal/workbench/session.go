package workbench

import (
	"time"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/google/uuid"
)

// FetchFailure is the last dossier fetch error, kept so the UI can offer retry.
type FetchFailure struct {
	Type    apperrors.ErrorType `json:"type"`
	Message string              `json:"message"`
}

// Session is the explicit per-browser application state: the selected
// invoice, its dossier, pending edits and the side canvas.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceDBID     *int64                   `json:"invoice_db_id,omitempty"`
	Dossier         *types.ComparisonDossier `json:"dossier,omitempty"`
	FetchGeneration uint64                   `json:"fetch_generation"`
	FetchError      *FetchFailure            `json:"fetch_error,omitempty"`
	Edits           EditBuffer               `json:"edits"`
	// DroppedEdits counts overrides the last refetch could no longer place.
	DroppedEdits int `json:"dropped_edits,omitempty"`

	Canvas *types.Canvas `json:"canvas,omitempty"`
	Jobs   []int64       `json:"jobs,omitempty"`
}

// NewSession creates an empty session with a fresh id.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
		Edits:     *NewEditBuffer(),
	}
}

// SelectInvoice opens the detail view for an invoice. Any previous dossier
// and unsaved edits are dropped and the fetch generation advances.
func (s *Session) SelectInvoice(invoiceDBID int64) uint64 {
	id := invoiceDBID
	s.InvoiceDBID = &id
	s.Dossier = nil
	s.FetchError = nil
	s.Edits.Discard()
	s.FetchGeneration++
	return s.FetchGeneration
}

// CloseInvoice closes the detail view. Late fetch results are discarded.
func (s *Session) CloseInvoice() {
	s.InvoiceDBID = nil
	s.Dossier = nil
	s.FetchError = nil
	s.Edits.Discard()
	s.FetchGeneration++
}

// HasInvoice reports whether a detail view is open.
func (s *Session) HasInvoice() bool {
	return s.InvoiceDBID != nil
}

func (s *Session) OpenCanvas(c types.Canvas) {
	s.Canvas = &c
}

func (s *Session) CloseCanvas() {
	s.Canvas = nil
}

// TrackJob records a watched job id once.
func (s *Session) TrackJob(jobID int64) {
	for _, id := range s.Jobs {
		if id == jobID {
			return
		}
	}
	s.Jobs = append(s.Jobs, jobID)
}

func (s *Session) UntrackJob(jobID int64) {
	for i, id := range s.Jobs {
		if id == jobID {
			s.Jobs = append(s.Jobs[:i], s.Jobs[i+1:]...)
			return
		}
	}
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
