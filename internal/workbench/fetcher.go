package workbench

import (
	"context"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/types"
)

// SelectInvoice opens an invoice and loads its dossier. A response that
// arrives after the session moved on to another request is discarded with a
// conflict error.
func (s *Service) SelectInvoice(ctx context.Context, sessionID string, invoiceDBID int64) (*ReviewView, error) {
	if invoiceDBID <= 0 {
		return nil, apperrors.ValidationFailed("Invalid invoice id", "invoice id must be positive")
	}
	var gen uint64
	if _, err := s.withSession(ctx, sessionID, func(sess *Session) error {
		gen = sess.SelectInvoice(invoiceDBID)
		return nil
	}); err != nil {
		return nil, err
	}
	return s.fetch(ctx, sessionID, invoiceDBID, gen)
}

// Refresh reloads the dossier of the open invoice, keeping pending edits.
func (s *Service) Refresh(ctx context.Context, sessionID string) (*ReviewView, error) {
	var (
		gen uint64
		id  int64
	)
	if _, err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if sess.InvoiceDBID == nil {
			return apperrors.ValidationFailed("No invoice selected", "select an invoice first")
		}
		id = *sess.InvoiceDBID
		sess.FetchGeneration++
		gen = sess.FetchGeneration
		return nil
	}); err != nil {
		return nil, err
	}
	return s.fetch(ctx, sessionID, id, gen)
}

// refreshAfterMutation reloads after a successful write. The write already
// succeeded, so a failed reload is recorded on the session, not returned.
func (s *Service) refreshAfterMutation(ctx context.Context, sessionID string) {
	if _, err := s.Refresh(ctx, sessionID); err != nil && !apperrors.IsType(err, apperrors.ErrorTypeConflict) {
		s.log.Warnw("Dossier refetch after update failed", "sessionID", sessionID, "error", err)
	}
}

func (s *Service) fetch(ctx context.Context, sessionID string, invoiceDBID int64, gen uint64) (*ReviewView, error) {
	dossier, fetchErr := s.backend.ComparisonData(ctx, invoiceDBID)

	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.FetchGeneration != gen || sess.InvoiceDBID == nil || *sess.InvoiceDBID != invoiceDBID {
		s.log.Debugw("Discarding stale dossier response", "sessionID", sessionID, "invoiceDBID", invoiceDBID, "generation", gen, "current", sess.FetchGeneration)
		return nil, apperrors.NewConflictError("Dossier request superseded", "a newer request replaced this one")
	}

	if fetchErr != nil {
		sess.Dossier = nil
		sess.FetchError = failureOf(fetchErr)
		sess.touch()
		if err := s.store.Save(ctx, sess); err != nil {
			return nil, err
		}
		s.emit(ctx, types.EventTypeDossierFailed, sessionID, types.InvoiceEventPayload{InvoiceDBID: invoiceDBID})
		return nil, fetchErr
	}

	sess.Dossier = dossier
	sess.FetchError = nil
	sess.DroppedEdits = 0
	if !sess.Edits.IsEmpty() {
		valid := make(map[LineKey]bool)
		for _, k := range ResolveKeys(dossier) {
			valid[k] = true
		}
		if dropped := sess.Edits.Retain(func(k LineKey) bool { return valid[k] }); len(dropped) > 0 {
			sess.DroppedEdits = len(dropped)
			s.log.Warnw("Dropped edits that no longer match the purchase orders", "sessionID", sessionID, "keys", dropped)
		}
	}
	sess.touch()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.emit(ctx, types.EventTypeDossierLoaded, sessionID, types.InvoiceEventPayload{
		InvoiceDBID: invoiceDBID,
		InvoiceID:   dossier.InvoiceID,
		Status:      dossier.InvoiceStatus,
	})
	return BuildView(sess), nil
}

func failureOf(err error) *FetchFailure {
	if appErr, ok := apperrors.As(err); ok {
		return &FetchFailure{Type: appErr.Type, Message: appErr.Message}
	}
	return &FetchFailure{Type: apperrors.ServerError, Message: err.Error()}
}
