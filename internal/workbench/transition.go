package workbench

import (
	"context"
	"strings"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/types"
)

// clientTransitions are the status changes a reviewer submits directly.
var clientTransitions = map[types.InvoiceStatus][]types.InvoiceStatus{
	types.InvoiceStatusNeedsReview: {
		types.InvoiceStatusApprovedForPayment,
		types.InvoiceStatusMatched,
		types.InvoiceStatusRejected,
	},
}

// backendTransitions happen as a side effect of other backend actions. The
// workbench observes them but never submits or reverses them.
var backendTransitions = map[types.InvoiceStatus][]types.InvoiceStatus{
	types.InvoiceStatusNeedsReview: {
		types.InvoiceStatusPendingVendorResponse,
		types.InvoiceStatusPendingInternalResponse,
	},
	types.InvoiceStatusApprovedForPayment: {types.InvoiceStatusPendingPayment},
	types.InvoiceStatusPendingPayment:     {types.InvoiceStatusPaid},
}

func contains(list []types.InvoiceStatus, s types.InvoiceStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether a reviewer may move from current to next.
func CanTransition(current, next types.InvoiceStatus) bool {
	return contains(clientTransitions[current], next)
}

// IsBackendTransition reports whether current to next is backend-driven.
func IsBackendTransition(current, next types.InvoiceStatus) bool {
	return contains(backendTransitions[current], next)
}

// AllowedTransitions lists the client transitions available from current.
func AllowedTransitions(current types.InvoiceStatus) []types.InvoiceStatus {
	return append([]types.InvoiceStatus(nil), clientTransitions[current]...)
}

func transitionVerb(next types.InvoiceStatus) string {
	switch next {
	case types.InvoiceStatusApprovedForPayment:
		return "approved"
	case types.InvoiceStatusRejected:
		return "rejected"
	default:
		return strings.ReplaceAll(string(next), "_", " ")
	}
}

// Transition submits a status change for the open invoice. Nothing changes
// locally until the backend confirms; on success the detail view closes and
// the invoice list is told to refresh.
func (s *Service) Transition(ctx context.Context, sessionID string, next types.InvoiceStatus, reason string) (types.Notice, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return types.Notice{}, apperrors.ValidationFailed("A reason is required", "status changes are recorded in the audit trail")
	}
	if !next.IsValid() {
		return types.Notice{}, apperrors.ValidationFailed("Invalid status", string(next))
	}

	release, err := s.acquire(ctx, sessionID, "transition")
	if err != nil {
		return types.Notice{}, err
	}
	defer release()

	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return types.Notice{}, err
	}
	if sess.InvoiceDBID == nil || sess.Dossier == nil {
		return types.Notice{}, apperrors.ValidationFailed("No invoice loaded", "select an invoice first")
	}
	invoiceDBID := *sess.InvoiceDBID
	current := sess.Dossier.InvoiceStatus
	if !CanTransition(current, next) {
		appErr := apperrors.InvalidStatusTransition(string(current), string(next))
		if IsBackendTransition(current, next) {
			appErr.Detail += " (set by the backend workflow)"
		}
		return types.Notice{}, appErr
	}

	// update-status is keyed by the invoice code, not the database id.
	code := sess.Dossier.InvoiceID
	if _, err := s.backend.UpdateStatus(ctx, code, next, reason); err != nil {
		s.log.Warnw("Status transition rejected", "sessionID", sessionID, "invoiceID", code, "to", next, "error", err)
		return types.Notice{}, err
	}

	if _, err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if sess.InvoiceDBID != nil && *sess.InvoiceDBID == invoiceDBID {
			sess.CloseInvoice()
		}
		return nil
	}); err != nil {
		return types.Notice{}, err
	}

	payload := types.InvoiceEventPayload{InvoiceDBID: invoiceDBID, InvoiceID: code, Status: next}
	s.emit(ctx, types.EventTypeInvoiceTransition, sessionID, payload)
	s.emit(ctx, types.EventTypeInvoiceListRefresh, sessionID, payload)
	s.log.Infow("Invoice status changed", "sessionID", sessionID, "invoiceID", code, "from", current, "to", next)
	return types.SuccessNotice("Invoice successfully " + transitionVerb(next) + "."), nil
}
