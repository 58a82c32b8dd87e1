// Package workbench holds the per-session invoice review state: the selected
// invoice, its comparison dossier, unsaved PO line edits and the side canvas.
package workbench

import (
	"context"
	"strings"
	"sync"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/internal/events"
	"github.com/NomadCrew/ap-workbench/internal/matchtrace"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/types"
	"go.uber.org/zap"
)

// Backend is the subset of the AP backend the workbench calls.
type Backend interface {
	ComparisonData(ctx context.Context, invoiceDBID int64) (*types.ComparisonDossier, error)
	UpdatePurchaseOrder(ctx context.Context, poDBID int64, lines []types.POLineItem) error
	UpdateNotes(ctx context.Context, invoiceDBID int64, notes string) error
	UpdateGLCode(ctx context.Context, invoiceDBID int64, glCode string) error
	UpdateStatus(ctx context.Context, invoiceCode string, status types.InvoiceStatus, reason string) (*types.MessageResponse, error)
}

// SubmitGuard rejects a second submission of the same action while the first
// is in flight.
type SubmitGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// CloseHook releases resources bound to a session when it closes.
type CloseHook func(ctx context.Context, sessionID string)

// ReviewView is everything the browser renders for the open invoice.
type ReviewView struct {
	SessionID    string                     `json:"session_id"`
	InvoiceDBID  *int64                     `json:"invoice_db_id,omitempty"`
	Mode         ReviewMode                 `json:"mode,omitempty"`
	Dossier      *types.ComparisonDossier   `json:"dossier,omitempty"`
	Lines        []LineRow                  `json:"lines,omitempty"`
	Trace        []matchtrace.StepView      `json:"trace,omitempty"`
	Exceptions   []matchtrace.ExceptionView `json:"exceptions,omitempty"`
	PendingEdits int                        `json:"pending_edits"`
	DroppedEdits int                        `json:"dropped_edits,omitempty"`
	FetchError   *FetchFailure              `json:"fetch_error,omitempty"`
	Canvas       *types.Canvas              `json:"canvas,omitempty"`
}

// Service serializes work on each session and persists it through a Store.
type Service struct {
	backend   Backend
	store     Store
	publisher events.Publisher
	guard     SubmitGuard
	log       *zap.SugaredLogger

	mu         sync.Mutex
	locks      map[string]*sync.Mutex
	closeHooks []CloseHook
}

func NewService(backend Backend, store Store, publisher events.Publisher, guard SubmitGuard) *Service {
	return &Service{
		backend:   backend,
		store:     store,
		publisher: publisher,
		guard:     guard,
		log:       logger.GetLogger().Named("workbench"),
		locks:     make(map[string]*sync.Mutex),
	}
}

// OnSessionClose registers a hook run after a session is closed.
func (s *Service) OnSessionClose(hook CloseHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeHooks = append(s.closeHooks, hook)
}

func (s *Service) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// withSession loads the session under its lock, applies fn and saves the
// result when fn succeeds.
func (s *Service) withSession(ctx context.Context, sessionID string, fn func(*Session) error) (*Session, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.touch()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// CreateSession starts an empty workbench session.
func (s *Service) CreateSession(ctx context.Context) (*Session, error) {
	sess := NewSession()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Infow("Session created", "sessionID", sess.ID)
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	unlock := s.lock(sessionID)
	defer unlock()
	return s.store.Get(ctx, sessionID)
}

// Exists reports a NotFound error for unknown or expired sessions.
func (s *Service) Exists(ctx context.Context, sessionID string) error {
	_, err := s.GetSession(ctx, sessionID)
	return err
}

// Mutate applies fn to the session under its lock.
func (s *Service) Mutate(ctx context.Context, sessionID string, fn func(*Session) error) (*Session, error) {
	return s.withSession(ctx, sessionID, fn)
}

// CloseSession deletes the session and releases everything bound to it.
func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	unlock := s.lock(sessionID)
	err := s.store.Delete(ctx, sessionID)
	unlock()
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.locks, sessionID)
	hooks := append([]CloseHook(nil), s.closeHooks...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, sessionID)
	}
	s.emit(ctx, types.EventTypeSessionClosed, sessionID, nil)
	s.log.Infow("Session closed", "sessionID", sessionID)
	return nil
}

// View returns the current review view of a session.
func (s *Service) View(ctx context.Context, sessionID string) (*ReviewView, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return BuildView(sess), nil
}

// BuildView derives the review view from session state.
func BuildView(sess *Session) *ReviewView {
	view := &ReviewView{
		SessionID:    sess.ID,
		InvoiceDBID:  sess.InvoiceDBID,
		PendingEdits: sess.Edits.Len(),
		DroppedEdits: sess.DroppedEdits,
		FetchError:   sess.FetchError,
		Canvas:       sess.Canvas,
	}
	if sess.Dossier == nil {
		return view
	}
	view.Dossier = sess.Dossier
	view.Mode = ModeFor(sess.Dossier)
	view.Lines = LineTable(sess.Dossier, &sess.Edits)
	view.Trace = matchtrace.Render(sess.Dossier.MatchTrace)
	view.Exceptions = matchtrace.Summarize(sess.Dossier.MatchTrace)
	return view
}

// CloseInvoice closes the detail view, dropping unsaved edits.
func (s *Service) CloseInvoice(ctx context.Context, sessionID string) (*ReviewView, error) {
	sess, err := s.withSession(ctx, sessionID, func(sess *Session) error {
		sess.CloseInvoice()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return BuildView(sess), nil
}

// SetField buffers one PO line override.
func (s *Service) SetField(ctx context.Context, sessionID string, key LineKey, field Field, raw string) (*ReviewView, error) {
	sess, err := s.withSession(ctx, sessionID, func(sess *Session) error {
		if sess.Dossier == nil {
			return apperrors.ValidationFailed("No invoice loaded", "select an invoice before editing")
		}
		if ModeFor(sess.Dossier) == ReviewModeNonPO {
			return apperrors.ValidationFailed("Line items are not editable", "invoice has no purchase order lines")
		}
		if !editable(sess.Dossier, key) {
			return apperrors.ValidationFailed("Invalid line", "line "+key.String()+" is not an editable PO line")
		}
		return sess.Edits.SetField(key, field, raw)
	})
	if err != nil {
		return nil, err
	}
	return BuildView(sess), nil
}

func editable(d *types.ComparisonDossier, key LineKey) bool {
	for _, k := range ResolveKeys(d) {
		if k == key {
			return true
		}
	}
	return false
}

// DiscardEdits drops every unsaved override.
func (s *Service) DiscardEdits(ctx context.Context, sessionID string) (*ReviewView, error) {
	sess, err := s.withSession(ctx, sessionID, func(sess *Session) error {
		sess.Edits.Discard()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return BuildView(sess), nil
}

// SaveNotes updates the invoice's reference notes and reloads the dossier.
func (s *Service) SaveNotes(ctx context.Context, sessionID, notes string) (types.Notice, error) {
	id, err := s.openInvoice(ctx, sessionID)
	if err != nil {
		return types.Notice{}, err
	}
	if err := s.backend.UpdateNotes(ctx, id, notes); err != nil {
		return types.Notice{}, err
	}
	s.refreshAfterMutation(ctx, sessionID)
	return types.SuccessNotice("Notes saved successfully!"), nil
}

// SaveGLCode assigns a GL code on the non-PO review path.
func (s *Service) SaveGLCode(ctx context.Context, sessionID, glCode string) (types.Notice, error) {
	code := strings.TrimSpace(glCode)
	if code == "" {
		return types.Notice{}, apperrors.ValidationFailed("GL Code cannot be empty.", "")
	}
	id, err := s.openInvoice(ctx, sessionID)
	if err != nil {
		return types.Notice{}, err
	}
	if err := s.backend.UpdateGLCode(ctx, id, code); err != nil {
		return types.Notice{}, err
	}
	s.refreshAfterMutation(ctx, sessionID)
	return types.SuccessNotice("GL Code saved!"), nil
}

func (s *Service) openInvoice(ctx context.Context, sessionID string) (int64, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if sess.InvoiceDBID == nil {
		return 0, apperrors.ValidationFailed("No invoice selected", "select an invoice first")
	}
	return *sess.InvoiceDBID, nil
}

// OpenCanvas shows content in the side canvas.
func (s *Service) OpenCanvas(ctx context.Context, sessionID string, canvas types.Canvas) error {
	if _, err := s.withSession(ctx, sessionID, func(sess *Session) error {
		sess.OpenCanvas(canvas)
		return nil
	}); err != nil {
		return err
	}
	s.emit(ctx, types.EventTypeCanvasOpened, sessionID, canvas)
	return nil
}

// CloseCanvas hides the side canvas.
func (s *Service) CloseCanvas(ctx context.Context, sessionID string) error {
	if _, err := s.withSession(ctx, sessionID, func(sess *Session) error {
		sess.CloseCanvas()
		return nil
	}); err != nil {
		return err
	}
	s.emit(ctx, types.EventTypeCanvasClosed, sessionID, nil)
	return nil
}

// emit publishes best-effort; a lost event never fails the operation.
func (s *Service) emit(ctx context.Context, eventType types.EventType, sessionID string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := events.Emit(ctx, s.publisher, eventType, sessionID, payload); err != nil {
		s.log.Warnw("Failed to publish event", "type", eventType, "sessionID", sessionID, "error", err)
	}
}

func (s *Service) acquire(ctx context.Context, sessionID, action string) (func(), error) {
	if s.guard == nil {
		return func() {}, nil
	}
	return s.guard.Acquire(ctx, "submit:"+sessionID+":"+action)
}
