package documents

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxDocumentBytes caps a single loaded document.
const MaxDocumentBytes = 25 << 20

// Slot is a viewer pane. A session holds at most one handle per slot.
type Slot string

const (
	SlotInvoice Slot = "invoice"
	SlotPO      Slot = "po"
	SlotGRN     Slot = "grn"
)

// ParseSlot accepts a slot name case-insensitively.
func ParseSlot(raw string) (Slot, error) {
	switch s := Slot(strings.ToLower(strings.TrimSpace(raw))); s {
	case SlotInvoice, SlotPO, SlotGRN:
		return s, nil
	case "":
		return SlotInvoice, nil
	default:
		return "", apperrors.ValidationFailed("invalid document slot", fmt.Sprintf("unknown slot %q", raw))
	}
}

// Handle is a loaded document owned by one session slot.
type Handle struct {
	ID          string    `json:"handle"`
	SessionID   string    `json:"sessionId"`
	Slot        Slot      `json:"slot"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int       `json:"size"`
	OpenedAt    time.Time `json:"openedAt"`

	data []byte
}

// Bytes returns the document content.
func (h *Handle) Bytes() []byte {
	return h.data
}

type slotKey struct {
	sessionID string
	slot      Slot
}

// SessionChecker reports a NotFound error once a session is gone.
type SessionChecker interface {
	Exists(ctx context.Context, sessionID string) error
}

// Registry owns the document handles of every session.
type Registry struct {
	source   Source
	sessions SessionChecker
	maxOpen  int
	maxBytes int
	log      *zap.SugaredLogger
	metrics  *registryMetrics

	mu      sync.Mutex
	handles map[string]*Handle
	slots   map[slotKey]string
}

// NewRegistry loads documents from source. maxOpen bounds the handles held
// across all sessions; zero means unbounded.
func NewRegistry(source Source, maxOpen int) *Registry {
	return &Registry{
		source:   source,
		maxOpen:  maxOpen,
		maxBytes: MaxDocumentBytes,
		log:      logger.GetLogger().Named("documents"),
		metrics:  newRegistryMetrics(),
		handles:  make(map[string]*Handle),
		slots:    make(map[slotKey]string),
	}
}

// TrackSessions lets Sweep release the handles of expired sessions.
func (r *Registry) TrackSessions(sessions SessionChecker) {
	r.sessions = sessions
}

// Open loads name into the session's slot, releasing whatever the slot held.
func (r *Registry) Open(ctx context.Context, sessionID string, slot Slot, name string) (*Handle, error) {
	if sessionID == "" {
		return nil, apperrors.ValidationFailed("invalid document request", "session ID is required")
	}

	blob, err := r.source.Fetch(ctx, name)
	if err != nil {
		r.metrics.loads.WithLabelValues("error").Inc()
		r.log.Warnw("Failed to fetch document", "source", r.source.String(), "name", name, "error", err)
		return nil, err
	}
	defer blob.Body.Close()

	data, err := io.ReadAll(io.LimitReader(blob.Body, int64(r.maxBytes)+1))
	if err != nil {
		r.metrics.loads.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(err, apperrors.NetworkError, "Failed to fetch file: "+name)
	}
	if len(data) > r.maxBytes {
		r.metrics.loads.WithLabelValues("too_large").Inc()
		return nil, apperrors.ValidationFailed("document too large", fmt.Sprintf("%s exceeds %d bytes", name, r.maxBytes))
	}

	handle := &Handle{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Slot:        slot,
		Name:        name,
		ContentType: detectContentType(blob.ContentType, data),
		Size:        len(data),
		OpenedAt:    time.Now().UTC(),
		data:        data,
	}

	if r.maxOpen > 0 && r.Count() >= r.maxOpen {
		r.Sweep(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := slotKey{sessionID: sessionID, slot: slot}
	previous, hadPrevious := r.slots[key]
	if r.maxOpen > 0 && len(r.handles) >= r.maxOpen && !hadPrevious {
		r.metrics.loads.WithLabelValues("rejected").Inc()
		return nil, apperrors.NewConflictError("Too many open documents", fmt.Sprintf("limit is %d", r.maxOpen))
	}
	if hadPrevious {
		r.releaseLocked(previous)
	}
	r.handles[handle.ID] = handle
	r.slots[key] = handle.ID
	r.metrics.openHandles.Inc()
	r.metrics.loads.WithLabelValues("ok").Inc()

	r.log.Debugw("Opened document", "sessionID", sessionID, "slot", slot, "name", name, "size", handle.Size)
	return handle, nil
}

// Get returns an open handle.
func (r *Registry) Get(handleID string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[handleID]
	if !ok {
		return nil, apperrors.NotFound("Document", handleID)
	}
	return h, nil
}

// Release frees a single handle.
func (r *Registry) Release(handleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[handleID]; !ok {
		return apperrors.NotFound("Document", handleID)
	}
	r.releaseLocked(handleID)
	return nil
}

// ReleaseSession frees every handle the session holds. Its signature matches
// the workbench close hook.
func (r *Registry) ReleaseSession(ctx context.Context, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, id := range r.slots {
		if key.sessionID == sessionID {
			r.releaseLocked(id)
		}
	}
}

// Sweep releases the handles of sessions that no longer exist and returns
// how many were freed. Sessions whose check fails for another reason keep
// their handles.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.sessions == nil {
		return 0
	}

	r.mu.Lock()
	owners := make(map[string]struct{})
	for key := range r.slots {
		owners[key.sessionID] = struct{}{}
	}
	r.mu.Unlock()

	var gone []string
	for sessionID := range owners {
		err := r.sessions.Exists(ctx, sessionID)
		if apperrors.IsType(err, apperrors.NotFoundError) {
			gone = append(gone, sessionID)
		} else if err != nil {
			r.log.Debugw("Session check failed during sweep", "sessionID", sessionID, "error", err)
		}
	}

	freed := 0
	r.mu.Lock()
	for _, sessionID := range gone {
		for key, id := range r.slots {
			if key.sessionID == sessionID {
				r.releaseLocked(id)
				freed++
			}
		}
	}
	r.mu.Unlock()

	if freed > 0 {
		r.log.Infow("Released documents of expired sessions", "sessions", len(gone), "handles", freed)
	}
	return freed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Session lists the handles held by sessionID.
func (r *Registry) Session(sessionID string) []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Handle
	for _, h := range r.handles {
		if h.SessionID == sessionID {
			out = append(out, h)
		}
	}
	return out
}

// Count returns the number of open handles.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func (r *Registry) releaseLocked(handleID string) {
	h, ok := r.handles[handleID]
	if !ok {
		return
	}
	delete(r.handles, handleID)
	key := slotKey{sessionID: h.SessionID, slot: h.Slot}
	if r.slots[key] == handleID {
		delete(r.slots, key)
	}
	r.metrics.openHandles.Dec()
}

// detectContentType trusts a specific header and sniffs the bytes otherwise.
func detectContentType(header string, data []byte) string {
	if header != "" && !strings.HasPrefix(header, "application/octet-stream") {
		return header
	}
	return mimetype.Detect(data).String()
}
