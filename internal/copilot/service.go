package copilot

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/internal/workbench"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// DataCanvasTitle is the side canvas title for assistant query results.
const DataCanvasTitle = "Copilot Data Results"

// Chatter sends a message to the assistant backend.
type Chatter interface {
	Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error)
}

// Workbench is the slice of the session service the assistant needs.
type Workbench interface {
	GetSession(ctx context.Context, sessionID string) (*workbench.Session, error)
	OpenCanvas(ctx context.Context, sessionID string, canvas types.Canvas) error
}

// Reply is the rendered assistant answer returned to the browser.
type Reply struct {
	Text         string          `json:"text"`
	Action       Action          `json:"uiAction"`
	Data         json.RawMessage `json:"data,omitempty"`
	Draft        string          `json:"draft,omitempty"`
	Notice       *types.Notice   `json:"notice,omitempty"`
	CanvasOpened bool            `json:"canvasOpened"`
}

type renderer func(ctx context.Context, s *Service, sessionID string, resp *types.ChatResponse, reply *Reply) error

var renderers = map[Action]renderer{
	ActionDisplayText:      renderText,
	ActionLoadData:         renderCanvas,
	ActionDisplayJSON:      renderCanvas,
	ActionDisplayMarkdown:  renderDraft,
	ActionShowToastSuccess: renderToast,
}

// Service relays assistant messages for a workbench session.
type Service struct {
	chat      Chatter
	workbench Workbench
	policy    *bluemonday.Policy
	log       *zap.SugaredLogger
}

func NewService(chat Chatter, wb Workbench) *Service {
	return &Service{
		chat:      chat,
		workbench: wb,
		policy:    bluemonday.StrictPolicy(),
		log:       logger.GetLogger().Named("copilot"),
	}
}

// Ask sends message with the session's open invoice as context. The backend
// is addressed by the invoice's string code, not its database id.
func (s *Service) Ask(ctx context.Context, sessionID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.ValidationFailed("invalid message", "message cannot be empty")
	}

	sess, err := s.workbench.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	req := types.ChatRequest{Message: message}
	if sess.Dossier != nil && sess.Dossier.InvoiceID != "" {
		code := sess.Dossier.InvoiceID
		req.CurrentInvoiceID = &code
	}

	resp, err := s.chat.Chat(ctx, req)
	if err != nil {
		s.log.Warnw("Copilot request failed", "sessionID", sessionID, "error", err)
		return nil, err
	}
	return s.Dispatch(ctx, sessionID, resp)
}

// Dispatch renders resp with the renderer for its action.
func (s *Service) Dispatch(ctx context.Context, sessionID string, resp *types.ChatResponse) (*Reply, error) {
	action, known := ParseAction(resp.UIAction)
	if !known && resp.UIAction != "" {
		s.log.Debugw("Unknown copilot action, rendering as text", "action", resp.UIAction)
	}

	reply := &Reply{Text: resp.ResponseText, Action: action}
	if hasData(resp.Data) {
		reply.Data = resp.Data
	}
	if err := renderers[action](ctx, s, sessionID, resp, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func renderText(ctx context.Context, s *Service, sessionID string, resp *types.ChatResponse, reply *Reply) error {
	return nil
}

func renderCanvas(ctx context.Context, s *Service, sessionID string, resp *types.ChatResponse, reply *Reply) error {
	if !hasData(resp.Data) {
		return nil
	}
	canvas := types.Canvas{Title: DataCanvasTitle, Kind: types.CanvasData, Data: resp.Data}
	if err := s.workbench.OpenCanvas(ctx, sessionID, canvas); err != nil {
		return err
	}
	reply.CanvasOpened = true
	return nil
}

func renderDraft(ctx context.Context, s *Service, sessionID string, resp *types.ChatResponse, reply *Reply) error {
	var payload struct {
		DraftEmail string `json:"draft_email"`
	}
	if hasData(resp.Data) {
		if err := json.Unmarshal(resp.Data, &payload); err != nil {
			s.log.Debugw("Draft payload is not an object", "error", err)
		}
	}
	if payload.DraftEmail == "" {
		notice := types.Notice{Level: types.NoticeError, Message: "Failed to generate draft."}
		reply.Notice = &notice
		return nil
	}
	reply.Draft = s.policy.Sanitize(payload.DraftEmail)
	return nil
}

func renderToast(ctx context.Context, s *Service, sessionID string, resp *types.ChatResponse, reply *Reply) error {
	notice := types.SuccessNotice(resp.ResponseText)
	reply.Notice = &notice
	return nil
}

func hasData(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
