package types

import "encoding/json"

// ChatRequest is the body of the backend copilot call.
type ChatRequest struct {
	Message          string  `json:"message"`
	CurrentInvoiceID *string `json:"current_invoice_id"`
}

// ChatResponse is the raw assistant reply. UIAction is a rendering directive
// that internal/copilot decodes into a closed set of actions.
type ChatResponse struct {
	ResponseText string          `json:"responseText"`
	UIAction     string          `json:"uiAction"`
	Data         json.RawMessage `json:"data"`
}

// CanvasKind selects what the side canvas shows.
type CanvasKind string

const (
	CanvasData    CanvasKind = "data"
	CanvasCopilot CanvasKind = "copilot"
)

// Canvas is the side-panel content held in session state.
type Canvas struct {
	Title string          `json:"title"`
	Kind  CanvasKind      `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
}
