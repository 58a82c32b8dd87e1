package handlers

import (
	"net/http"

	"github.com/NomadCrew/ap-workbench/internal/workbench"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/gin-gonic/gin"
)

// SessionHandler serves the invoice review flow of a workbench session.
type SessionHandler struct {
	workbench WorkbenchService
}

func NewSessionHandler(wb WorkbenchService) *SessionHandler {
	return &SessionHandler{workbench: wb}
}

// SetFieldRequest buffers one PO line override.
type SetFieldRequest struct {
	POID  int64  `json:"po_id" binding:"required"`
	Line  *int   `json:"line" binding:"required,min=0"`
	Field string `json:"field" binding:"required,oneof=ordered_qty unit_price"`
	Value string `json:"value"`
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

type GLCodeRequest struct {
	GLCode string `json:"gl_code"`
}

type TransitionRequest struct {
	Status types.InvoiceStatus `json:"status" binding:"required"`
	Reason string              `json:"reason"`
}

// NoticeResponse pairs a toast with the refreshed review view.
type NoticeResponse struct {
	Notice types.Notice          `json:"notice"`
	View   *workbench.ReviewView `json:"view,omitempty"`
}

// CreateSessionHandler godoc
// @Summary Start a workbench session
// @Tags sessions
// @Produce json
// @Success 201 {object} workbench.ReviewView
// @Router /sessions [post]
func (h *SessionHandler) CreateSessionHandler(c *gin.Context) {
	sess, err := h.workbench.CreateSession(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, workbench.BuildView(sess))
}

// GetSessionHandler godoc
// @Summary Get the session's review view
// @Description Returns the open invoice's dossier, line table, match trace and pending edits
// @Tags sessions
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} workbench.ReviewView
// @Failure 404 {object} types.ErrorResponse "Session not found"
// @Router /sessions/{sid} [get]
func (h *SessionHandler) GetSessionHandler(c *gin.Context) {
	view, err := h.workbench.View(c.Request.Context(), c.Param("sid"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CloseSessionHandler godoc
// @Summary Close a workbench session
// @Description Stops the session's job pollers, releases its documents and closes its event sockets
// @Tags sessions
// @Param sid path string true "Session ID"
// @Success 204
// @Failure 404 {object} types.ErrorResponse "Session not found"
// @Router /sessions/{sid} [delete]
func (h *SessionHandler) CloseSessionHandler(c *gin.Context) {
	if err := h.workbench.CloseSession(c.Request.Context(), c.Param("sid")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectInvoiceHandler godoc
// @Summary Open an invoice and load its comparison dossier
// @Tags review
// @Produce json
// @Param sid path string true "Session ID"
// @Param invoiceId path int true "Invoice database ID"
// @Success 200 {object} workbench.ReviewView
// @Failure 404 {object} types.ErrorResponse "Invoice not found"
// @Failure 409 {object} types.ErrorResponse "Superseded by a newer selection"
// @Failure 502 {object} types.ErrorResponse "Backend unreachable or invalid dossier"
// @Router /sessions/{sid}/invoices/{invoiceId} [post]
func (h *SessionHandler) SelectInvoiceHandler(c *gin.Context) {
	invoiceDBID, ok := int64Param(c, "invoiceId")
	if !ok {
		return
	}
	view, err := h.workbench.SelectInvoice(c.Request.Context(), c.Param("sid"), invoiceDBID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RefreshDossierHandler godoc
// @Summary Reload the open invoice's dossier
// @Description Retries a failed load or refetches after backend changes. Edits that no longer match a PO line are dropped and counted in dropped_edits
// @Tags review
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} workbench.ReviewView
// @Failure 400 {object} types.ErrorResponse "No invoice selected"
// @Failure 409 {object} types.ErrorResponse "Superseded by a newer request"
// @Router /sessions/{sid}/dossier/refresh [post]
func (h *SessionHandler) RefreshDossierHandler(c *gin.Context) {
	view, err := h.workbench.Refresh(c.Request.Context(), c.Param("sid"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CloseInvoiceHandler godoc
// @Summary Close the invoice detail view
// @Description Drops the dossier and any unsaved edits
// @Tags review
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} workbench.ReviewView
// @Router /sessions/{sid}/invoice [delete]
func (h *SessionHandler) CloseInvoiceHandler(c *gin.Context) {
	view, err := h.workbench.CloseInvoice(c.Request.Context(), c.Param("sid"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SetFieldHandler godoc
// @Summary Buffer a PO line edit
// @Tags review
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param request body SetFieldRequest true "Line edit"
// @Success 200 {object} workbench.ReviewView
// @Failure 400 {object} types.ErrorResponse "Non-numeric or negative value, or not an editable line"
// @Router /sessions/{sid}/edits [put]
func (h *SessionHandler) SetFieldHandler(c *gin.Context) {
	var req SetFieldRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	key := workbench.LineKey{POID: req.POID, Line: *req.Line}
	view, err := h.workbench.SetField(c.Request.Context(), c.Param("sid"), key, workbench.Field(req.Field), req.Value)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DiscardEditsHandler godoc
// @Summary Discard buffered PO line edits
// @Tags review
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} workbench.ReviewView
// @Router /sessions/{sid}/edits [delete]
func (h *SessionHandler) DiscardEditsHandler(c *gin.Context) {
	view, err := h.workbench.DiscardEdits(c.Request.Context(), c.Param("sid"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SaveEditsHandler godoc
// @Summary Save buffered PO line edits
// @Description Submits one purchase-order update per affected PO and reloads the dossier
// @Tags review
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} NoticeResponse
// @Failure 409 {object} types.ErrorResponse "A save is already in progress"
// @Failure 422 {object} types.ErrorResponse "Backend rejected an update"
// @Router /sessions/{sid}/edits/save [post]
func (h *SessionHandler) SaveEditsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sid := c.Param("sid")
	notice, err := h.workbench.SaveEdits(ctx, sid)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondWithView(c, sid, notice)
}

// SaveNotesHandler godoc
// @Summary Save reviewer notes on the open invoice
// @Tags review
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param request body NotesRequest true "Notes"
// @Success 200 {object} NoticeResponse
// @Failure 400 {object} types.ErrorResponse "No invoice loaded"
// @Router /sessions/{sid}/notes [put]
func (h *SessionHandler) SaveNotesHandler(c *gin.Context) {
	var req NotesRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	sid := c.Param("sid")
	notice, err := h.workbench.SaveNotes(c.Request.Context(), sid, req.Notes)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondWithView(c, sid, notice)
}

// SaveGLCodeHandler godoc
// @Summary Save the GL code of a non-PO invoice
// @Tags review
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param request body GLCodeRequest true "GL code"
// @Success 200 {object} NoticeResponse
// @Failure 400 {object} types.ErrorResponse "No invoice loaded"
// @Router /sessions/{sid}/gl-code [put]
func (h *SessionHandler) SaveGLCodeHandler(c *gin.Context) {
	var req GLCodeRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	sid := c.Param("sid")
	notice, err := h.workbench.SaveGLCode(c.Request.Context(), sid, req.GLCode)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondWithView(c, sid, notice)
}

// TransitionHandler godoc
// @Summary Change the open invoice's status
// @Tags review
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param request body TransitionRequest true "Target status and reason"
// @Success 200 {object} NoticeResponse
// @Failure 400 {object} types.ErrorResponse "Missing reason or transition not allowed"
// @Router /sessions/{sid}/transition [post]
func (h *SessionHandler) TransitionHandler(c *gin.Context) {
	var req TransitionRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	sid := c.Param("sid")
	notice, err := h.workbench.Transition(c.Request.Context(), sid, req.Status, req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondWithView(c, sid, notice)
}

// CloseCanvasHandler godoc
// @Summary Close the assistant side canvas
// @Tags copilot
// @Param sid path string true "Session ID"
// @Success 204
// @Router /sessions/{sid}/canvas [delete]
func (h *SessionHandler) CloseCanvasHandler(c *gin.Context) {
	if err := h.workbench.CloseCanvas(c.Request.Context(), c.Param("sid")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondWithView answers a successful write. The write already happened, so
// a failure to read the view back is not reported as an error.
func (h *SessionHandler) respondWithView(c *gin.Context, sid string, notice types.Notice) {
	view, err := h.workbench.View(c.Request.Context(), sid)
	if err != nil {
		view = nil
	}
	c.JSON(http.StatusOK, NoticeResponse{Notice: notice, View: view})
}
