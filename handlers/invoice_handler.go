package handlers

import (
	"net/http"
	"strings"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler serves invoice lists, search and the collaborate tab.
type InvoiceHandler struct {
	backend InvoiceBackend
}

func NewInvoiceHandler(backend InvoiceBackend) *InvoiceHandler {
	return &InvoiceHandler{backend: backend}
}

type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// SearchHandler godoc
// @Summary Search invoices
// @Tags invoices
// @Accept json
// @Produce json
// @Param request body types.SearchRequest true "Filters and sort"
// @Success 200 {array} types.InvoiceSummary
// @Router /invoices/search [post]
func (h *InvoiceHandler) SearchHandler(c *gin.Context) {
	var req types.SearchRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	req.SortOrder = strings.ToLower(req.SortOrder)
	invoices, err := h.backend.Search(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, nonNil(invoices))
}

// ListInvoicesHandler godoc
// @Summary List invoices
// @Tags invoices
// @Produce json
// @Param status query string false "Invoice status filter"
// @Success 200 {array} types.InvoiceSummary
// @Failure 400 {object} types.ErrorResponse "Unknown status"
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoicesHandler(c *gin.Context) {
	status := types.InvoiceStatus(strings.ToLower(c.Query("status")))
	if status != "" && !status.IsValid() {
		_ = c.Error(apperrors.ValidationFailed("invalid status filter", "unknown invoice status "+string(status)))
		return
	}
	invoices, err := h.backend.ListInvoices(c.Request.Context(), status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, nonNil(invoices))
}

// CommentsHandler godoc
// @Summary List an invoice's comments
// @Tags invoices
// @Produce json
// @Param invoiceId path int true "Invoice database ID"
// @Success 200 {array} types.Comment
// @Router /invoices/{invoiceId}/comments [get]
func (h *InvoiceHandler) CommentsHandler(c *gin.Context) {
	id, ok := int64Param(c, "invoiceId")
	if !ok {
		return
	}
	comments, err := h.backend.Comments(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if comments == nil {
		comments = []types.Comment{}
	}
	c.JSON(http.StatusOK, comments)
}

// AddCommentHandler godoc
// @Summary Comment on an invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Param invoiceId path int true "Invoice database ID"
// @Param request body CommentRequest true "Comment text"
// @Success 201 {object} types.Comment
// @Failure 400 {object} types.ErrorResponse "Empty comment"
// @Router /invoices/{invoiceId}/comments [post]
func (h *InvoiceHandler) AddCommentHandler(c *gin.Context) {
	id, ok := int64Param(c, "invoiceId")
	if !ok {
		return
	}
	var req CommentRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		_ = c.Error(apperrors.ValidationFailed("Comment cannot be empty", ""))
		return
	}
	comment, err := h.backend.AddComment(c.Request.Context(), id, text)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// AuditLogHandler godoc
// @Summary Get an invoice's audit log
// @Tags invoices
// @Produce json
// @Param invoiceId path int true "Invoice database ID"
// @Success 200 {array} types.AuditLogEntry
// @Router /invoices/{invoiceId}/audit-log [get]
func (h *InvoiceHandler) AuditLogHandler(c *gin.Context) {
	id, ok := int64Param(c, "invoiceId")
	if !ok {
		return
	}
	entries, err := h.backend.AuditLog(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if entries == nil {
		entries = []types.AuditLogEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func nonNil(invoices []types.InvoiceSummary) []types.InvoiceSummary {
	if invoices == nil {
		return []types.InvoiceSummary{}
	}
	return invoices
}
