package handlers

import (
	"net/http"
	"testing"

	"github.com/NomadCrew/ap-workbench/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupInvoiceRouter() (*gin.Engine, *MockInvoiceBackend) {
	backend := new(MockInvoiceBackend)
	h := NewInvoiceHandler(backend)
	r := newTestRouter()
	r.GET("/invoices", h.ListInvoicesHandler)
	r.POST("/invoices/search", h.SearchHandler)
	r.GET("/invoices/:invoiceId/comments", h.CommentsHandler)
	r.POST("/invoices/:invoiceId/comments", h.AddCommentHandler)
	r.GET("/invoices/:invoiceId/audit-log", h.AuditLogHandler)
	return r, backend
}

func TestSearchHandler(t *testing.T) {
	t.Run("forwards filters", func(t *testing.T) {
		r, backend := setupInvoiceRouter()
		backend.On("Search", mock.Anything, mock.MatchedBy(func(req types.SearchRequest) bool {
			return len(req.Filters) == 1 &&
				req.Filters[0].Field == "vendor_name" &&
				req.Filters[0].Operator == types.OpContains &&
				req.SortOrder == "desc"
		})).Return([]types.InvoiceSummary{{ID: 3, InvoiceID: "INV-3"}}, nil)

		w := performRequest(r, http.MethodPost, "/invoices/search", gin.H{
			"filters":    []gin.H{{"field": "vendor_name", "operator": "contains", "value": "Acme"}},
			"sort_by":    "invoice_date",
			"sort_order": "DESC",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "INV-3")
	})

	t.Run("empty result is an array", func(t *testing.T) {
		r, backend := setupInvoiceRouter()
		backend.On("Search", mock.Anything, mock.Anything).Return(nil, nil)

		w := performRequest(r, http.MethodPost, "/invoices/search", gin.H{"filters": []gin.H{}})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		r, _ := setupInvoiceRouter()

		w := performRequest(r, http.MethodPost, "/invoices/search", "{")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListInvoicesHandler(t *testing.T) {
	r, backend := setupInvoiceRouter()
	backend.On("ListInvoices", mock.Anything, types.InvoiceStatusNeedsReview).
		Return([]types.InvoiceSummary{{ID: 1, InvoiceID: "INV-1"}}, nil)

	w := performRequest(r, http.MethodGet, "/invoices?status=needs_review", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodGet, "/invoices?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommentHandlers(t *testing.T) {
	r, backend := setupInvoiceRouter()
	backend.On("Comments", mock.Anything, int64(12)).Return(nil, nil)
	backend.On("AddComment", mock.Anything, int64(12), "looks right").
		Return(&types.Comment{ID: 1, Text: "looks right", CreatedAt: "2026-01-02T03:04:05Z"}, nil)
	backend.On("AuditLog", mock.Anything, int64(12)).
		Return([]types.AuditLogEntry{{ID: 4, Timestamp: "2026-01-02T03:04:05Z", Action: "status_change"}}, nil)

	w := performRequest(r, http.MethodGet, "/invoices/12/comments", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = performRequest(r, http.MethodPost, "/invoices/12/comments", gin.H{"text": "  looks right "})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = performRequest(r, http.MethodPost, "/invoices/12/comments", gin.H{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodGet, "/invoices/12/audit-log", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "status_change")

	w = performRequest(r, http.MethodGet, "/invoices/-1/audit-log", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
