package apclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/NomadCrew/ap-workbench/types"
)

// ComparisonData fetches the review dossier for an invoice by database id.
func (c *Client) ComparisonData(ctx context.Context, invoiceDBID int64) (*types.ComparisonDossier, error) {
	var dossier types.ComparisonDossier
	path := fmt.Sprintf("/invoices/%d/comparison-data", invoiceDBID)
	if err := c.doJSON(ctx, "comparison_data", http.MethodGet, path, nil, &dossier, "Failed to fetch comparison data"); err != nil {
		return nil, err
	}
	return &dossier, nil
}

type purchaseOrderUpdate struct {
	LineItems []types.POLineItem `json:"line_items"`
}

// UpdatePurchaseOrder replaces the full line array of a purchase order.
func (c *Client) UpdatePurchaseOrder(ctx context.Context, poDBID int64, lines []types.POLineItem) error {
	path := fmt.Sprintf("/documents/purchase-orders/%d", poDBID)
	return c.doJSON(ctx, "update_purchase_order", http.MethodPut, path,
		purchaseOrderUpdate{LineItems: lines}, nil, "Failed to update Purchase Order")
}

// UpdateNotes sets the free-text reference notes of an invoice.
func (c *Client) UpdateNotes(ctx context.Context, invoiceDBID int64, notes string) error {
	path := fmt.Sprintf("/invoices/%d/notes", invoiceDBID)
	body := map[string]string{"notes": notes}
	return c.doJSON(ctx, "update_notes", http.MethodPut, path, body, nil, "Failed to update notes")
}

// UpdateGLCode assigns a GL code to a non-PO invoice.
func (c *Client) UpdateGLCode(ctx context.Context, invoiceDBID int64, glCode string) error {
	path := fmt.Sprintf("/invoices/%d/gl-code", invoiceDBID)
	body := map[string]string{"gl_code": glCode}
	return c.doJSON(ctx, "update_gl_code", http.MethodPut, path, body, nil, "Failed to update GL Code")
}

// UpdateStatus moves an invoice to a new status. This endpoint is keyed by the
// human-facing invoice code, not the database id.
func (c *Client) UpdateStatus(ctx context.Context, invoiceCode string, status types.InvoiceStatus, reason string) (*types.MessageResponse, error) {
	var resp types.MessageResponse
	path := fmt.Sprintf("/invoices/%s/update-status", url.PathEscape(invoiceCode))
	body := types.UpdateStatusRequest{NewStatus: status, Reason: reason}
	if err := c.doJSON(ctx, "update_status", http.MethodPost, path, body, &resp, "Failed to update status"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListInvoices returns invoice summaries, optionally filtered by status.
func (c *Client) ListInvoices(ctx context.Context, status types.InvoiceStatus) ([]types.InvoiceSummary, error) {
	path := "/invoices/"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out []types.InvoiceSummary
	if err := c.doJSON(ctx, "list_invoices", http.MethodGet, path, nil, &out, "Failed to fetch invoices"); err != nil {
		return nil, err
	}
	return out, nil
}

// Comments lists the reviewer comments on an invoice.
func (c *Client) Comments(ctx context.Context, invoiceDBID int64) ([]types.Comment, error) {
	var out []types.Comment
	path := fmt.Sprintf("/invoices/%d/comments", invoiceDBID)
	if err := c.doJSON(ctx, "list_comments", http.MethodGet, path, nil, &out, "Failed to fetch comments"); err != nil {
		return nil, err
	}
	return out, nil
}

// AddComment posts a reviewer comment.
func (c *Client) AddComment(ctx context.Context, invoiceDBID int64, text string) (*types.Comment, error) {
	var out types.Comment
	path := fmt.Sprintf("/invoices/%d/comments", invoiceDBID)
	body := map[string]string{"text": text}
	if err := c.doJSON(ctx, "add_comment", http.MethodPost, path, body, &out, "Failed to add comment"); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuditLog returns the audit trail of an invoice.
func (c *Client) AuditLog(ctx context.Context, invoiceDBID int64) ([]types.AuditLogEntry, error) {
	var out []types.AuditLogEntry
	path := fmt.Sprintf("/invoices/%d/audit-log", invoiceDBID)
	if err := c.doJSON(ctx, "audit_log", http.MethodGet, path, nil, &out, "Failed to fetch audit log"); err != nil {
		return nil, err
	}
	return out, nil
}
