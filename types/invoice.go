package types

// InvoiceStatus is the lifecycle state of an invoice as reported by the backend.
type InvoiceStatus string

const (
	InvoiceStatusIngested                InvoiceStatus = "ingested"
	InvoiceStatusMatching                InvoiceStatus = "matching"
	InvoiceStatusPendingMatch            InvoiceStatus = "pending_match"
	InvoiceStatusNeedsReview             InvoiceStatus = "needs_review"
	InvoiceStatusMatched                 InvoiceStatus = "matched"
	InvoiceStatusApprovedForPayment      InvoiceStatus = "approved_for_payment"
	InvoiceStatusRejected                InvoiceStatus = "rejected"
	InvoiceStatusPendingVendorResponse   InvoiceStatus = "pending_vendor_response"
	InvoiceStatusPendingInternalResponse InvoiceStatus = "pending_internal_response"
	InvoiceStatusPendingPayment          InvoiceStatus = "pending_payment"
	InvoiceStatusPaid                    InvoiceStatus = "paid"
)

var knownInvoiceStatuses = map[InvoiceStatus]struct{}{
	InvoiceStatusIngested:                {},
	InvoiceStatusMatching:                {},
	InvoiceStatusPendingMatch:            {},
	InvoiceStatusNeedsReview:             {},
	InvoiceStatusMatched:                 {},
	InvoiceStatusApprovedForPayment:      {},
	InvoiceStatusRejected:                {},
	InvoiceStatusPendingVendorResponse:   {},
	InvoiceStatusPendingInternalResponse: {},
	InvoiceStatusPendingPayment:          {},
	InvoiceStatusPaid:                    {},
}

// IsValid reports whether s is one of the statuses the backend defines.
func (s InvoiceStatus) IsValid() bool {
	_, ok := knownInvoiceStatuses[s]
	return ok
}

// InvoiceSummary is the lightweight invoice record used by lists and search.
type InvoiceSummary struct {
	ID             int64    `json:"id" validate:"required"`
	InvoiceID      string   `json:"invoice_id" validate:"required"`
	VendorName     *string  `json:"vendor_name"`
	GrandTotal     *float64 `json:"grand_total"`
	Status         string   `json:"status" validate:"required"`
	InvoiceDate    *string  `json:"invoice_date"`
	ReviewCategory *string  `json:"review_category,omitempty"`
	PaymentBatchID *string  `json:"payment_batch_id,omitempty"`
}

// UpdateStatusRequest is the body of the backend update-status call.
type UpdateStatusRequest struct {
	NewStatus InvoiceStatus `json:"new_status"`
	Reason    string        `json:"reason"`
}

// MessageResponse is the generic {"message": ...} acknowledgement the backend returns.
type MessageResponse struct {
	Message string `json:"message"`
}
