package types

import (
	"encoding/json"
	"fmt"
)

// TraceStatus is the outcome of a single match-engine check.
type TraceStatus string

const (
	TracePass TraceStatus = "PASS"
	TraceFail TraceStatus = "FAIL"
	TraceInfo TraceStatus = "INFO"
)

// FinalResultStep names the synthetic summary step appended by the match engine.
const FinalResultStep = "Final Result"

// MatchTraceStep is one ordered record of the backend's matching run.
type MatchTraceStep struct {
	Step    string                 `json:"step" validate:"required"`
	Status  TraceStatus            `json:"status" validate:"required,oneof=PASS FAIL INFO"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Suggestion is a system-generated recommendation derived from learned heuristics.
type Suggestion struct {
	Message    string  `json:"message"`
	Action     string  `json:"action" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0"`
}

// POLineItem is a purchase-order line. Fields the workbench does not model are
// kept in Extra and written back unchanged, so a whole-document PO update
// never drops backend data.
type POLineItem struct {
	ID                  *int64   `json:"id,omitempty"`
	Description         *string  `json:"description,omitempty"`
	OrderedQty          *float64 `json:"ordered_qty,omitempty"`
	UnitPrice           *float64 `json:"unit_price,omitempty"`
	LineTotal           *float64 `json:"line_total,omitempty"`
	Unit                *string  `json:"unit,omitempty"`
	NormalizedQty       *float64 `json:"normalized_qty,omitempty"`
	NormalizedUnit      *string  `json:"normalized_unit,omitempty"`
	NormalizedUnitPrice *float64 `json:"normalized_unit_price,omitempty"`
	PONumber            *string  `json:"po_number,omitempty"`
	PODBID              *int64   `json:"po_db_id,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var poLineKnownFields = map[string]struct{}{
	"id": {}, "description": {}, "ordered_qty": {}, "unit_price": {}, "line_total": {},
	"unit": {}, "normalized_qty": {}, "normalized_unit": {}, "normalized_unit_price": {},
	"po_number": {}, "po_db_id": {},
}

// poLineAlias drops the custom methods to avoid recursion.
type poLineAlias POLineItem

func (p *POLineItem) UnmarshalJSON(data []byte) error {
	var known poLineAlias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range poLineKnownFields {
		delete(all, k)
	}
	*p = POLineItem(known)
	if len(all) > 0 {
		p.Extra = all
	}
	return nil
}

func (p POLineItem) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(poLineAlias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return base, nil
	}
	merged := make(map[string]json.RawMessage, len(p.Extra)+len(poLineKnownFields))
	for k, v := range p.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, fmt.Errorf("re-reading po line: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Clone returns a deep copy, including the preserved unknown fields.
func (p POLineItem) Clone() POLineItem {
	out := p
	out.ID = clonePtr(p.ID)
	out.Description = clonePtr(p.Description)
	out.OrderedQty = clonePtr(p.OrderedQty)
	out.UnitPrice = clonePtr(p.UnitPrice)
	out.LineTotal = clonePtr(p.LineTotal)
	out.Unit = clonePtr(p.Unit)
	out.NormalizedQty = clonePtr(p.NormalizedQty)
	out.NormalizedUnit = clonePtr(p.NormalizedUnit)
	out.NormalizedUnitPrice = clonePtr(p.NormalizedUnitPrice)
	out.PONumber = clonePtr(p.PONumber)
	out.PODBID = clonePtr(p.PODBID)
	if p.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// InvoiceLineItem is a line as extracted from the vendor invoice.
type InvoiceLineItem struct {
	Description    *string  `json:"description,omitempty"`
	Quantity       *float64 `json:"quantity,omitempty"`
	UnitPrice      *float64 `json:"unit_price,omitempty"`
	LineTotal      *float64 `json:"line_total,omitempty"`
	Unit           *string  `json:"unit,omitempty"`
	NormalizedQty  *float64 `json:"normalized_qty,omitempty"`
	NormalizedUnit *string  `json:"normalized_unit,omitempty"`
	PONumber       *string  `json:"po_number,omitempty"`
}

// GRNLineItem is a goods-receipt line.
type GRNLineItem struct {
	Description    *string  `json:"description,omitempty"`
	ReceivedQty    *float64 `json:"received_qty,omitempty"`
	Unit           *string  `json:"unit,omitempty"`
	NormalizedQty  *float64 `json:"normalized_qty,omitempty"`
	NormalizedUnit *string  `json:"normalized_unit,omitempty"`
	GRNNumber      *string  `json:"grn_number,omitempty"`
}

// LineItemComparison pairs zero-or-one invoice, PO and GRN line.
type LineItemComparison struct {
	InvoiceLine *InvoiceLineItem `json:"invoice_line"`
	POLine      *POLineItem      `json:"po_line"`
	GRNLine     *GRNLineItem     `json:"grn_line"`
	PONumber    *string          `json:"po_number"`
	GRNNumber   *string          `json:"grn_number"`
}

// POHeader is a related purchase order with its full line array.
type POHeader struct {
	ID           int64        `json:"id" validate:"required"`
	PONumber     string       `json:"po_number" validate:"required"`
	OrderDate    *string      `json:"order_date"`
	POGrandTotal *float64     `json:"po_grand_total"`
	LineItems    []POLineItem `json:"line_items"`
}

// DocumentPath points at a stored source document.
type DocumentPath struct {
	FilePath *string `json:"file_path"`
}

// RelatedDocuments holds the primary document of each kind.
type RelatedDocuments struct {
	Invoice *DocumentPath `json:"invoice"`
	PO      *DocumentPath `json:"po"`
	GRN     *DocumentPath `json:"grn"`
}

type PODocument struct {
	FilePath *string `json:"file_path"`
	PONumber string  `json:"po_number" validate:"required"`
}

type GRNDocument struct {
	FilePath  *string `json:"file_path"`
	GRNNumber string  `json:"grn_number" validate:"required"`
}

// AllRelatedDocuments feeds the document switcher.
type AllRelatedDocuments struct {
	POs  []PODocument  `json:"pos" validate:"required,dive"`
	GRNs []GRNDocument `json:"grns" validate:"required,dive"`
}

// ComparisonDossier is everything the review workbench needs for one invoice.
type ComparisonDossier struct {
	InvoiceID           string                   `json:"invoice_id" validate:"required"`
	VendorName          *string                  `json:"vendor_name"`
	GrandTotal          *float64                 `json:"grand_total"`
	LineItemComparisons []LineItemComparison     `json:"line_item_comparisons" validate:"required"`
	RelatedPOs          []POHeader               `json:"related_pos" validate:"required,dive"`
	RelatedGRNs         []map[string]interface{} `json:"related_grns" validate:"required"`
	RelatedDocuments    RelatedDocuments         `json:"related_documents"`
	AllRelatedDocuments AllRelatedDocuments      `json:"all_related_documents"`
	MatchTrace          []MatchTraceStep         `json:"match_trace" validate:"required,dive"`
	InvoiceNotes        *string                  `json:"invoice_notes"`
	InvoiceStatus       InvoiceStatus            `json:"invoice_status" validate:"required"`
	GLCode              *string                  `json:"gl_code,omitempty"`
	Suggestion          *Suggestion              `json:"suggestion"`
}

// FindPO returns the related PO header with the given database id.
func (d *ComparisonDossier) FindPO(poID int64) (*POHeader, bool) {
	for i := range d.RelatedPOs {
		if d.RelatedPOs[i].ID == poID {
			return &d.RelatedPOs[i], true
		}
	}
	return nil, false
}

// HasPOLines reports whether any comparison carries a PO line.
func (d *ComparisonDossier) HasPOLines() bool {
	for _, c := range d.LineItemComparisons {
		if c.POLine != nil {
			return true
		}
	}
	return false
}

// HasGRNLines reports whether any comparison carries a GRN line.
func (d *ComparisonDossier) HasGRNLines() bool {
	for _, c := range d.LineItemComparisons {
		if c.GRNLine != nil {
			return true
		}
	}
	return false
}
