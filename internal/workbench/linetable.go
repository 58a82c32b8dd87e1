package workbench

import (
	"math"

	"github.com/NomadCrew/ap-workbench/types"
)

// ReviewMode selects which review path the workbench presents.
type ReviewMode string

const (
	ReviewModePO    ReviewMode = "po"
	ReviewModeNonPO ReviewMode = "non_po"
)

const mismatchTolerance = 0.01

// ModeFor returns the non-PO path when the dossier has nothing to compare
// against: no related POs, or neither PO nor GRN lines.
func ModeFor(d *types.ComparisonDossier) ReviewMode {
	if d == nil || len(d.RelatedPOs) == 0 {
		return ReviewModeNonPO
	}
	if !d.HasPOLines() && !d.HasGRNLines() {
		return ReviewModeNonPO
	}
	return ReviewModePO
}

// LineRow is one display row of the line-item comparison table.
type LineRow struct {
	Key         *LineKey `json:"key,omitempty"`
	Editable    bool     `json:"editable"`
	Description string   `json:"description"`
	PONumber    *string  `json:"po_number,omitempty"`
	GRNNumber   *string  `json:"grn_number,omitempty"`

	InvoiceQty       *float64 `json:"invoice_qty,omitempty"`
	InvoiceUnit      *string  `json:"invoice_unit,omitempty"`
	InvoiceUnitPrice *float64 `json:"invoice_unit_price,omitempty"`
	InvoiceTotal     *float64 `json:"invoice_line_total,omitempty"`

	POOrderedQty *float64 `json:"po_ordered_qty,omitempty"`
	POUnit       *string  `json:"po_unit,omitempty"`
	POUnitPrice  *float64 `json:"po_unit_price,omitempty"`
	POLineTotal  *float64 `json:"po_line_total,omitempty"`

	GRNReceivedQty *float64 `json:"grn_received_qty,omitempty"`
	GRNUnit        *string  `json:"grn_unit,omitempty"`

	QtyEdited     bool `json:"qty_edited"`
	PriceEdited   bool `json:"price_edited"`
	QtyMismatch   bool `json:"qty_mismatch"`
	PriceMismatch bool `json:"price_mismatch"`
}

// LineTable builds the display rows for a dossier, reading PO cells through
// the edit buffer. In non-PO mode rows carry invoice data only.
func LineTable(d *types.ComparisonDossier, buf *EditBuffer) []LineRow {
	if d == nil {
		return nil
	}
	if buf == nil {
		buf = NewEditBuffer()
	}
	nonPO := ModeFor(d) == ReviewModeNonPO
	resolver := newKeyResolver(d)

	rows := make([]LineRow, 0, len(d.LineItemComparisons))
	for _, cmp := range d.LineItemComparisons {
		row := LineRow{PONumber: cmp.PONumber, GRNNumber: cmp.GRNNumber}

		if inv := cmp.InvoiceLine; inv != nil {
			row.Description = deref(inv.Description)
			row.InvoiceQty = inv.Quantity
			row.InvoiceUnit = inv.Unit
			row.InvoiceUnitPrice = inv.UnitPrice
			row.InvoiceTotal = inv.LineTotal
		}
		if nonPO {
			rows = append(rows, row)
			continue
		}

		if po := cmp.POLine; po != nil {
			if row.Description == "" {
				row.Description = deref(po.Description)
			}
			row.POUnit = po.Unit
			row.POOrderedQty = po.OrderedQty
			row.POUnitPrice = po.UnitPrice
			row.POLineTotal = po.LineTotal

			if key, ok := resolver.resolve(cmp); ok {
				k := key
				row.Key = &k
				row.Editable = true
				row.POOrderedQty = buf.Value(k, FieldOrderedQty, po.OrderedQty)
				row.POUnitPrice = buf.Value(k, FieldUnitPrice, po.UnitPrice)
				row.QtyEdited = buf.Edited(k, FieldOrderedQty, po.OrderedQty)
				row.PriceEdited = buf.Edited(k, FieldUnitPrice, po.UnitPrice)
			}
		}
		if grn := cmp.GRNLine; grn != nil {
			if row.Description == "" {
				row.Description = deref(grn.Description)
			}
			row.GRNReceivedQty = grn.ReceivedQty
			row.GRNUnit = grn.Unit
		}

		row.QtyMismatch = qtyMismatch(cmp)
		row.PriceMismatch = priceMismatch(cmp)
		rows = append(rows, row)
	}
	return rows
}

// qtyMismatch compares the invoice's normalized quantity with what was
// received, falling back to what was ordered.
func qtyMismatch(cmp types.LineItemComparison) bool {
	if cmp.InvoiceLine == nil || cmp.InvoiceLine.NormalizedQty == nil {
		return false
	}
	var ref float64
	switch {
	case cmp.GRNLine != nil && cmp.GRNLine.NormalizedQty != nil:
		ref = *cmp.GRNLine.NormalizedQty
	case cmp.POLine != nil && cmp.POLine.NormalizedQty != nil:
		ref = *cmp.POLine.NormalizedQty
	}
	return math.Abs(*cmp.InvoiceLine.NormalizedQty-ref) > mismatchTolerance
}

func priceMismatch(cmp types.LineItemComparison) bool {
	if cmp.InvoiceLine == nil || cmp.POLine == nil {
		return false
	}
	if cmp.InvoiceLine.UnitPrice == nil || cmp.POLine.UnitPrice == nil {
		return false
	}
	return math.Abs(*cmp.InvoiceLine.UnitPrice-*cmp.POLine.UnitPrice) > mismatchTolerance
}

// ResolveKeys maps each comparison index that has an editable PO line to its key.
func ResolveKeys(d *types.ComparisonDossier) map[int]LineKey {
	out := make(map[int]LineKey)
	if d == nil {
		return out
	}
	r := newKeyResolver(d)
	for i, cmp := range d.LineItemComparisons {
		if k, ok := r.resolve(cmp); ok {
			out[i] = k
		}
	}
	return out
}

// keyResolver locates comparison PO lines inside their PO header. Lines with
// an id match by id; otherwise by description, each header line claimed once
// so duplicate descriptions map to distinct keys.
type keyResolver struct {
	d       *types.ComparisonDossier
	claimed map[LineKey]bool
}

func newKeyResolver(d *types.ComparisonDossier) *keyResolver {
	return &keyResolver{d: d, claimed: make(map[LineKey]bool)}
}

func (r *keyResolver) resolve(cmp types.LineItemComparison) (LineKey, bool) {
	po := cmp.POLine
	if po == nil {
		return LineKey{}, false
	}
	header, ok := r.header(cmp)
	if !ok {
		return LineKey{}, false
	}

	if po.ID != nil {
		for i, line := range header.LineItems {
			k := LineKey{POID: header.ID, Line: i}
			if line.ID != nil && *line.ID == *po.ID && !r.claimed[k] {
				r.claimed[k] = true
				return k, true
			}
		}
	}
	desc := deref(po.Description)
	for i, line := range header.LineItems {
		k := LineKey{POID: header.ID, Line: i}
		if r.claimed[k] || deref(line.Description) != desc {
			continue
		}
		r.claimed[k] = true
		return k, true
	}
	return LineKey{}, false
}

func (r *keyResolver) header(cmp types.LineItemComparison) (*types.POHeader, bool) {
	if cmp.POLine.PODBID != nil {
		return r.d.FindPO(*cmp.POLine.PODBID)
	}
	number := cmp.PONumber
	if number == nil {
		number = cmp.POLine.PONumber
	}
	if number == nil {
		return nil, false
	}
	for i := range r.d.RelatedPOs {
		if r.d.RelatedPOs[i].PONumber == *number {
			return &r.d.RelatedPOs[i], true
		}
	}
	return nil, false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
