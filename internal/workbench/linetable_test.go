package workbench

import (
	"testing"

	"github.com/NomadCrew/ap-workbench/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeFor(t *testing.T) {
	assert.Equal(t, ReviewModePO, ModeFor(loadDossier(t, fixtureDossier)))
	assert.Equal(t, ReviewModeNonPO, ModeFor(loadDossier(t, nonPODossier)))
	assert.Equal(t, ReviewModeNonPO, ModeFor(nil))

	// POs related but no PO or GRN lines matched.
	d := loadDossier(t, fixtureDossier)
	for i := range d.LineItemComparisons {
		d.LineItemComparisons[i].POLine = nil
		d.LineItemComparisons[i].GRNLine = nil
	}
	assert.Equal(t, ReviewModeNonPO, ModeFor(d))
}

func TestResolveKeys(t *testing.T) {
	keys := ResolveKeys(loadDossier(t, fixtureDossier))

	assert.Equal(t, map[int]LineKey{
		0: {POID: 11, Line: 0}, // matched by line id
		1: {POID: 11, Line: 1}, // found via po_number, first unclaimed "Bolt"
		2: {POID: 11, Line: 2}, // duplicate description gets the next line
		3: {POID: 12, Line: 0},
	}, keys)
}

func TestLineTable_NonPOUsesInvoiceDataOnly(t *testing.T) {
	rows := LineTable(loadDossier(t, nonPODossier), NewEditBuffer())

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "Electricity", row.Description)
	assert.Equal(t, 300.0, *row.InvoiceUnitPrice)
	assert.Nil(t, row.Key)
	assert.False(t, row.Editable)
	assert.Nil(t, row.POOrderedQty)
	assert.Nil(t, row.GRNReceivedQty)
	assert.False(t, row.QtyMismatch)
	assert.False(t, row.PriceMismatch)
}

func TestLineTable_Flags(t *testing.T) {
	rows := LineTable(loadDossier(t, fixtureDossier), nil)
	require.Len(t, rows, 5)

	widget := rows[0]
	assert.True(t, widget.Editable)
	assert.Equal(t, LineKey{POID: 11, Line: 0}, *widget.Key)
	assert.False(t, widget.QtyMismatch, "received quantity matches")
	assert.True(t, widget.PriceMismatch)
	assert.Equal(t, 10.0, *widget.GRNReceivedQty)

	bolt := rows[1]
	assert.True(t, bolt.QtyMismatch, "invoiced 5 against 4 ordered")
	assert.False(t, bolt.PriceMismatch)

	assert.False(t, rows[2].QtyMismatch)
	assert.False(t, rows[3].PriceMismatch)

	freight := rows[4]
	assert.False(t, freight.Editable)
	assert.Nil(t, freight.Key)
}

func TestLineTable_ReadsThroughEditBuffer(t *testing.T) {
	d := loadDossier(t, fixtureDossier)
	buf := NewEditBuffer()
	require.NoError(t, buf.SetField(LineKey{POID: 11, Line: 0}, FieldUnitPrice, "6"))
	require.NoError(t, buf.SetField(LineKey{POID: 11, Line: 2}, FieldOrderedQty, "3"))

	rows := LineTable(d, buf)

	assert.Equal(t, 6.0, *rows[0].POUnitPrice)
	assert.True(t, rows[0].PriceEdited)
	assert.False(t, rows[0].QtyEdited)
	// Mismatch flags compare against the fetched baseline.
	assert.True(t, rows[0].PriceMismatch)

	assert.Equal(t, 3.0, *rows[2].POOrderedQty)
	assert.False(t, rows[2].QtyEdited, "same as baseline")

	assert.Equal(t, 4.0, *rows[1].POOrderedQty, "other Bolt line untouched")

	// Discard restores the baseline.
	buf.Discard()
	rows = LineTable(d, buf)
	assert.Equal(t, 5.0, *rows[0].POUnitPrice)
	assert.False(t, rows[0].PriceEdited)
}

func TestQtyMismatch_FallsBackToZero(t *testing.T) {
	cmp := types.LineItemComparison{
		InvoiceLine: &types.InvoiceLineItem{NormalizedQty: fptr(2)},
	}
	assert.True(t, qtyMismatch(cmp))

	cmp.InvoiceLine.NormalizedQty = fptr(0.005)
	assert.False(t, qtyMismatch(cmp))
}
