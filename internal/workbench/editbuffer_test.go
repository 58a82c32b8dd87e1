package workbench

import (
	"encoding/json"
	"testing"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestEditBuffer_SetField(t *testing.T) {
	key := LineKey{POID: 11, Line: 0}

	tests := []struct {
		name    string
		field   Field
		raw     string
		want    float64
		wantErr bool
	}{
		{name: "integer quantity", field: FieldOrderedQty, raw: "12", want: 12},
		{name: "decimal price", field: FieldUnitPrice, raw: " 6.25 ", want: 6.25},
		{name: "zero allowed", field: FieldUnitPrice, raw: "0", want: 0},
		{name: "non-numeric", field: FieldOrderedQty, raw: "ten", wantErr: true},
		{name: "empty", field: FieldOrderedQty, raw: "  ", wantErr: true},
		{name: "negative", field: FieldUnitPrice, raw: "-1", wantErr: true},
		{name: "infinity", field: FieldUnitPrice, raw: "Inf", wantErr: true},
		{name: "nan", field: FieldOrderedQty, raw: "NaN", wantErr: true},
		{name: "unknown field", field: Field("line_total"), raw: "5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewEditBuffer()
			err := buf.SetField(key, tt.field, tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
				assert.True(t, buf.IsEmpty(), "buffer must be unchanged on invalid input")
				return
			}
			require.NoError(t, err)
			got := buf.Value(key, tt.field, fptr(99))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestEditBuffer_InvalidInputKeepsPreviousOverride(t *testing.T) {
	key := LineKey{POID: 11, Line: 0}
	buf := NewEditBuffer()
	require.NoError(t, buf.SetField(key, FieldUnitPrice, "6"))

	require.Error(t, buf.SetField(key, FieldUnitPrice, "6x"))
	assert.Equal(t, 6.0, *buf.Value(key, FieldUnitPrice, fptr(5)))
}

func TestEditBuffer_ValuePrefersOverride(t *testing.T) {
	a := LineKey{POID: 11, Line: 0}
	b := LineKey{POID: 12, Line: 3}
	buf := NewEditBuffer()

	require.NoError(t, buf.SetField(a, FieldOrderedQty, "8"))
	require.NoError(t, buf.SetField(b, FieldUnitPrice, "1.5"))

	assert.Equal(t, 8.0, *buf.Value(a, FieldOrderedQty, fptr(10)))
	assert.Equal(t, 5.0, *buf.Value(a, FieldUnitPrice, fptr(5)), "unset field falls back to baseline")
	assert.Equal(t, 1.5, *buf.Value(b, FieldUnitPrice, fptr(2)))
	assert.Nil(t, buf.Value(LineKey{POID: 1, Line: 1}, FieldUnitPrice, nil))
	assert.Equal(t, 2, buf.Len())
	assert.Equal(t, []LineKey{a, b}, buf.Keys())
}

func TestEditBuffer_Edited(t *testing.T) {
	key := LineKey{POID: 11, Line: 0}
	buf := NewEditBuffer()

	assert.False(t, buf.Edited(key, FieldUnitPrice, fptr(5)))

	require.NoError(t, buf.SetField(key, FieldUnitPrice, "5"))
	assert.False(t, buf.Edited(key, FieldUnitPrice, fptr(5)), "override equal to baseline is not an edit")

	require.NoError(t, buf.SetField(key, FieldUnitPrice, "6"))
	assert.True(t, buf.Edited(key, FieldUnitPrice, fptr(5)))
	assert.True(t, buf.Edited(key, FieldUnitPrice, nil))
	assert.False(t, buf.Edited(key, FieldOrderedQty, fptr(10)))
}

func TestEditBuffer_ByPOAndDiscard(t *testing.T) {
	buf := NewEditBuffer()
	require.NoError(t, buf.SetField(LineKey{POID: 11, Line: 0}, FieldUnitPrice, "6"))
	require.NoError(t, buf.SetField(LineKey{POID: 11, Line: 2}, FieldOrderedQty, "1"))
	require.NoError(t, buf.SetField(LineKey{POID: 12, Line: 0}, FieldOrderedQty, "3"))

	grouped := buf.ByPO()
	assert.Len(t, grouped, 2)
	assert.Len(t, grouped[11], 2)
	assert.Equal(t, 3.0, *grouped[12][0].OrderedQty)

	buf.Discard()
	assert.True(t, buf.IsEmpty())
}

func TestEditBuffer_JSON(t *testing.T) {
	buf := NewEditBuffer()
	require.NoError(t, buf.SetField(LineKey{POID: 12, Line: 0}, FieldOrderedQty, "3"))
	require.NoError(t, buf.SetField(LineKey{POID: 11, Line: 1}, FieldUnitPrice, "2.5"))

	data, err := json.Marshal(buf)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"po_id": 11, "line": 1, "unit_price": 2.5},
		{"po_id": 12, "line": 0, "ordered_qty": 3}
	]`, string(data))

	var decoded EditBuffer
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2.5, *decoded.Value(LineKey{POID: 11, Line: 1}, FieldUnitPrice, nil))
	assert.Equal(t, 3.0, *decoded.Value(LineKey{POID: 12, Line: 0}, FieldOrderedQty, nil))
}

func TestEditBuffer_ZeroValue(t *testing.T) {
	var buf EditBuffer
	assert.True(t, buf.IsEmpty())
	require.NoError(t, buf.SetField(LineKey{POID: 1, Line: 0}, FieldOrderedQty, "1"))
	assert.Equal(t, 1, buf.Len())
}
