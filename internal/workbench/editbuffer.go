package workbench

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
)

// Field names an editable PO line column.
type Field string

const (
	FieldOrderedQty Field = "ordered_qty"
	FieldUnitPrice  Field = "unit_price"
)

func (f Field) IsValid() bool {
	return f == FieldOrderedQty || f == FieldUnitPrice
}

// LineKey identifies a PO line by the PO database id and the line's index in
// that PO's line_items array.
type LineKey struct {
	POID int64 `json:"po_id"`
	Line int   `json:"line"`
}

func (k LineKey) String() string {
	return fmt.Sprintf("%d/%d", k.POID, k.Line)
}

// EditOverride is the user-entered replacement for a line's baseline values.
type EditOverride struct {
	OrderedQty *float64 `json:"ordered_qty,omitempty"`
	UnitPrice  *float64 `json:"unit_price,omitempty"`
}

func (o EditOverride) get(field Field) *float64 {
	if field == FieldOrderedQty {
		return o.OrderedQty
	}
	return o.UnitPrice
}

// EditBuffer holds unsaved overrides across lines and purchase orders.
// The zero value is ready to use.
type EditBuffer struct {
	entries map[LineKey]EditOverride
}

func NewEditBuffer() *EditBuffer {
	return &EditBuffer{entries: make(map[LineKey]EditOverride)}
}

// ParseEditValue parses user input for an editable numeric field.
func ParseEditValue(field Field, raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, apperrors.ValidationFailed("Invalid value", fmt.Sprintf("%s requires a number", field))
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.ValidationFailed("Invalid value", fmt.Sprintf("%q is not a number", raw))
	}
	if v < 0 {
		return 0, apperrors.ValidationFailed("Invalid value", fmt.Sprintf("%s cannot be negative", field))
	}
	return v, nil
}

// SetField records an override. Invalid input leaves the buffer unchanged.
func (b *EditBuffer) SetField(key LineKey, field Field, raw string) error {
	if !field.IsValid() {
		return apperrors.ValidationFailed("Invalid field", fmt.Sprintf("field %q is not editable", field))
	}
	v, err := ParseEditValue(field, raw)
	if err != nil {
		return err
	}
	if b.entries == nil {
		b.entries = make(map[LineKey]EditOverride)
	}
	o := b.entries[key]
	if field == FieldOrderedQty {
		o.OrderedQty = &v
	} else {
		o.UnitPrice = &v
	}
	b.entries[key] = o
	return nil
}

// Value returns the override for field when present, else baseline.
func (b *EditBuffer) Value(key LineKey, field Field, baseline *float64) *float64 {
	if o, ok := b.entries[key]; ok {
		if v := o.get(field); v != nil {
			return v
		}
	}
	return baseline
}

// Override returns the raw override for key.
func (b *EditBuffer) Override(key LineKey) (EditOverride, bool) {
	o, ok := b.entries[key]
	return o, ok
}

// Edited reports whether field has an override that differs from baseline.
func (b *EditBuffer) Edited(key LineKey, field Field, baseline *float64) bool {
	o, ok := b.entries[key]
	if !ok {
		return false
	}
	v := o.get(field)
	if v == nil {
		return false
	}
	return baseline == nil || *v != *baseline
}

func (b *EditBuffer) Len() int {
	return len(b.entries)
}

func (b *EditBuffer) IsEmpty() bool {
	return len(b.entries) == 0
}

// Keys returns the buffered keys ordered by PO then line.
func (b *EditBuffer) Keys() []LineKey {
	keys := make([]LineKey, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []LineKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].POID != keys[j].POID {
			return keys[i].POID < keys[j].POID
		}
		return keys[i].Line < keys[j].Line
	})
}

// ByPO groups overrides by owning purchase order.
func (b *EditBuffer) ByPO() map[int64]map[int]EditOverride {
	out := make(map[int64]map[int]EditOverride)
	for k, o := range b.entries {
		if out[k.POID] == nil {
			out[k.POID] = make(map[int]EditOverride)
		}
		out[k.POID][k.Line] = o
	}
	return out
}

// Retain keeps the overrides whose key satisfies keep and returns the
// dropped keys in order.
func (b *EditBuffer) Retain(keep func(LineKey) bool) []LineKey {
	var dropped []LineKey
	for _, k := range b.Keys() {
		if !keep(k) {
			delete(b.entries, k)
			dropped = append(dropped, k)
		}
	}
	return dropped
}

// Discard drops every pending override.
func (b *EditBuffer) Discard() {
	b.entries = make(map[LineKey]EditOverride)
}

type editEntry struct {
	LineKey
	EditOverride
}

// MarshalJSON writes the buffer as an ordered list, since struct keys cannot
// be JSON object keys.
func (b EditBuffer) MarshalJSON() ([]byte, error) {
	list := make([]editEntry, 0, len(b.entries))
	for _, k := range b.Keys() {
		list = append(list, editEntry{LineKey: k, EditOverride: b.entries[k]})
	}
	return json.Marshal(list)
}

func (b *EditBuffer) UnmarshalJSON(data []byte) error {
	var list []editEntry
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	b.entries = make(map[LineKey]EditOverride, len(list))
	for _, e := range list {
		b.entries[e.LineKey] = e.EditOverride
	}
	return nil
}
