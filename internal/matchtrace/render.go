// Package matchtrace turns the backend's match trace into display-ready step
// and exception views.
package matchtrace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NomadCrew/ap-workbench/types"
)

// Icon is the status glyph shown next to a trace step.
type Icon string

const (
	IconCheck   Icon = "check"
	IconCross   Icon = "cross"
	IconInfo    Icon = "info"
	IconWarning Icon = "warning"
)

// Category groups exceptions for their summary icon.
type Category string

const (
	CategoryQuantity Category = "quantity"
	CategoryPrice    Category = "price"
	CategoryDocument Category = "document"
	CategoryGeneric  Category = "generic"
)

// StepView is one rendered trace step.
type StepView struct {
	Step    string            `json:"step"`
	Status  types.TraceStatus `json:"status"`
	Icon    Icon              `json:"icon"`
	Message string            `json:"message"`
	Failed  bool              `json:"failed"`
}

// ExceptionView is one entry of the "Resolution Required" summary.
type ExceptionView struct {
	Step     string   `json:"step"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

// Render maps each step to its view, preserving order.
func Render(trace []types.MatchTraceStep) []StepView {
	views := make([]StepView, 0, len(trace))
	for _, s := range trace {
		views = append(views, StepView{
			Step:    s.Step,
			Status:  s.Status,
			Icon:    iconFor(s.Status),
			Message: s.Message,
			Failed:  s.Status == types.TraceFail,
		})
	}
	return views
}

func iconFor(status types.TraceStatus) Icon {
	switch status {
	case types.TracePass:
		return IconCheck
	case types.TraceFail:
		return IconCross
	case types.TraceInfo:
		return IconInfo
	default:
		return IconWarning
	}
}

// Summarize returns the failures worth showing. When specific checks failed
// the synthetic Final Result step is left out; when it is the only failure it
// is shown alone.
func Summarize(trace []types.MatchTraceStep) []ExceptionView {
	var failures, specific []types.MatchTraceStep
	for _, s := range trace {
		if s.Status != types.TraceFail {
			continue
		}
		failures = append(failures, s)
		if s.Step != types.FinalResultStep {
			specific = append(specific, s)
		}
	}

	display := failures
	if len(specific) > 0 {
		display = specific
	}
	out := make([]ExceptionView, 0, len(display))
	for _, s := range display {
		out = append(out, ExceptionView{
			Step:     s.Step,
			Category: CategorizeStep(s.Step),
			Message:  FriendlyMessage(s),
		})
	}
	return out
}

// CategorizeStep picks the exception icon from the step name.
func CategorizeStep(step string) Category {
	lower := strings.ToLower(step)
	switch {
	case strings.Contains(lower, "quantity"):
		return CategoryQuantity
	case strings.Contains(lower, "price"):
		return CategoryPrice
	case strings.Contains(lower, "document"),
		strings.Contains(lower, "item match"),
		strings.Contains(lower, "timing"):
		return CategoryDocument
	default:
		return CategoryGeneric
	}
}

// FriendlyMessage rewrites price and quantity failures as a sentence built
// from the structured details. Other steps keep the backend message.
func FriendlyMessage(s types.MatchTraceStep) string {
	switch {
	case strings.Contains(s.Step, "Price Match"):
		if msg, ok := priceMessage(s.Details); ok {
			return msg
		}
	case strings.Contains(s.Step, "Quantity Match"):
		if msg, ok := quantityMessage(s.Details); ok {
			return msg
		}
	}
	return s.Message
}

func priceMessage(details map[string]interface{}) (string, bool) {
	inv, okInv := number(details["inv_price"])
	po, okPO := number(details["po_price"])
	if !okInv || !okPO {
		return "", false
	}
	return fmt.Sprintf("The invoice price ($%.2f) does not match the PO price ($%.2f) for this item.", inv, po), true
}

// quantityMessage compares against the received quantity when the GRN is
// known, and the ordered quantity otherwise.
func quantityMessage(details map[string]interface{}) (string, bool) {
	if details == nil {
		return "", false
	}
	compQtyKey, compUnitKey, source := "po_qty", "po_unit", "ordered"
	if v, ok := details["grn_qty"]; ok && v != nil {
		compQtyKey, compUnitKey, source = "grn_qty", "grn_unit", "received"
	}
	if _, ok := details[compQtyKey]; !ok {
		return "", false
	}
	billed := quantity(details["invoice_qty"], details["invoice_unit"])
	compared := quantity(details[compQtyKey], details[compUnitKey])
	return fmt.Sprintf("The billed quantity (%s) does not match the quantity %s (%s).", billed, source, compared), true
}

func quantity(qty, unit interface{}) string {
	parts := make([]string, 0, 2)
	if s := display(qty); s != "" {
		parts = append(parts, s)
	}
	if s := display(unit); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, " ")
}

func display(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func number(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
