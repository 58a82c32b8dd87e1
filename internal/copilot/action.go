// Package copilot relays assistant messages and turns the loosely typed
// uiAction directive into one of a closed set of renderings.
package copilot

import "strings"

// Action is a rendering directive returned by the assistant.
type Action string

const (
	ActionDisplayText      Action = "DISPLAY_TEXT"
	ActionLoadData         Action = "LOAD_DATA"
	ActionDisplayJSON      Action = "DISPLAY_JSON"
	ActionDisplayMarkdown  Action = "DISPLAY_MARKDOWN"
	ActionShowToastSuccess Action = "SHOW_TOAST_SUCCESS"
)

var knownActions = map[Action]struct{}{
	ActionDisplayText:      {},
	ActionLoadData:         {},
	ActionDisplayJSON:      {},
	ActionDisplayMarkdown:  {},
	ActionShowToastSuccess: {},
}

// ParseAction maps raw onto a known action. Empty or unknown directives
// fall back to DISPLAY_TEXT and report false.
func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := knownActions[a]; ok {
		return a, true
	}
	return ActionDisplayText, false
}

// OpensCanvas reports whether the action's data belongs in the side canvas.
func (a Action) OpensCanvas() bool {
	return a == ActionLoadData || a == ActionDisplayJSON
}
