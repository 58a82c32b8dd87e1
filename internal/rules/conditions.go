package rules

import (
	"fmt"
	"strings"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
)

// Operators accepted in a field/operator/value condition.
var (
	numericOperators = map[string]struct{}{">": {}, "<": {}, ">=": {}, "<=": {}, "==": {}}
	textOperators    = map[string]struct{}{"equals": {}, "contains": {}, "not_equals": {}}
)

// ValidateConditions checks a rule condition. A map with a "field" key is a
// simple triple and must name a known operator and carry a value. Any other
// map is treated as a nested expression owned by the backend.
func ValidateConditions(conditions map[string]interface{}) error {
	if len(conditions) == 0 {
		return apperrors.ValidationFailed("invalid rule", "conditions are required")
	}
	rawField, isTriple := conditions["field"]
	if !isTriple {
		return nil
	}

	field, ok := rawField.(string)
	if !ok || strings.TrimSpace(field) == "" {
		return apperrors.ValidationFailed("invalid rule", "condition field must be a non-empty string")
	}
	op, _ := conditions["operator"].(string)
	_, numeric := numericOperators[op]
	_, text := textOperators[op]
	if !numeric && !text {
		return apperrors.ValidationFailed("invalid rule", fmt.Sprintf("unknown condition operator %q", op))
	}

	value, present := conditions["value"]
	if !present || value == nil || value == "" {
		return apperrors.ValidationFailed("invalid rule", "condition value is required")
	}
	if numeric {
		switch value.(type) {
		case float64, float32, int, int64, int32:
		default:
			return apperrors.ValidationFailed("invalid rule", fmt.Sprintf("operator %q needs a numeric value", op))
		}
	}
	return nil
}
