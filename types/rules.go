package types

import (
	"encoding/json"
	"fmt"
)

// Rule provenance tags.
const (
	RuleSourceUser      = "user"
	RuleSourceSuggested = "suggested"
)

// ActiveFlag accepts both JSON booleans and the 1/0 integers some backend
// endpoints emit, and always encodes as a boolean.
type ActiveFlag bool

func (a *ActiveFlag) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1":
		*a = true
		return nil
	case "false", "0", "null":
		*a = false
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("is_active: expected boolean or number, got %s", string(data))
	}
	*a = n != 0
	return nil
}

func (a ActiveFlag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(a))
}

// AutomationRule is a backend-owned auto-approval rule.
type AutomationRule struct {
	ID         int64                  `json:"id" yaml:"id,omitempty" validate:"required"`
	RuleName   string                 `json:"rule_name" yaml:"rule_name" validate:"required"`
	VendorName *string                `json:"vendor_name" yaml:"vendor_name,omitempty"`
	Conditions map[string]interface{} `json:"conditions" yaml:"conditions" validate:"required"`
	Action     string                 `json:"action" yaml:"action" validate:"required"`
	IsActive   ActiveFlag             `json:"is_active" yaml:"is_active"`
	Source     string                 `json:"source" yaml:"source" validate:"required"`
}

// AutomationRuleInput is the create/update payload (a rule without its id).
type AutomationRuleInput struct {
	RuleName   string                 `json:"rule_name" yaml:"rule_name" binding:"required" validate:"required"`
	VendorName *string                `json:"vendor_name" yaml:"vendor_name,omitempty"`
	Conditions map[string]interface{} `json:"conditions" yaml:"conditions" binding:"required" validate:"required"`
	Action     string                 `json:"action" yaml:"action" binding:"required" validate:"required"`
	IsActive   ActiveFlag             `json:"is_active" yaml:"is_active"`
	Source     string                 `json:"source" yaml:"source"`
}

// Input strips the id so a fetched rule can be re-submitted.
func (r AutomationRule) Input() AutomationRuleInput {
	return AutomationRuleInput{
		RuleName:   r.RuleName,
		VendorName: r.VendorName,
		Conditions: r.Conditions,
		Action:     r.Action,
		IsActive:   r.IsActive,
		Source:     r.Source,
	}
}

// HeuristicID is the aggregated heuristic key. Aggregated listings use a
// composite string; raw listings use the numeric row id.
type HeuristicID string

func (h *HeuristicID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*h = HeuristicID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("heuristic id: expected string or number, got %s", string(data))
	}
	*h = HeuristicID(n.String())
	return nil
}

// Heuristic is an aggregated, read-only pattern the backend learned from
// manual resolutions.
type Heuristic struct {
	ID               HeuristicID            `json:"id" validate:"required"`
	VendorName       string                 `json:"vendor_name" validate:"required"`
	ExceptionType    string                 `json:"exception_type" validate:"required"`
	LearnedCondition map[string]interface{} `json:"learned_condition"`
	ResolutionAction string                 `json:"resolution_action" validate:"required"`
	TriggerCount     int                    `json:"trigger_count" validate:"gte=0"`
	ConfidenceScore  float64                `json:"confidence_score" validate:"gte=0"`
	PotentialImpact  float64                `json:"potential_impact"`
}

// HeuristicView is a heuristic plus the derived promote gate.
type HeuristicView struct {
	Heuristic
	CanPromote bool `json:"can_promote"`
}
