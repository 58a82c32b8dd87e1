package apclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/NomadCrew/ap-workbench/types"
)

// Rules lists automation rules.
func (c *Client) Rules(ctx context.Context) ([]types.AutomationRule, error) {
	var out []types.AutomationRule
	if err := c.doJSON(ctx, "list_rules", http.MethodGet, "/config/automation-rules", nil, &out,
		"Failed to fetch automation rules"); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRule creates an automation rule.
func (c *Client) CreateRule(ctx context.Context, in types.AutomationRuleInput) (*types.AutomationRule, error) {
	var out types.AutomationRule
	if err := c.doJSON(ctx, "create_rule", http.MethodPost, "/config/automation-rules", in, &out,
		"Failed to create rule"); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRule replaces an automation rule.
func (c *Client) UpdateRule(ctx context.Context, id int64, in types.AutomationRuleInput) (*types.AutomationRule, error) {
	var out types.AutomationRule
	path := fmt.Sprintf("/config/automation-rules/%d", id)
	if err := c.doJSON(ctx, "update_rule", http.MethodPut, path, in, &out, "Failed to update rule"); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRule removes an automation rule.
func (c *Client) DeleteRule(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/config/automation-rules/%d", id)
	return c.doJSON(ctx, "delete_rule", http.MethodDelete, path, nil, nil, "Failed to delete rule")
}

// Heuristics lists the aggregated learned heuristics.
func (c *Client) Heuristics(ctx context.Context) ([]types.Heuristic, error) {
	var out []types.Heuristic
	if err := c.doJSON(ctx, "list_heuristics", http.MethodGet, "/learning/heuristics", nil, &out,
		"Failed to fetch learned heuristics"); err != nil {
		return nil, err
	}
	return out, nil
}
