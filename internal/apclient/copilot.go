package apclient

import (
	"context"
	"net/http"

	"github.com/NomadCrew/ap-workbench/types"
)

// Chat forwards a message to the assistant endpoint.
func (c *Client) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	var out types.ChatResponse
	if err := c.doJSON(ctx, "copilot_chat", http.MethodPost, "/copilot/chat", req, &out,
		"Failed to get response from Copilot."); err != nil {
		return nil, err
	}
	return &out, nil
}
