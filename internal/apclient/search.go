package apclient

import (
	"context"
	"net/http"

	"github.com/NomadCrew/ap-workbench/types"
)

// Search runs a filtered invoice search.
func (c *Client) Search(ctx context.Context, req types.SearchRequest) ([]types.InvoiceSummary, error) {
	if req.Filters == nil {
		req.Filters = []types.SearchFilter{}
	}
	var out []types.InvoiceSummary
	if err := c.doJSON(ctx, "search", http.MethodPost, "/documents/search", req, &out, "Search failed"); err != nil {
		return nil, err
	}
	return out, nil
}
