package apclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/NomadCrew/ap-workbench/types"
)

// Job returns the current status of an ingestion job.
func (c *Client) Job(ctx context.Context, jobID int64) (*types.Job, error) {
	var job types.Job
	path := fmt.Sprintf("/documents/jobs/%d", jobID)
	if err := c.doJSON(ctx, "job_status", http.MethodGet, path, nil, &job, "Failed to fetch job status"); err != nil {
		return nil, err
	}
	return &job, nil
}

// Jobs lists recent ingestion jobs.
func (c *Client) Jobs(ctx context.Context) ([]types.Job, error) {
	var jobs []types.Job
	if err := c.doJSON(ctx, "list_jobs", http.MethodGet, "/documents/jobs", nil, &jobs, "Failed to fetch jobs"); err != nil {
		return nil, err
	}
	return jobs, nil
}

// JobInvoices lists the invoices produced by a job.
func (c *Client) JobInvoices(ctx context.Context, jobID int64) ([]types.InvoiceSummary, error) {
	var out []types.InvoiceSummary
	path := fmt.Sprintf("/documents/jobs/%d/invoices", jobID)
	if err := c.doJSON(ctx, "job_invoices", http.MethodGet, path, nil, &out, "Failed to fetch invoices for job"); err != nil {
		return nil, err
	}
	return out, nil
}
