package apclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/types"
)

// UploadFile is one document handed to the ingestion endpoint.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// Upload sends documents for ingestion and returns the created job.
func (c *Client) Upload(ctx context.Context, files []UploadFile) (*types.Job, error) {
	if len(files) == 0 {
		return nil, apperrors.ValidationFailed("No files to upload", "")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ServerError, "failed to build upload")
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ServerError, "failed to read upload")
		}
	}
	if err := mw.Close(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ServerError, "failed to build upload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/upload", &buf)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ServerError, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send("upload", httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus("upload", resp, "Failed to upload documents"); err != nil {
		return nil, err
	}
	var job types.Job
	if err := c.decode("upload", resp.Body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// SyncSampleData asks the backend to ingest its bundled sample directory.
func (c *Client) SyncSampleData(ctx context.Context) (*types.Job, error) {
	var job types.Job
	if err := c.doJSON(ctx, "sync_sample_data", http.MethodPost, "/documents/sync-sample-data", nil, &job,
		"Failed to start sample data sync"); err != nil {
		return nil, err
	}
	return &job, nil
}

// File is a fetched source document. The caller must close Body.
type File struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// FetchFile streams a stored source document by file name.
func (c *Client) FetchFile(ctx context.Context, name string) (*File, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/documents/file/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ServerError, "failed to create request")
	}

	resp, err := c.send("fetch_file", httpReq)
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus("fetch_file", resp, fmt.Sprintf("Failed to fetch file: %s", name)); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return &File{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}
