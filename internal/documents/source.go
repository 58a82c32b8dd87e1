// Package documents loads source PDFs for the review viewer and tracks the
// handles each session holds on them.
package documents

import (
	"context"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/internal/apclient"
)

// Blob is a fetched document. The caller must close Body.
type Blob struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Source fetches stored documents by file name.
type Source interface {
	Fetch(ctx context.Context, name string) (*Blob, error)
	String() string
}

// FileFetcher is the backend call that streams /documents/file/{name}.
type FileFetcher interface {
	FetchFile(ctx context.Context, name string) (*apclient.File, error)
}

// BackendSource reads documents through the AP backend.
type BackendSource struct {
	client FileFetcher
}

func NewBackendSource(client FileFetcher) *BackendSource {
	return &BackendSource{client: client}
}

func (s *BackendSource) Fetch(ctx context.Context, name string) (*Blob, error) {
	if err := validateKey(name); err != nil {
		return nil, err
	}
	f, err := s.client.FetchFile(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Blob{Body: f.Body, ContentType: f.ContentType, Size: f.ContentLength}, nil
}

func (s *BackendSource) String() string {
	return "backend"
}

// validateKey rejects empty names and path traversal segments.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return apperrors.ValidationFailed("invalid document name", "file name is required")
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return apperrors.ValidationFailed("invalid document name", fmt.Sprintf("path traversal detected in %q", key))
		}
	}
	return nil
}
