package documents_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/internal/documents"
	"github.com/NomadCrew/ap-workbench/internal/workbench"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct{}

func (staticSource) Fetch(ctx context.Context, name string) (*documents.Blob, error) {
	return &documents.Blob{
		Body:        io.NopCloser(strings.NewReader("%PDF-1.4\n%%EOF\n")),
		ContentType: "application/pdf",
	}, nil
}

func (staticSource) String() string { return "static" }

func TestRegistry_HandlesFollowSessionLifetime(t *testing.T) {
	ctx := context.Background()
	wb := workbench.NewService(nil, workbench.NewMemoryStore(20*time.Millisecond), nil, nil)
	reg := documents.NewRegistry(staticSource{}, 2)
	reg.TrackSessions(wb)
	wb.OnSessionClose(reg.ReleaseSession)

	sess, err := wb.CreateSession(ctx)
	require.NoError(t, err)
	_, err = reg.Open(ctx, sess.ID, documents.SlotInvoice, "INV-1.pdf")
	require.NoError(t, err)
	_, err = reg.Open(ctx, sess.ID, documents.SlotPO, "PO-1.pdf")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return apperrors.IsType(wb.Exists(ctx, sess.ID), apperrors.NotFoundError)
	}, time.Second, 5*time.Millisecond, "session expires through the store TTL")
	assert.Equal(t, 2, reg.Count(), "no close hook runs on expiry")

	next, err := wb.CreateSession(ctx)
	require.NoError(t, err)
	h, err := reg.Open(ctx, next.ID, documents.SlotInvoice, "INV-2.pdf")
	require.NoError(t, err, "opening at the limit reclaims the expired session's handles")
	assert.Equal(t, next.ID, h.SessionID)
	assert.Equal(t, 1, reg.Count())
}
