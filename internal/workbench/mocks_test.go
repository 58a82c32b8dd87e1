package workbench

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

// po_dossier.json has two POs. PO 11 has a Widget line with an id plus two
// "Bolt" lines sharing a description, one of them without po_db_id so it
// resolves by PO number; PO 12 has a single line.
var (
	fixtureDossier = readFixture("po_dossier.json")
	nonPODossier   = readFixture("non_po_dossier.json")
)

func readFixture(name string) string {
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		panic(err)
	}
	return string(data)
}

func loadDossier(t *testing.T, raw string) *types.ComparisonDossier {
	t.Helper()
	var d types.ComparisonDossier
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	return &d
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ComparisonData(ctx context.Context, invoiceDBID int64) (*types.ComparisonDossier, error) {
	args := m.Called(ctx, invoiceDBID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ComparisonDossier), args.Error(1)
}

func (m *mockBackend) UpdatePurchaseOrder(ctx context.Context, poDBID int64, lines []types.POLineItem) error {
	args := m.Called(ctx, poDBID, lines)
	return args.Error(0)
}

func (m *mockBackend) UpdateNotes(ctx context.Context, invoiceDBID int64, notes string) error {
	args := m.Called(ctx, invoiceDBID, notes)
	return args.Error(0)
}

func (m *mockBackend) UpdateGLCode(ctx context.Context, invoiceDBID int64, glCode string) error {
	args := m.Called(ctx, invoiceDBID, glCode)
	return args.Error(0)
}

func (m *mockBackend) UpdateStatus(ctx context.Context, invoiceCode string, status types.InvoiceStatus, reason string) (*types.MessageResponse, error) {
	args := m.Called(ctx, invoiceCode, status, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.MessageResponse), args.Error(1)
}

// fakeGuard is an in-process SubmitGuard.
type fakeGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{held: make(map[string]bool)}
}

func (g *fakeGuard) Acquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] {
		return nil, apperrors.NewConflictError("Submission already in progress", key)
	}
	g.held[key] = true
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.held, key)
	}, nil
}

func newTestService(t *testing.T, backend Backend) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(time.Hour)
	return NewService(backend, store, nil, newFakeGuard()), store
}

// openSession creates a session with invoice 7 selected and its dossier loaded.
func openSession(t *testing.T, svc *Service, backend *mockBackend, raw string) string {
	t.Helper()
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	backend.On("ComparisonData", mock.Anything, int64(7)).Return(loadDossier(t, raw), nil).Once()
	_, err = svc.SelectInvoice(ctx, sess.ID, 7)
	require.NoError(t, err)
	return sess.ID
}
