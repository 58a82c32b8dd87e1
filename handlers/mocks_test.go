package handlers

import (
	"context"
	"io"

	"github.com/NomadCrew/ap-workbench/internal/apclient"
	"github.com/NomadCrew/ap-workbench/internal/copilot"
	"github.com/NomadCrew/ap-workbench/internal/documents"
	"github.com/NomadCrew/ap-workbench/internal/rules"
	"github.com/NomadCrew/ap-workbench/internal/workbench"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/stretchr/testify/mock"
)

type MockWorkbenchService struct {
	mock.Mock
}

func (m *MockWorkbenchService) view(args mock.Arguments) (*workbench.ReviewView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workbench.ReviewView), args.Error(1)
}

func (m *MockWorkbenchService) CreateSession(ctx context.Context) (*workbench.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workbench.Session), args.Error(1)
}

func (m *MockWorkbenchService) View(ctx context.Context, sessionID string) (*workbench.ReviewView, error) {
	return m.view(m.Called(ctx, sessionID))
}

func (m *MockWorkbenchService) CloseSession(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockWorkbenchService) SelectInvoice(ctx context.Context, sessionID string, invoiceDBID int64) (*workbench.ReviewView, error) {
	return m.view(m.Called(ctx, sessionID, invoiceDBID))
}

func (m *MockWorkbenchService) Refresh(ctx context.Context, sessionID string) (*workbench.ReviewView, error) {
	return m.view(m.Called(ctx, sessionID))
}

func (m *MockWorkbenchService) CloseInvoice(ctx context.Context, sessionID string) (*workbench.ReviewView, error) {
	return m.view(m.Called(ctx, sessionID))
}

func (m *MockWorkbenchService) SetField(ctx context.Context, sessionID string, key workbench.LineKey, field workbench.Field, raw string) (*workbench.ReviewView, error) {
	return m.view(m.Called(ctx, sessionID, key, field, raw))
}

func (m *MockWorkbenchService) DiscardEdits(ctx context.Context, sessionID string) (*workbench.ReviewView, error) {
	return m.view(m.Called(ctx, sessionID))
}

func (m *MockWorkbenchService) SaveEdits(ctx context.Context, sessionID string) (types.Notice, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(types.Notice), args.Error(1)
}

func (m *MockWorkbenchService) SaveNotes(ctx context.Context, sessionID, notes string) (types.Notice, error) {
	args := m.Called(ctx, sessionID, notes)
	return args.Get(0).(types.Notice), args.Error(1)
}

func (m *MockWorkbenchService) SaveGLCode(ctx context.Context, sessionID, glCode string) (types.Notice, error) {
	args := m.Called(ctx, sessionID, glCode)
	return args.Get(0).(types.Notice), args.Error(1)
}

func (m *MockWorkbenchService) Transition(ctx context.Context, sessionID string, next types.InvoiceStatus, reason string) (types.Notice, error) {
	args := m.Called(ctx, sessionID, next, reason)
	return args.Get(0).(types.Notice), args.Error(1)
}

func (m *MockWorkbenchService) CloseCanvas(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

// Mutate runs fn against the session the expectation returns.
func (m *MockWorkbenchService) Mutate(ctx context.Context, sessionID string, fn func(*workbench.Session) error) (*workbench.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	sess := args.Get(0).(*workbench.Session)
	if err := fn(sess); err != nil {
		return nil, err
	}
	return sess, args.Error(1)
}

var _ WorkbenchService = (*MockWorkbenchService)(nil)

type MockCopilotService struct {
	mock.Mock
}

func (m *MockCopilotService) Ask(ctx context.Context, sessionID, message string) (*copilot.Reply, error) {
	args := m.Called(ctx, sessionID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*copilot.Reply), args.Error(1)
}

type MockJobBackend struct {
	mock.Mock
}

func (m *MockJobBackend) job(args mock.Arguments) (*types.Job, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Job), args.Error(1)
}

func (m *MockJobBackend) Upload(ctx context.Context, files []apclient.UploadFile) (*types.Job, error) {
	return m.job(m.Called(ctx, files))
}

func (m *MockJobBackend) SyncSampleData(ctx context.Context) (*types.Job, error) {
	return m.job(m.Called(ctx))
}

func (m *MockJobBackend) Job(ctx context.Context, jobID int64) (*types.Job, error) {
	return m.job(m.Called(ctx, jobID))
}

func (m *MockJobBackend) Jobs(ctx context.Context) ([]types.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Job), args.Error(1)
}

func (m *MockJobBackend) JobInvoices(ctx context.Context, jobID int64) ([]types.InvoiceSummary, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.InvoiceSummary), args.Error(1)
}

type MockJobWatcher struct {
	mock.Mock
}

func (m *MockJobWatcher) Watch(sessionID string, job types.Job) error {
	return m.Called(sessionID, job).Error(0)
}

func (m *MockJobWatcher) Active(sessionID string) []int64 {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]int64)
}

type MockSessionChecker struct {
	mock.Mock
}

func (m *MockSessionChecker) Exists(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

type MockDocumentRegistry struct {
	mock.Mock
}

func (m *MockDocumentRegistry) Open(ctx context.Context, sessionID string, slot documents.Slot, name string) (*documents.Handle, error) {
	args := m.Called(ctx, sessionID, slot, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*documents.Handle), args.Error(1)
}

func (m *MockDocumentRegistry) Get(handleID string) (*documents.Handle, error) {
	args := m.Called(handleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*documents.Handle), args.Error(1)
}

func (m *MockDocumentRegistry) Release(handleID string) error {
	return m.Called(handleID).Error(0)
}

func (m *MockDocumentRegistry) Session(sessionID string) []*documents.Handle {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*documents.Handle)
}

type MockInvoiceBackend struct {
	mock.Mock
}

func (m *MockInvoiceBackend) Search(ctx context.Context, req types.SearchRequest) ([]types.InvoiceSummary, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.InvoiceSummary), args.Error(1)
}

func (m *MockInvoiceBackend) ListInvoices(ctx context.Context, status types.InvoiceStatus) ([]types.InvoiceSummary, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.InvoiceSummary), args.Error(1)
}

func (m *MockInvoiceBackend) Comments(ctx context.Context, invoiceDBID int64) ([]types.Comment, error) {
	args := m.Called(ctx, invoiceDBID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Comment), args.Error(1)
}

func (m *MockInvoiceBackend) AddComment(ctx context.Context, invoiceDBID int64, text string) (*types.Comment, error) {
	args := m.Called(ctx, invoiceDBID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Comment), args.Error(1)
}

func (m *MockInvoiceBackend) AuditLog(ctx context.Context, invoiceDBID int64) ([]types.AuditLogEntry, error) {
	args := m.Called(ctx, invoiceDBID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.AuditLogEntry), args.Error(1)
}

type MockRulesService struct {
	mock.Mock
}

func (m *MockRulesService) rule(args mock.Arguments) (*types.AutomationRule, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AutomationRule), args.Error(1)
}

func (m *MockRulesService) List(ctx context.Context) ([]types.AutomationRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.AutomationRule), args.Error(1)
}

func (m *MockRulesService) Create(ctx context.Context, in types.AutomationRuleInput) (*types.AutomationRule, error) {
	return m.rule(m.Called(ctx, in))
}

func (m *MockRulesService) Update(ctx context.Context, id int64, in types.AutomationRuleInput) (*types.AutomationRule, error) {
	return m.rule(m.Called(ctx, id, in))
}

func (m *MockRulesService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRulesService) Heuristics(ctx context.Context) ([]types.HeuristicView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.HeuristicView), args.Error(1)
}

func (m *MockRulesService) Promote(ctx context.Context, id types.HeuristicID) (*types.AutomationRule, error) {
	return m.rule(m.Called(ctx, id))
}

func (m *MockRulesService) Export(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx)
	if len(args) > 1 {
		_, _ = io.WriteString(w, args.String(1))
	}
	return args.Error(0)
}

func (m *MockRulesService) Import(ctx context.Context, r io.Reader, opts rules.SyncOptions) (*rules.SyncResult, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, string(body), opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rules.SyncResult), args.Error(1)
}

var (
	_ CopilotService   = (*MockCopilotService)(nil)
	_ JobBackend       = (*MockJobBackend)(nil)
	_ JobWatcher       = (*MockJobWatcher)(nil)
	_ DocumentRegistry = (*MockDocumentRegistry)(nil)
	_ SessionChecker   = (*MockSessionChecker)(nil)
	_ InvoiceBackend   = (*MockInvoiceBackend)(nil)
	_ RulesService     = (*MockRulesService)(nil)
)
