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
)

// WorkbenchService is the session surface used by the review handlers.
type WorkbenchService interface {
	CreateSession(ctx context.Context) (*workbench.Session, error)
	View(ctx context.Context, sessionID string) (*workbench.ReviewView, error)
	CloseSession(ctx context.Context, sessionID string) error
	SelectInvoice(ctx context.Context, sessionID string, invoiceDBID int64) (*workbench.ReviewView, error)
	Refresh(ctx context.Context, sessionID string) (*workbench.ReviewView, error)
	CloseInvoice(ctx context.Context, sessionID string) (*workbench.ReviewView, error)
	SetField(ctx context.Context, sessionID string, key workbench.LineKey, field workbench.Field, raw string) (*workbench.ReviewView, error)
	DiscardEdits(ctx context.Context, sessionID string) (*workbench.ReviewView, error)
	SaveEdits(ctx context.Context, sessionID string) (types.Notice, error)
	SaveNotes(ctx context.Context, sessionID, notes string) (types.Notice, error)
	SaveGLCode(ctx context.Context, sessionID, glCode string) (types.Notice, error)
	Transition(ctx context.Context, sessionID string, next types.InvoiceStatus, reason string) (types.Notice, error)
	CloseCanvas(ctx context.Context, sessionID string) error
	Mutate(ctx context.Context, sessionID string, fn func(*workbench.Session) error) (*workbench.Session, error)
}

// CopilotService answers assistant messages for a session.
type CopilotService interface {
	Ask(ctx context.Context, sessionID, message string) (*copilot.Reply, error)
}

// JobBackend starts and reads ingestion jobs.
type JobBackend interface {
	Upload(ctx context.Context, files []apclient.UploadFile) (*types.Job, error)
	SyncSampleData(ctx context.Context) (*types.Job, error)
	Job(ctx context.Context, jobID int64) (*types.Job, error)
	Jobs(ctx context.Context) ([]types.Job, error)
	JobInvoices(ctx context.Context, jobID int64) ([]types.InvoiceSummary, error)
}

// JobWatcher polls a job in the background on behalf of a session.
type JobWatcher interface {
	Watch(sessionID string, job types.Job) error
	Active(sessionID string) []int64
}

// SessionChecker confirms a session still exists.
type SessionChecker interface {
	Exists(ctx context.Context, sessionID string) error
}

// DocumentRegistry opens and serves document handles.
type DocumentRegistry interface {
	Open(ctx context.Context, sessionID string, slot documents.Slot, name string) (*documents.Handle, error)
	Get(handleID string) (*documents.Handle, error)
	Release(handleID string) error
	Session(sessionID string) []*documents.Handle
}

// InvoiceBackend covers invoice search and the collaboration reads.
type InvoiceBackend interface {
	Search(ctx context.Context, req types.SearchRequest) ([]types.InvoiceSummary, error)
	ListInvoices(ctx context.Context, status types.InvoiceStatus) ([]types.InvoiceSummary, error)
	Comments(ctx context.Context, invoiceDBID int64) ([]types.Comment, error)
	AddComment(ctx context.Context, invoiceDBID int64, text string) (*types.Comment, error)
	AuditLog(ctx context.Context, invoiceDBID int64) ([]types.AuditLogEntry, error)
}

// RulesService manages automation rules and heuristics.
type RulesService interface {
	List(ctx context.Context) ([]types.AutomationRule, error)
	Create(ctx context.Context, in types.AutomationRuleInput) (*types.AutomationRule, error)
	Update(ctx context.Context, id int64, in types.AutomationRuleInput) (*types.AutomationRule, error)
	Delete(ctx context.Context, id int64) error
	Heuristics(ctx context.Context) ([]types.HeuristicView, error)
	Promote(ctx context.Context, id types.HeuristicID) (*types.AutomationRule, error)
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader, opts rules.SyncOptions) (*rules.SyncResult, error)
}
