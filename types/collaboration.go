package types

// Comment is a reviewer note on an invoice.
type Comment struct {
	ID        int64  `json:"id" validate:"required"`
	Text      string `json:"text"`
	User      string `json:"user"`
	CreatedAt string `json:"created_at" validate:"required"`
}

// AuditLogEntry is one backend audit-trail record.
type AuditLogEntry struct {
	ID        int64                  `json:"id" validate:"required"`
	Timestamp string                 `json:"timestamp" validate:"required"`
	User      string                 `json:"user"`
	Action    string                 `json:"action" validate:"required"`
	Details   map[string]interface{} `json:"details"`
}
