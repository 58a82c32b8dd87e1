package types

// JobStatus is the state of an ingestion batch.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusMatching   JobStatus = "matching"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether polling for this job should stop.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobResult is the per-file outcome of an ingestion batch.
type JobResult struct {
	Filename    string   `json:"filename" validate:"required"`
	Status      string   `json:"status" validate:"required,oneof=success error"`
	Message     string   `json:"message"`
	ExtractedID *string  `json:"extracted_id,omitempty"`
	AffectedPOs []string `json:"affected_pos,omitempty"`
}

// Job is an asynchronous document-ingestion batch.
type Job struct {
	ID             int64       `json:"id" validate:"required"`
	Status         JobStatus   `json:"status" validate:"required,oneof=pending processing matching completed failed"`
	CreatedAt      string      `json:"created_at" validate:"required"`
	CompletedAt    *string     `json:"completed_at"`
	TotalFiles     int         `json:"total_files" validate:"gte=0"`
	ProcessedFiles int         `json:"processed_files" validate:"gte=0"`
	Summary        []JobResult `json:"summary" validate:"omitempty,dive"`
}

// Progress returns the processed fraction in [0, 1].
func (j *Job) Progress() float64 {
	if j.TotalFiles <= 0 {
		return 0
	}
	p := float64(j.ProcessedFiles) / float64(j.TotalFiles)
	if p > 1 {
		return 1
	}
	return p
}
