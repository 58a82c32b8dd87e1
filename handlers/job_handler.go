package handlers

import (
	"mime/multipart"
	"net/http"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/internal/apclient"
	"github.com/NomadCrew/ap-workbench/internal/workbench"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxUploadFiles bounds one ingestion batch.
const maxUploadFiles = 50

// JobHandler starts ingestion jobs and hands them to the background poller.
type JobHandler struct {
	backend   JobBackend
	watcher   JobWatcher
	workbench WorkbenchService
	log       *zap.SugaredLogger
}

func NewJobHandler(backend JobBackend, watcher JobWatcher, wb WorkbenchService) *JobHandler {
	return &JobHandler{
		backend:   backend,
		watcher:   watcher,
		workbench: wb,
		log:       logger.GetLogger().Named("job_handler"),
	}
}

// UploadHandler godoc
// @Summary Upload documents for ingestion
// @Description Forwards the multipart "files" field to the backend and polls the created job for this session
// @Tags jobs
// @Accept multipart/form-data
// @Produce json
// @Param sid path string true "Session ID"
// @Param files formData file true "Invoice, PO or GRN documents"
// @Success 202 {object} types.Job
// @Failure 400 {object} types.ErrorResponse "No files"
// @Router /sessions/{sid}/jobs/upload [post]
func (h *JobHandler) UploadHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid upload", err.Error()))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		_ = c.Error(apperrors.ValidationFailed("No files to upload", "multipart field \"files\" is empty"))
		return
	}
	if len(headers) > maxUploadFiles {
		_ = c.Error(apperrors.ValidationFailed("Too many files", "at most 50 files per upload"))
		return
	}

	files := make([]apclient.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll(files)
			_ = c.Error(apperrors.ValidationFailed("unreadable upload", err.Error()))
			return
		}
		files = append(files, apclient.UploadFile{Name: fh.Filename, Content: f})
	}
	defer closeAll(files)

	job, err := h.backend.Upload(c.Request.Context(), files)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.track(c, *job)
}

// SyncHandler godoc
// @Summary Start the sample-data ingestion job
// @Description Starts the backend's sample-data sync and polls it for the session
// @Tags jobs
// @Produce json
// @Param sid path string true "Session ID"
// @Success 202 {object} types.Job
// @Failure 429 {object} types.ErrorResponse "Upload rate limit exceeded"
// @Router /sessions/{sid}/jobs/sync [post]
func (h *JobHandler) SyncHandler(c *gin.Context) {
	job, err := h.backend.SyncSampleData(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.track(c, *job)
}

func (h *JobHandler) track(c *gin.Context, job types.Job) {
	sid := c.Param("sid")
	if _, err := h.workbench.Mutate(c.Request.Context(), sid, func(s *workbench.Session) error {
		s.TrackJob(job.ID)
		return nil
	}); err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.watcher.Watch(sid, job); err != nil {
		// The job exists on the backend either way; the client can poll it.
		h.log.Warnw("Failed to start job poller", "sessionID", sid, "jobID", job.ID, "error", err)
		if _, uerr := h.workbench.Mutate(c.Request.Context(), sid, func(s *workbench.Session) error {
			s.UntrackJob(job.ID)
			return nil
		}); uerr != nil {
			h.log.Warnw("Failed to untrack unwatched job", "sessionID", sid, "jobID", job.ID, "error", uerr)
		}
	}
	c.JSON(http.StatusAccepted, job)
}

// GetJobHandler godoc
// @Summary Get one ingestion job
// @Tags jobs
// @Produce json
// @Param id path int true "Job ID"
// @Success 200 {object} types.Job
// @Failure 404 {object} types.ErrorResponse "Job not found"
// @Router /jobs/{id} [get]
func (h *JobHandler) GetJobHandler(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	job, err := h.backend.Job(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobsHandler godoc
// @Summary List ingestion jobs
// @Tags jobs
// @Produce json
// @Success 200 {array} types.Job
// @Router /jobs [get]
func (h *JobHandler) ListJobsHandler(c *gin.Context) {
	jobs, err := h.backend.Jobs(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// JobInvoicesHandler godoc
// @Summary List the invoices an ingestion job produced
// @Tags jobs
// @Produce json
// @Param id path int true "Job ID"
// @Success 200 {array} types.InvoiceSummary
// @Router /jobs/{id}/invoices [get]
func (h *JobHandler) JobInvoicesHandler(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	invoices, err := h.backend.JobInvoices(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// ActiveJobsHandler godoc
// @Summary List the jobs currently polled for the session
// @Tags jobs
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {object} map[string][]int64
// @Router /sessions/{sid}/jobs [get]
func (h *JobHandler) ActiveJobsHandler(c *gin.Context) {
	active := h.watcher.Active(c.Param("sid"))
	if active == nil {
		active = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": active})
}

func closeAll(files []apclient.UploadFile) {
	for _, f := range files {
		if cl, ok := f.Content.(multipart.File); ok {
			_ = cl.Close()
		}
	}
}
