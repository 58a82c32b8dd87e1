package handlers

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/NomadCrew/ap-workbench/internal/documents"
	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	registry DocumentRegistry
	sessions SessionChecker
}

func NewDocumentHandler(registry DocumentRegistry, sessions SessionChecker) *DocumentHandler {
	return &DocumentHandler{registry: registry, sessions: sessions}
}

type OpenDocumentRequest struct {
	Name string `json:"name" binding:"required"`
	Slot string `json:"slot"`
}

// OpenDocumentHandler godoc
// @Summary Open a document in a viewer slot
// @Description Loads the named document and returns a handle; the previous handle in the slot is released
// @Tags documents
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param request body OpenDocumentRequest true "Document name and slot (invoice, po, grn)"
// @Success 201 {object} documents.Handle
// @Failure 404 {object} types.ErrorResponse "Session or document not found"
// @Router /sessions/{sid}/documents [post]
func (h *DocumentHandler) OpenDocumentHandler(c *gin.Context) {
	var req OpenDocumentRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	if err := h.sessions.Exists(c.Request.Context(), c.Param("sid")); err != nil {
		_ = c.Error(err)
		return
	}
	slot, err := documents.ParseSlot(req.Slot)
	if err != nil {
		_ = c.Error(err)
		return
	}
	handle, err := h.registry.Open(c.Request.Context(), c.Param("sid"), slot, req.Name)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handle)
}

// ListDocumentsHandler godoc
// @Summary List the session's open document handles
// @Tags documents
// @Produce json
// @Param sid path string true "Session ID"
// @Success 200 {array} documents.Handle
// @Router /sessions/{sid}/documents [get]
func (h *DocumentHandler) ListDocumentsHandler(c *gin.Context) {
	handles := h.registry.Session(c.Param("sid"))
	if handles == nil {
		handles = []*documents.Handle{}
	}
	c.JSON(http.StatusOK, handles)
}

// StreamDocumentHandler godoc
// @Summary Stream a document
// @Description Serves the handle's bytes inline so the viewer can frame them
// @Tags documents
// @Produce application/pdf
// @Param handle path string true "Document handle"
// @Success 200 {file} file
// @Failure 404 {object} types.ErrorResponse "Handle not found or released"
// @Router /documents/{handle} [get]
func (h *DocumentHandler) StreamDocumentHandler(c *gin.Context) {
	handle, err := h.registry.Get(c.Param("handle"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	data := handle.Bytes()
	disposition := mime.FormatMediaType("inline", map[string]string{"filename": handle.Name})
	c.Header("Cache-Control", "private, no-store")
	c.DataFromReader(http.StatusOK, int64(len(data)), handle.ContentType, bytes.NewReader(data), map[string]string{
		"Content-Disposition": disposition,
		"X-Document-Slot":     string(handle.Slot),
		"X-Document-Size":     strconv.Itoa(handle.Size),
	})
}

// ReleaseDocumentHandler godoc
// @Summary Release a document handle
// @Tags documents
// @Param handle path string true "Document handle"
// @Success 204
// @Failure 404 {object} types.ErrorResponse "Handle not found"
// @Router /documents/{handle} [delete]
func (h *DocumentHandler) ReleaseDocumentHandler(c *gin.Context) {
	if err := h.registry.Release(c.Param("handle")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
