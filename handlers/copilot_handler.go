package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type CopilotHandler struct {
	copilot CopilotService
}

func NewCopilotHandler(copilot CopilotService) *CopilotHandler {
	return &CopilotHandler{copilot: copilot}
}

type CopilotRequest struct {
	Message string `json:"message" binding:"required"`
}

// AskHandler godoc
// @Summary Send a message to the assistant
// @Description Relays the message with the open invoice as context and applies the returned UI action
// @Tags copilot
// @Accept json
// @Produce json
// @Param sid path string true "Session ID"
// @Param request body CopilotRequest true "Message"
// @Success 200 {object} copilot.Reply
// @Failure 429 {object} types.ErrorResponse "Rate limited"
// @Router /sessions/{sid}/copilot [post]
func (h *CopilotHandler) AskHandler(c *gin.Context) {
	var req CopilotRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	reply, err := h.copilot.Ask(c.Request.Context(), c.Param("sid"), req.Message)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, reply)
}
