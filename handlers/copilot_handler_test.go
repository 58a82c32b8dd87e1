package handlers

import (
	"net/http"
	"testing"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/internal/copilot"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAskHandler(t *testing.T) {
	setup := func() (*gin.Engine, *MockCopilotService) {
		svc := new(MockCopilotService)
		r := newTestRouter()
		r.POST("/sessions/:sid/copilot", NewCopilotHandler(svc).AskHandler)
		return r, svc
	}

	t.Run("returns reply", func(t *testing.T) {
		r, svc := setup()
		notice := types.SuccessNotice("Rule created")
		svc.On("Ask", mock.Anything, testSessionID, "create a rule").
			Return(&copilot.Reply{Text: "Done", Action: copilot.ActionShowToastSuccess, Notice: &notice}, nil)

		w := performRequest(r, http.MethodPost, "/sessions/"+testSessionID+"/copilot", gin.H{"message": "create a rule"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"uiAction":"SHOW_TOAST_SUCCESS"`)
	})

	t.Run("empty message", func(t *testing.T) {
		r, svc := setup()

		w := performRequest(r, http.MethodPost, "/sessions/"+testSessionID+"/copilot", gin.H{"message": ""})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("backend error passes through", func(t *testing.T) {
		r, svc := setup()
		svc.On("Ask", mock.Anything, testSessionID, "hi").Return(nil, apperrors.Backend(503, "model overloaded"))

		w := performRequest(r, http.MethodPost, "/sessions/"+testSessionID+"/copilot", gin.H{"message": "hi"})

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "model overloaded", decodeError(t, w).Message)
	})
}
