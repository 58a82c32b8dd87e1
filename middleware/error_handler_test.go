package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestErrorHandler(t *testing.T) {
	testCases := []struct {
		name               string
		err                error
		ginErrorType       gin.ErrorType
		expectedStatusCode int
		expectedType       string
		expectedMessage    string
		expectedDetails    string
		debugMode          bool
	}{
		{
			name:               "validation error shows details",
			err:                apperrors.ValidationFailed("invalid rule", "rule_name is required"),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusBadRequest,
			expectedType:       string(apperrors.ValidationError),
			expectedMessage:    "invalid rule",
			expectedDetails:    "rule_name is required",
		},
		{
			name:               "backend 404 maps to not found",
			err:                apperrors.Backend(http.StatusNotFound, "Invoice not found"),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusNotFound,
			expectedType:       string(apperrors.NotFoundError),
			expectedMessage:    "Invoice not found",
			expectedDetails:    "backend status 404",
		},
		{
			name:               "invalid transition",
			err:                apperrors.InvalidStatusTransition("PAID", "PENDING"),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusBadRequest,
			expectedType:       string(apperrors.InvalidStatusTransitionError),
			expectedDetails:    "Cannot transition from PAID to PENDING",
		},
		{
			name:               "rate limit",
			err:                apperrors.RateLimitExceeded("too many copilot requests", 30),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusTooManyRequests,
			expectedType:       string(apperrors.RateLimitError),
			expectedDetails:    "retry after 30 seconds",
		},
		{
			name:               "bind error",
			err:                errors.New("EOF"),
			ginErrorType:       gin.ErrorTypeBind,
			expectedStatusCode: http.StatusBadRequest,
			expectedType:       string(apperrors.ValidationError),
			expectedMessage:    "Failed to bind request",
			expectedDetails:    "EOF",
		},
		{
			name:               "plain error hides details in release mode",
			err:                errors.New("connection reset"),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusInternalServerError,
			expectedType:       string(apperrors.ServerError),
			expectedMessage:    "Internal Server Error",
		},
		{
			name:               "plain error shows details in debug mode",
			err:                errors.New("connection reset"),
			ginErrorType:       gin.ErrorTypePrivate,
			expectedStatusCode: http.StatusInternalServerError,
			expectedType:       string(apperrors.ServerError),
			expectedMessage:    "Internal Server Error",
			expectedDetails:    "connection reset",
			debugMode:          true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.debugMode {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}
			defer gin.SetMode(gin.TestMode)

			r := gin.New()
			r.Use(ErrorHandler())
			r.GET("/test", func(c *gin.Context) {
				_ = c.Error(tc.err).SetType(tc.ginErrorType)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedStatusCode, w.Code)

			var body types.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.expectedType, body.Type)
			if tc.expectedMessage != "" {
				assert.Equal(t, tc.expectedMessage, body.Message)
			}
			assert.Equal(t, tc.expectedDetails, body.Details)
		})
	}
}

func TestErrorHandler_NoError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}
