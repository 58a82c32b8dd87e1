package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ValidationError, "invalid input", "field required")
	assert.Equal(t, ValidationError, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Equal(t, "field required", err.Detail)
	assert.Equal(t, 400, err.HTTPStatus)
}

func TestWrap(t *testing.T) {
	originalErr := fmt.Errorf("original error")
	wrappedErr := Wrap(originalErr, ServerError, "operation failed")

	assert.Equal(t, ServerError, wrappedErr.Type)
	assert.Equal(t, "operation failed", wrappedErr.Message)
	assert.Equal(t, originalErr.Error(), wrappedErr.Detail)
	assert.Equal(t, 500, wrappedErr.HTTPStatus)
	assert.Equal(t, originalErr, wrappedErr.Raw)
	assert.Nil(t, Wrap(nil, ServerError, "nothing"))
}

func TestNotFound(t *testing.T) {
	err := NotFound("Invoice", 123)
	assert.Equal(t, NotFoundError, err.Type)
	assert.Equal(t, "Invoice not found", err.Message)
	assert.Equal(t, "ID: 123", err.Detail)
	assert.Equal(t, 404, err.HTTPStatus)
}

func TestBackend(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantType   ErrorType
		wantStatus int
	}{
		{"domain error", 400, BackendError, 400},
		{"not found", 404, NotFoundError, 404},
		{"server failure", 503, BackendError, 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Backend(tt.status, "Purchase Order not found")
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.wantStatus, err.GetHTTPStatus())
			assert.Equal(t, "Purchase Order not found", err.Message)
		})
	}
}

func TestNetworkAndSchema(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	netErr := Network(cause, "fetch dossier")
	assert.Equal(t, NetworkError, netErr.Type)
	assert.Equal(t, 502, netErr.GetHTTPStatus())
	assert.ErrorIs(t, netErr, cause)

	schemaErr := SchemaMismatch("fetch dossier", fmt.Errorf("match_trace: required"))
	assert.Equal(t, SchemaError, schemaErr.Type)
	assert.Contains(t, schemaErr.Error(), "match_trace")
}

func TestAsAndIsType(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewConflictError("busy", "save in flight"))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeConflict, appErr.Type)
	assert.True(t, IsType(wrapped, ErrorTypeConflict))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeConflict))
}

func TestErrorString(t *testing.T) {
	err := InvalidStatusTransition("paid", "rejected")
	assert.Equal(t, "INVALID_STATUS_TRANSITION: Invalid status transition (Cannot transition from paid to rejected)", err.Error())

	bare := InternalServerError("boom")
	assert.Equal(t, "SERVER_ERROR: boom", bare.Error())
}
