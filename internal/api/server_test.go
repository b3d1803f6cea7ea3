package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToAPIErrorCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		err    error
		code   string
	}{
		{"bad request", http.StatusBadRequest, errors.New("pid is required"), "PL-API-4001"},
		{"not found", http.StatusNotFound, errors.New("paper not found"), "PL-API-4004"},
		{"conflict", http.StatusConflict, errors.New("workflow already started"), "PL-API-4009"},
		{"method", http.StatusMethodNotAllowed, errors.New("method not allowed"), "PL-API-4005"},
		{"bad gateway", http.StatusBadGateway, errors.New("compare service error 503"), "PL-API-5020"},
		{"schema missing", http.StatusInternalServerError, errors.New(`relation "papers" does not exist`), "PL-DB-5001"},
		{"db down", http.StatusInternalServerError, errors.New("dial tcp 127.0.0.1:5432: connection refused"), "PL-DB-5002"},
		{"generic 500", http.StatusInternalServerError, errors.New("boom"), "PL-API-5000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, toAPIError(tc.status, tc.err).Code)
		})
	}
}

func TestToAPIErrorValidationMessages(t *testing.T) {
	assert.Equal(t, "Paper pid is required.",
		toAPIError(http.StatusBadRequest, errors.New("pid is required")).Message)
	assert.Equal(t, "Search text is required.",
		toAPIError(http.StatusBadRequest, errors.New("text is required")).Message)
	assert.Equal(t, "Malformed JSON request body.",
		toAPIError(http.StatusBadRequest, errors.New("invalid json: unexpected EOF")).Message)
	// 5xx never leaks raw error text.
	assert.NotContains(t,
		toAPIError(http.StatusInternalServerError, errors.New("secret dsn")).Message, "secret")
}
