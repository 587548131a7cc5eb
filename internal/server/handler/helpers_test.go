package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polypredict/dashd/internal/domain"
)

// jsonBody marshals v into a request body reader.
func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("market 3: %w", domain.ErrNotFound), http.StatusNotFound},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"not connected", domain.ErrNotConnected, http.StatusConflict},
		{"in flight", domain.ErrActionInFlight, http.StatusConflict},
		{"not ended", domain.ErrMarketNotEnded, http.StatusConflict},
		{"not admin", domain.ErrNotAdmin, http.StatusForbidden},
		{"revert", &domain.RevertError{Reason: "insufficient balance"}, http.StatusUnprocessableEntity},
		{"wrapped revert", fmt.Errorf("dispatch: %w", &domain.RevertError{Reason: "x"}), http.StatusUnprocessableEntity},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestPathID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/markets/7", nil)
	r.SetPathValue("id", "7")

	id, err := pathID(r, "id")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		r := httptest.NewRequest(http.MethodGet, "/api/markets/x", nil)
		r.SetPathValue("id", bad)
		_, err := pathID(r, "id")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestQueryBool(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/markets?include_resolved=true&other=nope", nil)
	assert.True(t, queryBool(r, "include_resolved"))
	assert.False(t, queryBool(r, "other"))
	assert.False(t, queryBool(r, "missing"))
}
