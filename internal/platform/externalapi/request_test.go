package externalapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"ok", http.StatusOK, `{"value":"x"}`, nil},
		{"rate limited", http.StatusTooManyRequests, `slow down`, ErrRateLimited},
		{"server error", http.StatusBadGateway, ``, ErrUnreachable},
		{"bad json", http.StatusOK, `{"value":`, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out struct {
				Value string `json:"value"`
			}
			err := GetJSON(context.Background(), srv.Client(), "op", srv.URL, &out)
			if tt.sentinel == nil {
				require.NoError(t, err)
				assert.Equal(t, "x", out.Value)
				return
			}
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestGetJSON_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := GetJSON(context.Background(), http.DefaultClient, "op", url, &struct{}{})
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestPostJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"count":` + jsonInt(in["n"]*2) + `}`))
	}))
	defer srv.Close()

	var out struct {
		Count int `json:"count"`
	}
	err := PostJSON(context.Background(), srv.Client(), "op", srv.URL, map[string]int{"n": 21}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Count)

	err = PostJSON(context.Background(), srv.Client(), "op", srv.URL, map[string]int{"n": 1}, nil)
	require.NoError(t, err)
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
