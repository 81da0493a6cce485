package commit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/csvimport/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCommitter_CommitBatch(t *testing.T) {
	var gotPath, gotAuth, gotBatch string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBatch = r.Header.Get("X-Import-Batch")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":1,"failed":1,"errors":[{"row":2,"error":"duplicate"}]}`))
	}))
	defer srv.Close()

	c, err := NewHTTPCommitter(srv.URL+"/import/{entity}", WithAPIKey("secret"))
	require.NoError(t, err)

	resp, err := c.CommitBatch(context.Background(), core.CommitRequest{
		Entity:        "contacts",
		BatchID:       "batch-1",
		Rows:          []map[string]string{{"name": "A"}, {"name": "B"}},
		ContextParams: map[string]any{"tenant": "acme"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/import/contacts", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "batch-1", gotBatch)
	assert.Len(t, gotBody["rows"], 2)
	assert.Equal(t, map[string]any{"tenant": "acme"}, gotBody["contextParams"])
	assert.NotContains(t, gotBody, "Entity")

	assert.Equal(t, core.CommitResponse{
		Success: 1,
		Failed:  1,
		Errors:  []core.CommitRowError{{Row: 2, Error: "duplicate"}},
	}, resp)
}

func TestHTTPCommitter_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, "boom", "status 500: boom"},
		{"empty error body", http.StatusBadGateway, "", "(empty body)"},
		{"bad json", http.StatusOK, "not json", "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewHTTPCommitter(srv.URL)
			require.NoError(t, err)

			_, err = c.CommitBatch(context.Background(), core.CommitRequest{
				Entity: "contacts",
				Rows:   []map[string]string{{"name": "A"}},
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewHTTPCommitter_RejectsBadEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "ftp://example.com", "not a url", "http://"} {
		_, err := NewHTTPCommitter(endpoint)
		assert.Error(t, err, endpoint)
	}
}
