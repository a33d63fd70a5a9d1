package normalize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
)

func TestRemoteCleanerClean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/text/clean", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "van ban tho", req["text"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"original_text": "van ban tho",
			"cleaned_text":  "văn bản sạch",
			"improvements":  []string{"diacritics restored"},
			"statistics":    map[string]any{"changes": 1},
		})
	}))
	defer srv.Close()

	c := NewRemoteCleaner(RemoteConfig{BaseURL: srv.URL}, nil, nil)
	cleaned, improvements, err := c.Clean(context.Background(), "van ban tho")
	require.NoError(t, err)
	assert.Equal(t, "văn bản sạch", cleaned)
	assert.Equal(t, []string{"diacritics restored"}, improvements)
}

func TestRemoteCleanerServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer srv.Close()

	c := NewRemoteCleaner(RemoteConfig{BaseURL: srv.URL}, nil, nil)
	_, _, err := c.Clean(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrEngineUnavailable)
}

func TestRemoteCleanerUnreachable(t *testing.T) {
	c := NewRemoteCleaner(RemoteConfig{BaseURL: "http://127.0.0.1:1"}, nil, nil)
	_, _, err := c.Clean(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrEngineUnavailable)
}
