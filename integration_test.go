//go:build integration

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reelgate/reelgate/internal/config"
	"github.com/reelgate/reelgate/internal/radarr"
	"github.com/reelgate/reelgate/internal/store"
	"github.com/reelgate/reelgate/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MediatorHarness runs the full mediator over a real listener against a mock
// upstream, plus a result store in a temporary directory. Cleanup is handled
// via t.Cleanup().
type MediatorHarness struct {
	t        *testing.T
	Server   *httptest.Server
	Upstream *testhelpers.MockRadarrServer
	Store    *store.Store
	Token    string
}

func NewMediatorHarness(t *testing.T) *MediatorHarness {
	t.Helper()
	testhelpers.SetupLogger(t)

	upstream := testhelpers.SetupMockRadarrServer(t)

	cfg := config.Config{
		Server: config.ServerConfig{ProxyToken: "integration-token"},
		Radarr: config.RadarrConfig{URL: upstream.Server.URL, APIKey: "integration-api-key"},
	}

	client, err := radarr.New(cfg.Radarr)
	require.NoError(t, err)

	server := httptest.NewServer(configureServerRoutes(cfg, client))
	t.Cleanup(server.Close)

	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	return &MediatorHarness{
		t:        t,
		Server:   server,
		Upstream: upstream,
		Store:    st,
		Token:    cfg.Server.ProxyToken,
	}
}

// Call issues a request against the running mediator with the harness token
// and returns the response status and body.
func (h *MediatorHarness) Call(method, path string, body string) (int, []byte) {
	h.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}

	req, err := http.NewRequest(method, h.Server.URL+path, reader)
	require.NoError(h.t, err)
	req.Header.Set("X-Proxy-Token", h.Token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)

	return resp.StatusCode, data
}

func TestIntegration_SearchAddDownloadFlow(t *testing.T) {
	h := NewMediatorHarness(t)

	h.Upstream.Responses["movie/lookup"] = []map[string]any{
		{"title": "Dune", "year": 1984, "tmdbId": 841, "overview": "Desert planet."},
	}
	h.Upstream.Responses["movie/lookup/tmdb"] = map[string]any{
		"title": "Dune", "year": 1984, "tmdbId": 841, "titleSlug": "dune-841",
	}
	h.Upstream.Responses["movie"] = map[string]any{
		"id": 3, "title": "Dune", "year": 1984, "monitored": true,
	}
	h.Upstream.Responses["release"] = map[string]any{"id": 11}

	status, body := h.Call(http.MethodGet, "/search?title=Dune&year=1984", "")
	require.Equal(t, http.StatusOK, status)

	var search radarr.SearchResult
	require.NoError(t, json.Unmarshal(body, &search))
	require.Equal(t, 1, search.Count)
	assert.EqualValues(t, 841, search.Movies[0].TmdbID)

	status, body = h.Call(http.MethodPost, "/movie/add", `{"tmdb_id":841}`)
	require.Equal(t, http.StatusOK, status)

	var added radarr.AddResult
	require.NoError(t, json.Unmarshal(body, &added))
	assert.True(t, added.Success)
	assert.Equal(t, 3, added.ID)

	status, _ = h.Call(http.MethodPost, "/download", `{"guid":"release-guid","movie_id":3}`)
	assert.Equal(t, http.StatusOK, status)

	// the upstream saw the credential on every hop
	assert.Equal(t, "integration-api-key", h.Upstream.LastAPIKey)
}

func TestIntegration_LargeResultCachedAndCleared(t *testing.T) {
	h := NewMediatorHarness(t)

	movies := make([]map[string]any, 250)
	for i := range movies {
		movies[i] = map[string]any{"id": i, "title": "Movie", "monitored": true}
	}
	h.Upstream.Responses["movie"] = movies

	status, body := h.Call(http.MethodGet, "/movies", "")
	require.Equal(t, http.StatusOK, status)

	result, err := h.Store.Put(store.CategoryMovies, body)
	require.NoError(t, err)
	require.True(t, result.Persisted())
	assert.Equal(t, 250, result.Count)

	records, err := h.Store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)

	retrieved, err := h.Store.Get(records[0].Filename)
	require.NoError(t, err)
	assert.Equal(t, body, []byte(retrieved))

	cleared, err := h.Store.Clear()
	require.NoError(t, err)
	assert.Equal(t, store.ClearResult{Cleared: 1}, cleared)

	records, err = h.Store.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestIntegration_UnauthorizedOverTheWire(t *testing.T) {
	h := NewMediatorHarness(t)

	req, err := http.NewRequest(http.MethodGet, h.Server.URL+"/queue", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, h.Upstream.RequestCount)
}
