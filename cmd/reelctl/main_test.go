package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/reelgate/reelgate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "cli-test-token"

// newStubMediator serves canned mediator responses, rejecting requests
// without the expected token.
func newStubMediator(t *testing.T, responses map[string]any) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Proxy-Token") != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"invalid or missing proxy token"}`)
			return
		}

		response, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"no such route"}`)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(server.Close)

	return server
}

// runCommand executes reelctl with the given args, returning its stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func moviesPayload(n int) []map[string]any {
	movies := make([]map[string]any, n)
	for i := range movies {
		movies[i] = map[string]any{"id": i, "title": fmt.Sprintf("Movie %d", i)}
	}
	return movies
}

func TestMovies_CachedToDiskWithSummary(t *testing.T) {
	cacheDir := t.TempDir()
	server := newStubMediator(t, map[string]any{
		"/movies": map[string]any{"movies": moviesPayload(250), "count": 250},
	})

	out, err := runCommand(t,
		"movies",
		"--base-url", server.URL,
		"--token", testToken,
		"--cache-dir", cacheDir,
	)
	require.NoError(t, err)

	var summary struct {
		Count    int    `json:"count"`
		Filepath string `json:"filepath"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 250, summary.Count)
	assert.Contains(t, filepath.Base(summary.Filepath), "movies_")

	// the file holds the full payload
	data, err := os.ReadFile(summary.Filepath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Movie 249")

	// manifest grew by one entry
	st, err := store.New(cacheDir)
	require.NoError(t, err)
	records, err := st.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, store.CategoryMovies, records[0].Category)
}

func TestSearch_ReturnedInlineWithNoCacheEntry(t *testing.T) {
	cacheDir := t.TempDir()
	server := newStubMediator(t, map[string]any{
		"/search": map[string]any{
			"movies": []map[string]any{{"title": "Dune", "year": 1999}},
			"count":  1,
		},
	})

	out, err := runCommand(t,
		"search", "Dune", "1999",
		"--base-url", server.URL,
		"--token", testToken,
		"--cache-dir", cacheDir,
	)
	require.NoError(t, err)

	assert.Contains(t, out, `"Dune"`)
	assert.NotContains(t, out, "filepath")

	st, err := store.New(cacheDir)
	require.NoError(t, err)
	records, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, records, "small categories must not touch the manifest")
}

func TestDownload_PrintsResultInline(t *testing.T) {
	cacheDir := t.TempDir()
	server := newStubMediator(t, map[string]any{
		"/download": map[string]any{"success": true, "result": map[string]any{"id": 9}},
	})

	out, err := runCommand(t,
		"download", "release-guid", "42",
		"--base-url", server.URL,
		"--token", testToken,
		"--cache-dir", cacheDir,
	)
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)
}

func TestCacheLifecycle(t *testing.T) {
	cacheDir := t.TempDir()
	server := newStubMediator(t, map[string]any{
		"/queue": map[string]any{"items": moviesPayload(3), "count": 3, "total": 3},
	})

	_, err := runCommand(t,
		"queue",
		"--base-url", server.URL,
		"--token", testToken,
		"--cache-dir", cacheDir,
	)
	require.NoError(t, err)

	// list shows the cached entry
	out, err := runCommand(t, "cache", "list", "--json", "--cache-dir", cacheDir)
	require.NoError(t, err)

	var listing struct {
		Entries []store.Record `json:"entries"`
		Total   int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	require.Equal(t, 1, listing.Total)
	filename := listing.Entries[0].Filename

	// get returns the payload
	out, err = runCommand(t, "cache", "get", filename, "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Movie 2")

	// clear removes files and resets the manifest
	out, err = runCommand(t, "cache", "clear", "--cache-dir", cacheDir)
	require.NoError(t, err)
	assert.Contains(t, out, `"cleared": 1`)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, "manifest.json", e.Name(), "only the manifest may remain")
	}

	out, err = runCommand(t, "cache", "list", "--json", "--cache-dir", cacheDir)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	assert.Zero(t, listing.Total)
}

func TestCacheGet_UnknownFilename(t *testing.T) {
	cacheDir := t.TempDir()

	_, err := runCommand(t, "cache", "get", "movies_19991231_235959.json", "--cache-dir", cacheDir)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCacheGet_IntegrityFailureIsDistinct(t *testing.T) {
	cacheDir := t.TempDir()

	st, err := store.New(cacheDir)
	require.NoError(t, err)
	result, err := st.Put(store.CategoryQueue, json.RawMessage(`[{"id":1}]`))
	require.NoError(t, err)

	// remove the payload file out-of-band, leaving the manifest record
	require.NoError(t, os.Remove(result.Filepath))

	_, err = runCommand(t, "cache", "get", filepath.Base(result.Filepath), "--cache-dir", cacheDir)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrIntegrity)
	assert.Contains(t, err.Error(), "cache is inconsistent")
}

func TestClient_RequiresConfiguration(t *testing.T) {
	// ensure environment fallbacks are absent
	t.Setenv("REELGATE_URL", "")
	t.Setenv("REELGATE_TOKEN", "")

	_, err := runCommand(t, "status", "--cache-dir", t.TempDir())
	assert.ErrorContains(t, err, "mediator URL required")
}

func TestMediatorError_Reported(t *testing.T) {
	server := newStubMediator(t, map[string]any{})

	_, err := runCommand(t,
		"status",
		"--base-url", server.URL,
		"--token", "wrong-token",
		"--cache-dir", t.TempDir(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid or missing proxy token")
}
