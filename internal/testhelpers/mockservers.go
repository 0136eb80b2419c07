package testhelpers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// MockRadarrServer is a configurable stand-in for the upstream Radarr API.
// It tracks every request it receives so tests can assert that unauthorized
// calls never reach upstream and that the API key is always attached.
type MockRadarrServer struct {
	Server *httptest.Server

	// StatusCode is returned for every request when not 200.
	StatusCode int
	// ErrorBody is the body returned alongside a non-200 StatusCode.
	ErrorBody string

	// Responses maps an endpoint (path under /api/v3/, no leading slash) to
	// the value encoded as its JSON response.
	Responses map[string]any

	RequestCount int
	LastAPIKey   string
	LastMethod   string
	LastPath     string
	LastQuery    string
	LastBody     []byte
}

// SetupMockRadarrServer starts a mock upstream with empty-but-valid default
// responses for every endpoint the mediator uses.
func SetupMockRadarrServer(t *testing.T) *MockRadarrServer {
	t.Helper()

	mock := &MockRadarrServer{
		StatusCode: http.StatusOK,
		Responses: map[string]any{
			"movie/lookup":      []any{},
			"movie/lookup/tmdb": map[string]any{},
			"movie":             []any{},
			"qualityprofile":    []any{},
			"rootfolder":        []any{},
			"release":           []any{},
			"queue":             map[string]any{"records": []any{}, "totalRecords": 0},
			"wanted/missing":    map[string]any{"records": []any{}, "totalRecords": 0},
			"system/status":     map[string]any{"version": "5.0.0", "osName": "linux", "branch": "master"},
			"health":            []any{},
			"diskspace":         []any{},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/", func(w http.ResponseWriter, r *http.Request) {
		mock.RequestCount++
		mock.LastAPIKey = r.Header.Get("X-Api-Key")
		mock.LastMethod = r.Method
		mock.LastPath = r.URL.Path
		mock.LastQuery = r.URL.RawQuery
		mock.LastBody, _ = io.ReadAll(r.Body)

		if mock.StatusCode != http.StatusOK {
			w.WriteHeader(mock.StatusCode)
			if mock.ErrorBody != "" {
				io.WriteString(w, mock.ErrorBody)
			}
			return
		}

		endpoint := strings.TrimPrefix(r.URL.Path, "/api/v3/")
		response, ok := mock.Responses[endpoint]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		WriteJSON(w, response)
	})

	mock.Server = httptest.NewServer(mux)
	t.Cleanup(mock.Server.Close)

	return mock
}

// Close shuts down the mock server.
func (m *MockRadarrServer) Close() {
	m.Server.Close()
}

// WriteJSON encodes v as the JSON response body.
func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
