package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/reelgate/reelgate/internal/audit"
	"github.com/reelgate/reelgate/internal/radarr"
	"github.com/rs/zerolog/log"
)

const tokenHeader = "X-Proxy-Token"

// HTTPStatuser provides HTTP status information for errors.
type HTTPStatuser interface {
	Status() (int, string)
}

// tokenAuthorizer gates every route except the health check. The token is
// an opaque shared secret compared for equality: on mismatch or absence the
// request is rejected before anything is forwarded upstream.
func tokenAuthorizer(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(tokenHeader)

			entry := audit.Log(r.Context())
			entry.TokenPresented = presented != ""

			if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
				entry.Error = "invalid or missing proxy token"
				writeJSONError(w, http.StatusUnauthorized, "invalid or missing proxy token")
				return
			}

			entry.Authorized = true
			next.ServeHTTP(w, r)
		})
	}
}

func handleHealthCheck() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func handleSearch(client radarr.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		title := r.URL.Query().Get("title")
		if title == "" {
			// older callers used "query"
			title = r.URL.Query().Get("query")
		}
		year := r.URL.Query().Get("year")

		result, err := client.Search(r.Context(), title, year)
		if err != nil {
			relayError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func handleMovies(client radarr.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		q := r.URL.Query()

		var monitored *bool
		if raw := q.Get("monitored"); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "monitored must be a boolean")
				return
			}
			monitored = &value
		}

		result, err := client.Movies(r.Context(), monitored, q.Get("status"))
		if err != nil {
			relayError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func handleMovie(client radarr.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "movie id must be an integer")
			return
		}

		result, err := client.Movie(r.Context(), id)
		if err != nil {
			relayError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func handleAddMovie(client radarr.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		var req radarr.AddRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TmdbID == 0 {
			writeJSONError(w, http.StatusBadRequest, "tmdb_id is required")
			return
		}

		result, err := client.Add(r.Context(), req)
		if err != nil {
			relayError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func handleReleases(client radarr.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		movieID, err := strconv.Atoi(r.PathValue("movieID"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "movie id must be an integer")
			return
		}

		result, err := client.Releases(r.Context(), movieID, r.URL.Query().Get("sort"))
		if err != nil {
			relayError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func handleDownload(client radarr.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		var req struct {
			GUID    string `json:"guid"`
			MovieID int    `json:"movie_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.GUID == "" || req.MovieID == 0 {
			writeJSONError(w, http.StatusBadRequest, "guid and movie_id are required")
			return
		}

		result, err := client.Download(r.Context(), req.GUID, req.MovieID)
		if err != nil {
			relayError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func handleQueue(client radarr.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		page, pageSize := paging(r)

		result, err := client.Queue(r.Context(), page, pageSize)
		if err != nil {
			relayError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func handleWanted(client radarr.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		page, pageSize := paging(r)

		result, err := client.Wanted(r.Context(), page, pageSize)
		if err != nil {
			relayError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func handleStatus(client radarr.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		result, err := client.Status(r.Context())
		if err != nil {
			relayError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func handleQualityProfiles(client radarr.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		result, err := client.QualityProfiles(r.Context())
		if err != nil {
			relayError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

// handlePassthrough forwards an arbitrary API call upstream: same method,
// path and body, with the API key substituted for authentication. The
// upstream status and body come back verbatim.
func handlePassthrough(client radarr.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		endpoint := r.PathValue("endpoint")

		resp, err := client.Forward(r.Context(), r.Method, endpoint, r.URL.RawQuery, r.Body)
		if err != nil {
			relayError(w, r, err)
			return
		}
		defer resp.Body.Close()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Ctx(r.Context()).Info().Err(err).Msg("failed to relay upstream body")
		}
	})
}

func paging(r *http.Request) (page, pageSize int) {
	page, pageSize = 1, 20
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		page = n
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil && n > 0 {
		pageSize = n
	}
	return page, pageSize
}

func maxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, limit)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// status already written; nothing left but to log
		log.Info().Msgf("failed to write JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// relayError maps an upstream failure onto the caller's response. Non-2xx
// upstream responses are reproduced with their original status and body;
// transport failures surface as Bad Gateway. The upstream's identity is
// masked, its errors are not.
func relayError(w http.ResponseWriter, r *http.Request, err error) {
	entry := audit.Log(r.Context())
	entry.Error = err.Error()

	var statusErr *radarr.StatusError
	if errors.As(err, &statusErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusErr.Code)
		if _, werr := w.Write(statusErr.Body); werr != nil {
			log.Ctx(r.Context()).Info().Err(werr).Msg("failed to relay upstream error body")
		}
		return
	}

	if errors.Is(err, radarr.ErrUnknownMovie) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	var statuser HTTPStatuser
	if errors.As(err, &statuser) {
		status, message := statuser.Status()
		writeJSONError(w, status, message)
		return
	}

	log.Ctx(r.Context()).Info().Err(err).Msg("upstream request failed")
	writeJSONError(w, http.StatusBadGateway, "upstream unreachable")
}

// drainRequestBody reads and discards any remaining request body so the
// HTTP/1 connection can be reused.
func drainRequestBody(r *http.Request) {
	if r.Body != nil {
		// 5 MB max: past this the client is assumed broken or malicious
		io.CopyN(io.Discard, r.Body, 5*1024*1024)
	}
}
