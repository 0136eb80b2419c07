// Package radarr is the only place the upstream API key is known. It issues
// requests against the Radarr v3 API and reshapes the responses into the
// trimmed forms the mediator returns to callers.
package radarr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/reelgate/reelgate/internal/config"
)

const (
	apiKeyHeader     = "X-Api-Key"
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 50 << 20 // 50 MB: a full library listing can be large
)

// ErrUnknownMovie indicates a TMDB lookup returned no match.
var ErrUnknownMovie = errors.New("no movie found for TMDB id")

// StatusError carries an upstream non-2xx response so it can be relayed to
// the caller verbatim. The mediator masks upstream identity, not upstream
// errors.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream responded %d", e.Code)
}

type Client struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

func New(cfg config.RadarrConfig, opts ...Option) (Client, error) {
	if cfg.APIKey == "" {
		return Client{}, errors.New("API key must be configured for Radarr access")
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return Client{}, fmt.Errorf("could not parse Radarr URL: %w", err)
	}

	c := Client{
		baseURL: u,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(&c)
	}

	return c, nil
}

// do issues one upstream request and decodes a 2xx JSON response into out.
// Non-2xx responses are returned as *StatusError with the upstream body
// preserved.
func (c Client) do(ctx context.Context, method, endpoint string, query url.Values, body any, out any) error {
	u := c.baseURL.JoinPath("api", "v3").JoinPath(endpoint)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("could not construct upstream request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("upstream response read failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: data}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("could not decode upstream response: %w", err)
		}
	}

	return nil
}

// Forward re-issues an arbitrary caller request against the upstream API,
// substituting the API key for authentication. The caller owns the returned
// response and must close its body.
func (c Client) Forward(ctx context.Context, method, endpoint, rawQuery string, body io.Reader) (*http.Response, error) {
	u := c.baseURL.JoinPath("api", "v3").JoinPath(endpoint)
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("could not construct upstream request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}

	return resp, nil
}

// Search looks up movies by title, optionally narrowed by year. Results are
// trimmed to the ten best matches with shortened overviews.
func (c Client) Search(ctx context.Context, title, year string) (SearchResult, error) {
	term := title
	if year != "" {
		term = title + " " + year
	}

	var matches []lookupMovie
	err := c.do(ctx, http.MethodGet, "movie/lookup", url.Values{"term": {term}}, nil, &matches)
	if err != nil {
		return SearchResult{}, err
	}

	if len(matches) > 10 {
		matches = matches[:10]
	}

	movies := make([]SearchMovie, 0, len(matches))
	for _, m := range matches {
		movies = append(movies, SearchMovie{
			Title:    m.Title,
			Year:     m.Year,
			Overview: truncate(m.Overview, 200),
			TmdbID:   m.TmdbID,
			ImdbID:   m.ImdbID,
			Runtime:  m.Runtime,
			Status:   m.Status,
			Genres:   m.Genres,
		})
	}

	return SearchResult{Movies: movies, Count: len(movies)}, nil
}

// Movies lists the library, optionally filtered by monitored flag and
// status.
func (c Client) Movies(ctx context.Context, monitored *bool, status string) (LibraryResult, error) {
	var library []libraryMovie
	err := c.do(ctx, http.MethodGet, "movie", nil, nil, &library)
	if err != nil {
		return LibraryResult{}, err
	}

	movies := make([]LibraryMovie, 0, len(library))
	for _, m := range library {
		if monitored != nil && m.Monitored != *monitored {
			continue
		}
		if status != "" && m.Status != status {
			continue
		}
		movies = append(movies, LibraryMovie{
			ID:             m.ID,
			Title:          m.Title,
			Year:           m.Year,
			Status:         m.Status,
			Monitored:      m.Monitored,
			HasFile:        m.HasFile,
			SizeOnDisk:     m.SizeOnDisk,
			QualityProfile: m.QualityProfile.Name,
			TmdbID:         m.TmdbID,
		})
	}

	return LibraryResult{Movies: movies, Count: len(movies)}, nil
}

// Movie fetches detail for a single library movie.
func (c Client) Movie(ctx context.Context, id int) (MovieDetail, error) {
	var m libraryMovie
	err := c.do(ctx, http.MethodGet, "movie/"+strconv.Itoa(id), nil, nil, &m)
	if err != nil {
		return MovieDetail{}, err
	}

	detail := MovieDetail{
		ID:             m.ID,
		Title:          m.Title,
		Year:           m.Year,
		Overview:       m.Overview,
		Status:         m.Status,
		Monitored:      m.Monitored,
		HasFile:        m.HasFile,
		Runtime:        m.Runtime,
		Genres:         m.Genres,
		QualityProfile: m.QualityProfile.Name,
		RootFolder:     m.RootFolderPath,
		SizeOnDisk:     m.SizeOnDisk,
		TmdbID:         m.TmdbID,
		ImdbID:         m.ImdbID,
	}

	if m.MovieFile != nil {
		detail.File = &MovieFile{
			Path:      m.MovieFile.RelativePath,
			Size:      m.MovieFile.Size,
			Quality:   m.MovieFile.Quality.Quality.Name,
			DateAdded: m.MovieFile.DateAdded,
		}
	}

	return detail, nil
}

// QualityProfiles lists the configured quality profiles as id/name pairs.
func (c Client) QualityProfiles(ctx context.Context) (ProfileResult, error) {
	var raw []qualityProfile
	err := c.do(ctx, http.MethodGet, "qualityprofile", nil, nil, &raw)
	if err != nil {
		return ProfileResult{}, err
	}

	profiles := make([]QualityProfile, 0, len(raw))
	for _, p := range raw {
		profiles = append(profiles, QualityProfile{ID: p.ID, Name: p.Name})
	}

	return ProfileResult{Profiles: profiles, Count: len(profiles)}, nil
}

// Add registers a movie in the library by TMDB id. Quality profile and root
// folder default to the first ones the instance reports when the caller
// doesn't choose.
func (c Client) Add(ctx context.Context, req AddRequest) (AddResult, error) {
	var lookup lookupMovie
	query := url.Values{"tmdbId": {strconv.FormatInt(req.TmdbID, 10)}}
	err := c.do(ctx, http.MethodGet, "movie/lookup/tmdb", query, nil, &lookup)
	if err != nil {
		return AddResult{}, err
	}

	if lookup.TmdbID == 0 {
		return AddResult{}, fmt.Errorf("%w: %d", ErrUnknownMovie, req.TmdbID)
	}

	profileID := req.QualityProfileID
	if profileID == 0 {
		profileID = 1
		if profiles, err := c.QualityProfiles(ctx); err == nil && len(profiles.Profiles) > 0 {
			profileID = profiles.Profiles[0].ID
		}
	}

	folder := req.RootFolder
	if folder == "" {
		folder = "/movies"
		var folders []rootFolder
		if err := c.do(ctx, http.MethodGet, "rootfolder", nil, nil, &folders); err == nil && len(folders) > 0 {
			folder = folders[0].Path
		}
	}

	monitored := req.Monitored == nil || *req.Monitored
	searchOnAdd := req.SearchOnAdd == nil || *req.SearchOnAdd

	payload := map[string]any{
		"title":            lookup.Title,
		"year":             lookup.Year,
		"tmdbId":           lookup.TmdbID,
		"imdbId":           lookup.ImdbID,
		"titleSlug":        lookup.TitleSlug,
		"images":           lookup.Images,
		"runtime":          lookup.Runtime,
		"overview":         lookup.Overview,
		"genres":           lookup.Genres,
		"qualityProfileId": profileID,
		"rootFolderPath":   folder,
		"monitored":        monitored,
		"addOptions": map[string]any{
			"searchForMovie": searchOnAdd,
		},
	}

	var added struct {
		ID        int    `json:"id"`
		Title     string `json:"title"`
		Year      int    `json:"year"`
		Monitored bool   `json:"monitored"`
	}
	err = c.do(ctx, http.MethodPost, "movie", nil, payload, &added)
	if err != nil {
		return AddResult{}, err
	}

	return AddResult{
		Success:   true,
		ID:        added.ID,
		Title:     added.Title,
		Year:      added.Year,
		Monitored: added.Monitored,
	}, nil
}

// Releases lists release candidates for a movie, sorted descending by
// seeders (default) or size, trimmed to the top twenty.
func (c Client) Releases(ctx context.Context, movieID int, sortBy string) (ReleaseResult, error) {
	var raw []release
	query := url.Values{"movieId": {strconv.Itoa(movieID)}}
	err := c.do(ctx, http.MethodGet, "release", query, nil, &raw)
	if err != nil {
		return ReleaseResult{}, err
	}

	switch sortBy {
	case "size":
		sort.SliceStable(raw, func(i, j int) bool { return raw[i].Size > raw[j].Size })
	default:
		sort.SliceStable(raw, func(i, j int) bool { return raw[i].Seeders > raw[j].Seeders })
	}

	if len(raw) > 20 {
		raw = raw[:20]
	}

	releases := make([]Release, 0, len(raw))
	for _, r := range raw {
		releases = append(releases, Release{
			GUID:       r.GUID,
			Title:      r.Title,
			Size:       r.Size,
			Seeders:    r.Seeders,
			Leechers:   r.Leechers,
			Quality:    r.Quality.Quality.Name,
			Indexer:    r.Indexer,
			Approved:   r.Approved,
			Rejections: r.Rejections,
		})
	}

	return ReleaseResult{Releases: releases, Count: len(releases)}, nil
}

// Download asks Radarr to grab a specific release.
func (c Client) Download(ctx context.Context, guid string, movieID int) (DownloadResult, error) {
	payload := map[string]any{
		"guid":    guid,
		"movieId": movieID,
	}

	var result json.RawMessage
	err := c.do(ctx, http.MethodPost, "release", nil, payload, &result)
	if err != nil {
		return DownloadResult{}, err
	}

	return DownloadResult{Success: true, Result: result}, nil
}

// Queue reports the current download queue with a computed progress
// percentage per item.
func (c Client) Queue(ctx context.Context, page, pageSize int) (QueueResult, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"pageSize": {strconv.Itoa(pageSize)},
	}

	var raw queuePage
	err := c.do(ctx, http.MethodGet, "queue", query, nil, &raw)
	if err != nil {
		return QueueResult{}, err
	}

	items := make([]QueueItem, 0, len(raw.Records))
	for _, rec := range raw.Records {
		items = append(items, QueueItem{
			ID:             rec.ID,
			MovieTitle:     rec.Movie.Title,
			Title:          rec.Title,
			Size:           rec.Size,
			SizeLeft:       rec.SizeLeft,
			Status:         rec.Status,
			Progress:       progress(rec.Size, rec.SizeLeft),
			ETA:            rec.ETA,
			Quality:        rec.Quality.Quality.Name,
			DownloadClient: rec.DownloadClient,
		})
	}

	return QueueResult{Items: items, Count: len(items), Total: raw.TotalRecords}, nil
}

// Wanted reports monitored movies with no file, sorted by title upstream.
func (c Client) Wanted(ctx context.Context, page, pageSize int) (WantedResult, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"pageSize": {strconv.Itoa(pageSize)},
		"sortKey":  {"title"},
	}

	var raw wantedPage
	err := c.do(ctx, http.MethodGet, "wanted/missing", query, nil, &raw)
	if err != nil {
		return WantedResult{}, err
	}

	movies := make([]WantedMovie, 0, len(raw.Records))
	for _, m := range raw.Records {
		movies = append(movies, WantedMovie{
			ID:             m.ID,
			Title:          m.Title,
			Year:           m.Year,
			Status:         m.Status,
			QualityProfile: m.QualityProfile.Name,
			TmdbID:         m.TmdbID,
		})
	}

	return WantedResult{Movies: movies, Count: len(movies), Total: raw.TotalRecords}, nil
}

// Status combines system status, health and disk space into one report.
// Health and disk space are best-effort: their failures leave empty lists
// rather than failing the whole call.
func (c Client) Status(ctx context.Context) (SystemStatus, error) {
	var sys systemStatus
	err := c.do(ctx, http.MethodGet, "system/status", nil, nil, &sys)
	if err != nil {
		return SystemStatus{}, err
	}

	status := SystemStatus{
		Version:   sys.Version,
		OS:        sys.OSName,
		Branch:    sys.Branch,
		Health:    []HealthItem{},
		DiskSpace: []DiskSpace{},
	}

	var health []healthItem
	if err := c.do(ctx, http.MethodGet, "health", nil, nil, &health); err == nil {
		for _, h := range health {
			status.Health = append(status.Health, HealthItem{Source: h.Source, Type: h.Type, Message: h.Message})
		}
	}

	var disks []diskSpace
	if err := c.do(ctx, http.MethodGet, "diskspace", nil, nil, &disks); err == nil {
		for _, d := range disks {
			status.DiskSpace = append(status.DiskSpace, DiskSpace{Path: d.Path, Free: d.FreeSpace, Total: d.TotalSpace})
		}
	}

	return status, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func progress(size, sizeLeft float64) float64 {
	if size <= 0 {
		size = 1
	}
	pct := (1 - sizeLeft/size) * 100
	// one decimal place, matching the queue display convention
	return float64(int(pct*10+0.5)) / 10
}
