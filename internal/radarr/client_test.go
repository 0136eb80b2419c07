package radarr_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/reelgate/reelgate/internal/config"
	"github.com/reelgate/reelgate/internal/radarr"
	"github.com/reelgate/reelgate/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (radarr.Client, *testhelpers.MockRadarrServer) {
	t.Helper()

	mock := testhelpers.SetupMockRadarrServer(t)
	client, err := radarr.New(config.RadarrConfig{
		URL:    mock.Server.URL,
		APIKey: "test-api-key",
	})
	require.NoError(t, err)

	return client, mock
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := radarr.New(config.RadarrConfig{URL: "http://radarr.local"})
	assert.ErrorContains(t, err, "API key must be configured")
}

func TestGenres_UnmarshalBothForms(t *testing.T) {
	var plain radarr.Genres
	require.NoError(t, json.Unmarshal([]byte(`["Drama","Horror"]`), &plain))
	assert.Equal(t, radarr.Genres{"Drama", "Horror"}, plain)

	var objects radarr.Genres
	require.NoError(t, json.Unmarshal([]byte(`[{"name":"Drama"},{"name":"Horror"}]`), &objects))
	assert.Equal(t, radarr.Genres{"Drama", "Horror"}, objects)
}

func TestSearch_TrimsToTenAndShortensOverview(t *testing.T) {
	client, mock := newTestClient(t)

	longOverview := strings.Repeat("x", 500)
	matches := make([]map[string]any, 12)
	for i := range matches {
		matches[i] = map[string]any{
			"title":    fmt.Sprintf("Movie %d", i),
			"year":     2000 + i,
			"overview": longOverview,
			"tmdbId":   1000 + i,
		}
	}
	mock.Responses["movie/lookup"] = matches

	result, err := client.Search(context.Background(), "movie", "")
	require.NoError(t, err)

	assert.Equal(t, 10, result.Count)
	assert.Len(t, result.Movies, 10)
	assert.Len(t, result.Movies[0].Overview, 200)
}

func TestSearch_CombinesTitleAndYear(t *testing.T) {
	client, mock := newTestClient(t)

	_, err := client.Search(context.Background(), "Dune", "1999")
	require.NoError(t, err)

	assert.Equal(t, "term=Dune+1999", mock.LastQuery)
}

func TestMovies_Filters(t *testing.T) {
	client, mock := newTestClient(t)

	mock.Responses["movie"] = []map[string]any{
		{"id": 1, "title": "A", "monitored": true, "status": "released"},
		{"id": 2, "title": "B", "monitored": false, "status": "released"},
		{"id": 3, "title": "C", "monitored": true, "status": "announced"},
	}

	monitored := true
	result, err := client.Movies(context.Background(), &monitored, "released")
	require.NoError(t, err)

	require.Len(t, result.Movies, 1)
	assert.Equal(t, "A", result.Movies[0].Title)
	assert.Equal(t, 1, result.Count)
}

func TestMovies_NoFiltersReturnsAll(t *testing.T) {
	client, mock := newTestClient(t)

	mock.Responses["movie"] = []map[string]any{
		{"id": 1, "monitored": true},
		{"id": 2, "monitored": false},
	}

	result, err := client.Movies(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
}

func TestMovie_IncludesFileDetail(t *testing.T) {
	client, mock := newTestClient(t)

	mock.Responses["movie/5"] = map[string]any{
		"id":             5,
		"title":          "Stalker",
		"year":           1979,
		"hasFile":        true,
		"rootFolderPath": "/movies",
		"movieFile": map[string]any{
			"relativePath": "Stalker (1979)/stalker.mkv",
			"size":         4_000_000_000,
			"quality":      map[string]any{"quality": map[string]any{"name": "Bluray-1080p"}},
			"dateAdded":    "2024-02-01T10:00:00Z",
		},
	}

	detail, err := client.Movie(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, "Stalker", detail.Title)
	require.NotNil(t, detail.File)
	assert.Equal(t, "Bluray-1080p", detail.File.Quality)
	assert.Equal(t, "/movies", detail.RootFolder)
}

func TestReleases_SortsBySeedersByDefault(t *testing.T) {
	client, mock := newTestClient(t)

	mock.Responses["release"] = []map[string]any{
		{"guid": "low", "seeders": 3, "size": 900},
		{"guid": "high", "seeders": 50, "size": 100},
		{"guid": "mid", "seeders": 10, "size": 500},
	}

	result, err := client.Releases(context.Background(), 5, "")
	require.NoError(t, err)

	require.Len(t, result.Releases, 3)
	assert.Equal(t, "high", result.Releases[0].GUID)
	assert.Equal(t, "mid", result.Releases[1].GUID)
	assert.Equal(t, "low", result.Releases[2].GUID)
}

func TestReleases_SortsBySizeAndTrims(t *testing.T) {
	client, mock := newTestClient(t)

	releases := make([]map[string]any, 25)
	for i := range releases {
		releases[i] = map[string]any{
			"guid":    fmt.Sprintf("r%d", i),
			"seeders": i,
			"size":    i * 100,
		}
	}
	mock.Responses["release"] = releases

	result, err := client.Releases(context.Background(), 5, "size")
	require.NoError(t, err)

	assert.Equal(t, 20, result.Count)
	assert.Equal(t, "r24", result.Releases[0].GUID)
	assert.Contains(t, mock.LastQuery, "movieId=5")
}

func TestQueue_ComputesProgress(t *testing.T) {
	client, mock := newTestClient(t)

	mock.Responses["queue"] = map[string]any{
		"records": []map[string]any{
			{
				"id":       1,
				"title":    "some.release",
				"size":     100.0,
				"sizeleft": 25.0,
				"movie":    map[string]any{"title": "Dune"},
			},
			{
				"id":       2,
				"title":    "zero.size",
				"size":     0.0,
				"sizeleft": 0.0,
			},
		},
		"totalRecords": 7,
	}

	result, err := client.Queue(context.Background(), 1, 20)
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, 75.0, result.Items[0].Progress)
	assert.Equal(t, "Dune", result.Items[0].MovieTitle)
	assert.Equal(t, 100.0, result.Items[1].Progress)
	assert.Equal(t, 7, result.Total)
	assert.Contains(t, mock.LastQuery, "pageSize=20")
}

func TestWanted_MapsRecords(t *testing.T) {
	client, mock := newTestClient(t)

	mock.Responses["wanted/missing"] = map[string]any{
		"records": []map[string]any{
			{"id": 9, "title": "Solaris", "year": 1972, "status": "released", "tmdbId": 593},
		},
		"totalRecords": 41,
	}

	result, err := client.Wanted(context.Background(), 1, 20)
	require.NoError(t, err)

	require.Len(t, result.Movies, 1)
	assert.Equal(t, "Solaris", result.Movies[0].Title)
	assert.Equal(t, 41, result.Total)
	assert.Contains(t, mock.LastQuery, "sortKey=title")
}

func TestAdd_UsesInstanceDefaults(t *testing.T) {
	client, mock := newTestClient(t)

	mock.Responses["movie/lookup/tmdb"] = map[string]any{
		"title":     "Arrival",
		"year":      2016,
		"tmdbId":    329865,
		"titleSlug": "arrival-329865",
	}
	mock.Responses["qualityprofile"] = []map[string]any{
		{"id": 6, "name": "HD-1080p"},
		{"id": 7, "name": "4K"},
	}
	mock.Responses["rootfolder"] = []map[string]any{
		{"path": "/data/movies"},
	}
	mock.Responses["movie"] = map[string]any{
		"id": 12, "title": "Arrival", "year": 2016, "monitored": true,
	}

	result, err := client.Add(context.Background(), radarr.AddRequest{TmdbID: 329865})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 12, result.ID)

	// the POST body carries the instance defaults and add options
	body := string(mock.LastBody)
	assert.Contains(t, body, `"qualityProfileId":6`)
	assert.Contains(t, body, `"rootFolderPath":"/data/movies"`)
	assert.Contains(t, body, `"searchForMovie":true`)
	assert.Contains(t, body, `"monitored":true`)
}

func TestAdd_HonoursExplicitOptions(t *testing.T) {
	client, mock := newTestClient(t)

	mock.Responses["movie/lookup/tmdb"] = map[string]any{
		"title": "Arrival", "year": 2016, "tmdbId": 329865,
	}
	mock.Responses["movie"] = map[string]any{
		"id": 12, "title": "Arrival", "year": 2016, "monitored": false,
	}

	monitored := false
	searchOnAdd := false
	_, err := client.Add(context.Background(), radarr.AddRequest{
		TmdbID:           329865,
		Monitored:        &monitored,
		SearchOnAdd:      &searchOnAdd,
		QualityProfileID: 3,
		RootFolder:       "/mnt/films",
	})
	require.NoError(t, err)

	body := string(mock.LastBody)
	assert.Contains(t, body, `"qualityProfileId":3`)
	assert.Contains(t, body, `"rootFolderPath":"/mnt/films"`)
	assert.Contains(t, body, `"searchForMovie":false`)
	assert.Contains(t, body, `"monitored":false`)
}

func TestAdd_UnknownTmdbID(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Add(context.Background(), radarr.AddRequest{TmdbID: 99999})
	assert.ErrorIs(t, err, radarr.ErrUnknownMovie)
}

func TestStatus_ToleratesHealthFailures(t *testing.T) {
	client, mock := newTestClient(t)

	// health and diskspace endpoints missing entirely
	delete(mock.Responses, "health")
	delete(mock.Responses, "diskspace")

	status, err := client.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "5.0.0", status.Version)
	assert.Empty(t, status.Health)
	assert.Empty(t, status.DiskSpace)
}

func TestDo_NonSuccessPreservesBody(t *testing.T) {
	client, mock := newTestClient(t)

	mock.StatusCode = http.StatusConflict
	mock.ErrorBody = `{"error":"already exists"}`

	_, err := client.Movies(context.Background(), nil, "")

	var statusErr *radarr.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusConflict, statusErr.Code)
	assert.JSONEq(t, `{"error":"already exists"}`, string(statusErr.Body))
}

func TestDo_AttachesAPIKey(t *testing.T) {
	client, mock := newTestClient(t)

	_, err := client.Movies(context.Background(), nil, "")
	require.NoError(t, err)

	assert.Equal(t, "test-api-key", mock.LastAPIKey)
}
