package radarr

import (
	"encoding/json"
)

// Genres tolerates both wire forms Radarr has used over time: a plain string
// list and a list of objects with a "name" field.
type Genres []string

func (g *Genres) UnmarshalJSON(data []byte) error {
	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		*g = plain
		return nil
	}

	var objects []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &objects); err != nil {
		return err
	}

	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Name)
	}
	*g = names
	return nil
}

// quality is the doubly-nested quality descriptor Radarr attaches to
// releases, queue items and movie files.
type quality struct {
	Quality struct {
		Name string `json:"name"`
	} `json:"quality"`
}

// Upstream wire shapes. Only the fields the mediator reshapes are decoded;
// everything else is ignored.

type lookupMovie struct {
	ID        int             `json:"id"`
	Title     string          `json:"title"`
	TitleSlug string          `json:"titleSlug"`
	Year      int             `json:"year"`
	Overview  string          `json:"overview"`
	Runtime   int             `json:"runtime"`
	Status    string          `json:"status"`
	Genres    Genres          `json:"genres"`
	TmdbID    int64           `json:"tmdbId"`
	ImdbID    string          `json:"imdbId"`
	Images    json.RawMessage `json:"images"`
}

type libraryMovie struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	Year           int    `json:"year"`
	Overview       string `json:"overview"`
	Status         string `json:"status"`
	Monitored      bool   `json:"monitored"`
	HasFile        bool   `json:"hasFile"`
	Runtime        int    `json:"runtime"`
	Genres         Genres `json:"genres"`
	SizeOnDisk     int64  `json:"sizeOnDisk"`
	RootFolderPath string `json:"rootFolderPath"`
	TmdbID         int64  `json:"tmdbId"`
	ImdbID         string `json:"imdbId"`
	QualityProfile struct {
		Name string `json:"name"`
	} `json:"qualityProfile"`
	MovieFile *movieFile `json:"movieFile"`
}

type movieFile struct {
	RelativePath string  `json:"relativePath"`
	Size         int64   `json:"size"`
	Quality      quality `json:"quality"`
	DateAdded    string  `json:"dateAdded"`
}

type release struct {
	GUID       string   `json:"guid"`
	Title      string   `json:"title"`
	Size       int64    `json:"size"`
	Seeders    int      `json:"seeders"`
	Leechers   int      `json:"leechers"`
	Quality    quality  `json:"quality"`
	Indexer    string   `json:"indexer"`
	Approved   bool     `json:"approved"`
	Rejections []string `json:"rejections"`
}

type queuePage struct {
	Records      []queueRecord `json:"records"`
	TotalRecords int           `json:"totalRecords"`
}

type queueRecord struct {
	ID    int64 `json:"id"`
	Movie struct {
		Title string `json:"title"`
	} `json:"movie"`
	Title          string  `json:"title"`
	Size           float64 `json:"size"`
	SizeLeft       float64 `json:"sizeleft"`
	Status         string  `json:"status"`
	ETA            string  `json:"estimatedCompletionTime"`
	Quality        quality `json:"quality"`
	DownloadClient string  `json:"downloadClient"`
}

type wantedPage struct {
	Records      []libraryMovie `json:"records"`
	TotalRecords int            `json:"totalRecords"`
}

type systemStatus struct {
	Version string `json:"version"`
	OSName  string `json:"osName"`
	Branch  string `json:"branch"`
}

type healthItem struct {
	Source  string `json:"source"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type diskSpace struct {
	Path       string `json:"path"`
	FreeSpace  int64  `json:"freeSpace"`
	TotalSpace int64  `json:"totalSpace"`
}

type qualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type rootFolder struct {
	Path string `json:"path"`
}

// Caller-facing shapes: trimmed versions of the upstream responses, small
// enough for an agent to read without blowing out its context.

type SearchMovie struct {
	Title    string   `json:"title"`
	Year     int      `json:"year"`
	Overview string   `json:"overview"`
	TmdbID   int64    `json:"tmdb_id"`
	ImdbID   string   `json:"imdb_id,omitempty"`
	Runtime  int      `json:"runtime"`
	Status   string   `json:"status"`
	Genres   []string `json:"genres"`
}

type SearchResult struct {
	Movies []SearchMovie `json:"movies"`
	Count  int           `json:"count"`
}

type LibraryMovie struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	Year           int    `json:"year"`
	Status         string `json:"status"`
	Monitored      bool   `json:"monitored"`
	HasFile        bool   `json:"has_file"`
	SizeOnDisk     int64  `json:"size_on_disk"`
	QualityProfile string `json:"quality_profile,omitempty"`
	TmdbID         int64  `json:"tmdb_id"`
}

type LibraryResult struct {
	Movies []LibraryMovie `json:"movies"`
	Count  int            `json:"count"`
}

type MovieFile struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Quality   string `json:"quality"`
	DateAdded string `json:"date_added"`
}

type MovieDetail struct {
	ID             int        `json:"id"`
	Title          string     `json:"title"`
	Year           int        `json:"year"`
	Overview       string     `json:"overview"`
	Status         string     `json:"status"`
	Monitored      bool       `json:"monitored"`
	HasFile        bool       `json:"has_file"`
	Runtime        int        `json:"runtime"`
	Genres         []string   `json:"genres"`
	QualityProfile string     `json:"quality_profile,omitempty"`
	RootFolder     string     `json:"root_folder,omitempty"`
	SizeOnDisk     int64      `json:"size_on_disk"`
	TmdbID         int64      `json:"tmdb_id"`
	ImdbID         string     `json:"imdb_id,omitempty"`
	File           *MovieFile `json:"file,omitempty"`
}

type Release struct {
	GUID       string   `json:"guid"`
	Title      string   `json:"title"`
	Size       int64    `json:"size"`
	Seeders    int      `json:"seeders"`
	Leechers   int      `json:"leechers"`
	Quality    string   `json:"quality"`
	Indexer    string   `json:"indexer"`
	Approved   bool     `json:"approved"`
	Rejections []string `json:"rejections,omitempty"`
}

type ReleaseResult struct {
	Releases []Release `json:"releases"`
	Count    int       `json:"count"`
}

type QueueItem struct {
	ID             int64   `json:"id"`
	MovieTitle     string  `json:"movie_title,omitempty"`
	Title          string  `json:"title"`
	Size           float64 `json:"size"`
	SizeLeft       float64 `json:"sizeleft"`
	Status         string  `json:"status"`
	Progress       float64 `json:"progress"`
	ETA            string  `json:"eta,omitempty"`
	Quality        string  `json:"quality"`
	DownloadClient string  `json:"download_client,omitempty"`
}

type QueueResult struct {
	Items []QueueItem `json:"items"`
	Count int         `json:"count"`
	Total int         `json:"total"`
}

type WantedMovie struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	Year           int    `json:"year"`
	Status         string `json:"status"`
	QualityProfile string `json:"quality_profile,omitempty"`
	TmdbID         int64  `json:"tmdb_id"`
}

type WantedResult struct {
	Movies []WantedMovie `json:"movies"`
	Count  int           `json:"count"`
	Total  int           `json:"total"`
}

type HealthItem struct {
	Source  string `json:"source"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type DiskSpace struct {
	Path  string `json:"path"`
	Free  int64  `json:"free"`
	Total int64  `json:"total"`
}

type SystemStatus struct {
	Version   string       `json:"version"`
	OS        string       `json:"os"`
	Branch    string       `json:"branch"`
	Health    []HealthItem `json:"health"`
	DiskSpace []DiskSpace  `json:"disk_space"`
}

type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ProfileResult struct {
	Profiles []QualityProfile `json:"profiles"`
	Count    int              `json:"count"`
}

// AddRequest is the caller's request to add a movie to the library by TMDB
// id. Quality profile and root folder fall back to the instance defaults
// when unset.
type AddRequest struct {
	TmdbID           int64  `json:"tmdb_id"`
	Monitored        *bool  `json:"monitored"`
	SearchOnAdd      *bool  `json:"search_on_add"`
	QualityProfileID int    `json:"quality_profile_id"`
	RootFolder       string `json:"root_folder"`
}

type AddResult struct {
	Success   bool   `json:"success"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Monitored bool   `json:"monitored"`
}

type DownloadResult struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
}
