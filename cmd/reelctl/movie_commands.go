package main

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reelgate/reelgate/internal/store"
)

type fetchFunc func(ctx context.Context, client *proxyClient) (json.RawMessage, error)

// runThroughStore fetches a result from the mediator and applies the
// category policy: large categories land on disk and print a count/path
// summary, small categories print the payload itself.
func runThroughStore(cmd *cobra.Command, cctx *commandContext, category store.Category, fetch fetchFunc) error {
	client, err := cctx.client()
	if err != nil {
		return err
	}

	payload, err := fetch(cmd.Context(), client)
	if err != nil {
		return err
	}

	st, err := cctx.store()
	if err != nil {
		return err
	}

	result, err := st.Put(category, payload)
	if err != nil {
		return err
	}

	if result.Persisted() {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"count":    result.Count,
			"filepath": result.Filepath,
		})
	}

	return printRawJSON(cmd.OutOrStdout(), result.Inline)
}

func newSearchCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <title> [year]",
		Short: "Search for movies by title",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{"title": {args[0]}}
			if len(args) > 1 {
				query.Set("year", args[1])
			}

			return runThroughStore(cmd, cctx, store.CategorySearch, func(ctx context.Context, client *proxyClient) (json.RawMessage, error) {
				return client.get(ctx, "/search", query)
			})
		},
	}
}

func newMoviesCommand(cctx *commandContext) *cobra.Command {
	var monitored bool
	var status string

	cmd := &cobra.Command{
		Use:   "movies",
		Short: "List the library (cached to disk, prints count and path)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if cmd.Flags().Changed("monitored") {
				query.Set("monitored", strconv.FormatBool(monitored))
			}
			if status != "" {
				query.Set("status", status)
			}

			return runThroughStore(cmd, cctx, store.CategoryMovies, func(ctx context.Context, client *proxyClient) (json.RawMessage, error) {
				return client.get(ctx, "/movies", query)
			})
		},
	}

	cmd.Flags().BoolVar(&monitored, "monitored", false, "Only monitored (or unmonitored) movies")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (released, announced, ...)")

	return cmd
}

func newMovieCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "movie <id>",
		Short: "Show detail for one library movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.Atoi(args[0]); err != nil {
				return err
			}

			return runThroughStore(cmd, cctx, store.CategoryMovie, func(ctx context.Context, client *proxyClient) (json.RawMessage, error) {
				return client.get(ctx, "/movie/"+args[0], nil)
			})
		},
	}
}

func newAddCommand(cctx *commandContext) *cobra.Command {
	var monitored bool
	var searchOnAdd bool
	var qualityProfileID int
	var rootFolder string

	cmd := &cobra.Command{
		Use:   "add <tmdb-id>",
		Short: "Add a movie to the library by TMDB id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmdbID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}

			body := map[string]any{
				"tmdb_id":       tmdbID,
				"monitored":     monitored,
				"search_on_add": searchOnAdd,
			}
			if qualityProfileID != 0 {
				body["quality_profile_id"] = qualityProfileID
			}
			if rootFolder != "" {
				body["root_folder"] = rootFolder
			}

			return runThroughStore(cmd, cctx, store.CategoryAdd, func(ctx context.Context, client *proxyClient) (json.RawMessage, error) {
				return client.post(ctx, "/movie/add", body)
			})
		},
	}

	cmd.Flags().BoolVar(&monitored, "monitored", true, "Monitor the movie after adding")
	cmd.Flags().BoolVar(&searchOnAdd, "search-on-add", true, "Trigger a release search immediately")
	cmd.Flags().IntVar(&qualityProfileID, "quality-profile", 0, "Quality profile id (default: instance default)")
	cmd.Flags().StringVar(&rootFolder, "root-folder", "", "Root folder path (default: instance default)")

	return cmd
}

func newReleasesCommand(cctx *commandContext) *cobra.Command {
	var sortBy string

	cmd := &cobra.Command{
		Use:   "releases <movie-id>",
		Short: "Search releases for a movie (cached to disk, prints count and path)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.Atoi(args[0]); err != nil {
				return err
			}

			query := url.Values{"sort": {sortBy}}

			return runThroughStore(cmd, cctx, store.CategoryReleases, func(ctx context.Context, client *proxyClient) (json.RawMessage, error) {
				return client.get(ctx, "/releases/"+args[0], query)
			})
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "seeders", "Sort order: seeders or size")

	return cmd
}

func newDownloadCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <guid> <movie-id>",
		Short: "Download a specific release",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			movieID, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}

			client, err := cctx.client()
			if err != nil {
				return err
			}

			body := map[string]any{
				"guid":     args[0],
				"movie_id": movieID,
			}

			// download confirmations are tiny: no category, straight through
			payload, err := client.post(cmd.Context(), "/download", body)
			if err != nil {
				return err
			}

			return printRawJSON(cmd.OutOrStdout(), payload)
		},
	}
}

func newQueueCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the download queue (cached to disk, prints count and path)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThroughStore(cmd, cctx, store.CategoryQueue, func(ctx context.Context, client *proxyClient) (json.RawMessage, error) {
				return client.get(ctx, "/queue", nil)
			})
		},
	}

	return cmd
}

func newWantedCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "wanted",
		Short: "List wanted/missing movies (cached to disk, prints count and path)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThroughStore(cmd, cctx, store.CategoryWanted, func(ctx context.Context, client *proxyClient) (json.RawMessage, error) {
				return client.get(ctx, "/wanted", nil)
			})
		},
	}
}

func newStatusCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show upstream system status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThroughStore(cmd, cctx, store.CategoryStatus, func(ctx context.Context, client *proxyClient) (json.RawMessage, error) {
				return client.get(ctx, "/status", nil)
			})
		},
	}
}
