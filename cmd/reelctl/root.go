package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var baseURLFlag string
	var tokenFlag string
	var cacheDirFlag string

	ctx := newCommandContext(&baseURLFlag, &tokenFlag, &cacheDirFlag)

	rootCmd := &cobra.Command{
		Use:   "reelctl",
		Short: "Movie library operations through the reelgate mediator",
		Long: "reelctl drives a reelgate mediator: search for movies, manage the\n" +
			"library and monitor downloads. Bulky responses (movies, releases,\n" +
			"queue, wanted) are cached to disk and summarised to a count and a\n" +
			"file path; use the cache subcommands to inspect them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Mediator base URL (env REELGATE_URL)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Proxy token (env REELGATE_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "Result cache directory (env REELGATE_CACHE_DIR)")

	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newMoviesCommand(ctx))
	rootCmd.AddCommand(newMovieCommand(ctx))
	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newReleasesCommand(ctx))
	rootCmd.AddCommand(newDownloadCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newWantedCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))

	return rootCmd
}
