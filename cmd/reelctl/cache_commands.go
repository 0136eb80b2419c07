package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reelgate/reelgate/internal/store"
)

func newCacheCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newCacheListCommand(cctx))
	cmd.AddCommand(newCacheGetCommand(cctx))
	cmd.AddCommand(newCacheClearCommand(cctx))

	return cmd
}

func newCacheListCommand(cctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all cached results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := cctx.store()
			if err != nil {
				return err
			}

			records, err := st.List()
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"entries": records,
					"total":   len(records),
				})
			}

			if len(records) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "cache is empty")
				return err
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					string(rec.Category),
					rec.Filename,
					strconv.Itoa(rec.Count),
					rec.CachedAt.Format("2006-01-02 15:04:05"),
				})
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Category", "Filename", "Items", "Cached At"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newCacheGetCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <filename>",
		Short: "Print the full payload of one cached result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := cctx.store()
			if err != nil {
				return err
			}

			payload, err := st.Get(args[0])
			if errors.Is(err, store.ErrIntegrity) {
				return fmt.Errorf("cache is inconsistent: %w", err)
			}
			if err != nil {
				return err
			}

			return printRawJSON(cmd.OutOrStdout(), payload)
		},
	}
}

func newCacheClearCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached results and reset the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := cctx.store()
			if err != nil {
				return err
			}

			result, err := st.Clear()
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}
