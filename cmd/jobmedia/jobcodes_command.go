package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"jobmedia/internal/jobcodes"
	"jobmedia/internal/queue"
)

func newJobCodesCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	var search string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "jobcodes",
		Short: "List ERP job codes (cached for offline use)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				catalog, err := ctx.catalog(store)
				if err != nil {
					return err
				}
				listing, err := catalog.Load(cmd.Context(), refresh)
				if err != nil && len(listing.Codes) == 0 {
					return fmt.Errorf("load job codes: %w", err)
				}
				listing.Codes = jobcodes.Search(listing.Codes, search)
				if listing.Codes == nil {
					listing.Codes = []queue.JobCode{}
				}
				if jsonOutput {
					return writeJSON(cmd, listing)
				}

				out := cmd.OutOrStdout()
				if listing.Stale {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: backend unreachable; showing job codes cached %s\n", humanize.Time(listing.FetchedAt))
				}
				if len(listing.Codes) == 0 {
					fmt.Fprintln(out, "No job codes match")
					return nil
				}
				rows := make([][]string, 0, len(listing.Codes))
				for _, code := range listing.Codes {
					rows = append(rows, []string{code.Code, code.Name})
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					Headers: []string{"Code", "Name"},
					Rows:    rows,
					Footer:  []string{fmt.Sprintf("%d code(s)", len(rows)), "fetched " + humanize.Time(listing.FetchedAt)},
				}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch from the backend even when the cache is fresh")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by name or code")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
