package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/snowball/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the configured providers for seed candidates",
	Long: `Search queries every enabled provider and interleaves the results, so
the first page is not dominated by a single provider's ranking. Use it to
find the DOI of a paper to seed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Logging)

		agg := buildAggregator(cfg, logger)
		results, err := agg.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DOI\tYEAR\tPROVIDER\tTITLE")
		for _, c := range results {
			doi := c.Paper.SourceIDs[types.IDSchemeDOI]
			if doi == "" {
				doi = "-"
			}
			year := "-"
			if c.Paper.Year != 0 {
				year = fmt.Sprintf("%d", c.Paper.Year)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", doi, year, c.Provider, c.Paper.Title)
		}
		return w.Flush()
	},
}

func init() {
	searchCmd.Flags().Int("limit", 20, "maximum results")
	rootCmd.AddCommand(searchCmd)
}
