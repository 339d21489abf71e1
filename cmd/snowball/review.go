package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/snowball/pkg/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review discovered papers",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending papers in review-priority order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		project, err := st.Load(cmd.Context())
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		pending := project.PendingByPriority()
		if limit > 0 && len(pending) > limit {
			pending = pending[:limit]
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSCORE\tCITED\tYEAR\tTITLE")
		for _, p := range pending {
			score := "-"
			if p.RelevanceScore != nil {
				score = fmt.Sprintf("%.3f", *p.RelevanceScore)
			}
			cited := "-"
			if p.CitationCount != nil {
				cited = fmt.Sprintf("%d", *p.CitationCount)
			}
			year := "-"
			if p.Year != 0 {
				year = fmt.Sprintf("%d", p.Year)
			}
			title := p.Title
			if p.Ambiguous {
				title += " [ambiguous match]"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.CanonicalID, score, cited, year, title)
		}
		return w.Flush()
	},
}

var reviewIncludeCmd = &cobra.Command{
	Use:   "include <id>...",
	Short: "Mark papers as included in the review",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd, args, types.StatusIncluded)
	},
}

var reviewExcludeCmd = &cobra.Command{
	Use:   "exclude <id>...",
	Short: "Mark papers as excluded from the review",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd, args, types.StatusExcluded)
	},
}

var reviewShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one paper's full record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		project, err := st.Load(cmd.Context())
		if err != nil {
			return err
		}
		p, ok := project.Papers[args[0]]
		if !ok {
			return fmt.Errorf("no paper with id %s", args[0])
		}

		fmt.Printf("%s\n", p.Title)
		if len(p.Authors) > 0 {
			names := make([]string, len(p.Authors))
			for i, a := range p.Authors {
				names[i] = a.Name
			}
			fmt.Printf("  authors:  %s\n", strings.Join(names, ", "))
		}
		if p.Year != 0 {
			fmt.Printf("  year:     %d\n", p.Year)
		}
		if p.Venue != "" {
			fmt.Printf("  venue:    %s\n", p.Venue)
		}
		for scheme, id := range p.SourceIDs {
			fmt.Printf("  %s: %s\n", scheme, id)
		}
		fmt.Printf("  status:   %s (origin %s, iteration %d)\n", p.Status, p.Origin, p.DiscoveredAtIteration)
		if p.RelevanceScore != nil {
			fmt.Printf("  score:    %.3f\n", *p.RelevanceScore)
		}
		fmt.Printf("  edges:    %d references, %d citations\n", len(p.References), len(p.Citations))
		if p.Ambiguous {
			fmt.Printf("  ambiguous with: %s\n", strings.Join(p.AmbiguousWith, ", "))
		}
		if p.Abstract != "" {
			fmt.Printf("\n%s\n", p.Abstract)
		}
		return nil
	},
}

// setStatus applies a review decision to each named paper and saves.
func setStatus(cmd *cobra.Command, ids []string, status types.PaperStatus) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	project, err := st.Load(cmd.Context())
	if err != nil {
		return err
	}
	for _, id := range ids {
		p, ok := project.Papers[id]
		if !ok {
			return fmt.Errorf("no paper with id %s", id)
		}
		p.Status = status
		fmt.Printf("%s: %s\n", status, p.Title)
	}
	return st.Save(cmd.Context(), project)
}

func init() {
	reviewListCmd.Flags().Int("limit", 25, "maximum papers to list (0 = all)")
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewIncludeCmd)
	reviewCmd.AddCommand(reviewExcludeCmd)
	reviewCmd.AddCommand(reviewShowCmd)
	rootCmd.AddCommand(reviewCmd)
}
