package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/snowball/internal/engine"
	"github.com/pdiddy/snowball/internal/pdfmeta"
	"github.com/pdiddy/snowball/pkg/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Add seed papers by identifier or PDF",
	Long: `Seed fetches a paper's metadata by identifier and adds it to the
project as a seed. With --pdf the DOI is extracted from the document's
first pages, so a directory of downloaded papers can be seeded directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dois, _ := cmd.Flags().GetStringSlice("doi")
		arxivIDs, _ := cmd.Flags().GetStringSlice("arxiv")
		pdfs, _ := cmd.Flags().GetStringSlice("pdf")
		if len(dois) == 0 && len(arxivIDs) == 0 && len(pdfs) == 0 {
			return fmt.Errorf("nothing to seed: pass --doi, --arxiv or --pdf")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Logging)

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		project, err := st.Load(cmd.Context())
		if err != nil {
			return err
		}

		for _, path := range pdfs {
			doi, err := pdfmeta.ExtractDOI(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if doi == "" {
				return fmt.Errorf("no DOI found in %s", path)
			}
			logger.Info().Str("path", path).Str("doi", doi).Msg("extracted DOI from PDF")
			dois = append(dois, doi)
		}

		scorer, err := buildScorer(cfg, logger)
		if err != nil {
			return err
		}
		agg := buildAggregator(cfg, logger)
		eng := engine.New(agg, scorer, cfg, logger)

		var seeded []string
		for _, doi := range dois {
			id, err := eng.AddSeed(cmd.Context(), project, map[string]string{types.IDSchemeDOI: strings.ToLower(doi)})
			if err != nil {
				return fmt.Errorf("seeding %s: %w", doi, err)
			}
			seeded = append(seeded, id)
		}
		for _, aid := range arxivIDs {
			id, err := eng.AddSeed(cmd.Context(), project, map[string]string{types.IDSchemeArxiv: aid})
			if err != nil {
				return fmt.Errorf("seeding arXiv:%s: %w", aid, err)
			}
			seeded = append(seeded, id)
		}

		if err := st.Save(cmd.Context(), project); err != nil {
			return err
		}
		for _, id := range seeded {
			p := project.Papers[id]
			fmt.Printf("Seeded %s: %s (%d)\n", id, p.Title, p.Year)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringSlice("doi", nil, "DOI of a seed paper (repeatable)")
	seedCmd.Flags().StringSlice("arxiv", nil, "arXiv id of a seed paper (repeatable)")
	seedCmd.Flags().StringSlice("pdf", nil, "PDF file to extract a seed DOI from (repeatable)")
	rootCmd.AddCommand(seedCmd)
}
