package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/snowball/internal/export"
	"github.com/pdiddy/snowball/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the corpus as BibTeX, CSV or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		statusNames, _ := cmd.Flags().GetStringSlice("status")
		outPath, _ := cmd.Flags().GetString("out")

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

		var statuses []types.PaperStatus
		for _, name := range statusNames {
			switch s := types.PaperStatus(name); s {
			case types.StatusPending, types.StatusIncluded, types.StatusExcluded:
				statuses = append(statuses, s)
			default:
				return fmt.Errorf("unknown status %q", name)
			}
		}
		papers := export.Select(project, statuses...)

		var w io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		switch format {
		case "bibtex":
			err = export.BibTeX(w, papers)
		case "csv":
			err = export.CSV(w, papers)
		case "yaml":
			err = export.YAML(w, project, papers)
		default:
			err = fmt.Errorf("unknown format %q", format)
		}
		if err != nil {
			return err
		}
		if outPath != "" {
			fmt.Fprintf(os.Stderr, "Exported %d papers to %s\n", len(papers), outPath)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "bibtex", "output format: bibtex, csv or yaml")
	exportCmd.Flags().StringSlice("status", []string{"included"}, "statuses to export (repeatable; empty = all)")
	exportCmd.Flags().String("out", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
