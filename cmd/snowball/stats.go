package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/snowball/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-iteration discovery statistics",
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

		fmt.Printf("Project %q: iteration %d, %d seeds, %d papers\n",
			project.Name, project.CurrentIteration, len(project.SeedIDs), len(project.Papers))
		fmt.Printf("  pending %d, included %d, excluded %d\n",
			len(project.ByStatus(types.StatusPending)),
			len(project.ByStatus(types.StatusIncluded)),
			len(project.ByStatus(types.StatusExcluded)))

		if len(project.Stats) == 0 {
			return nil
		}
		iterations := make([]int, 0, len(project.Stats))
		for i := range project.Stats {
			iterations = append(iterations, i)
		}
		sort.Ints(iterations)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ITER\tDISCOVERED\tBACKWARD\tFORWARD\tFOR REVIEW\tCOMPLETE\tWHEN")
		for _, i := range iterations {
			s := project.Stats[i]
			fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%t\t%s\n",
				s.Iteration, s.Discovered, s.Backward, s.Forward, s.ForReview,
				s.Complete, s.Timestamp.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
