package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/snowball/internal/engine"
	"github.com/pdiddy/snowball/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run snowball iterations over the current frontier",
	Long: `Run expands the frontier: references and citations of seed and
included papers are fetched, deduplicated into the corpus, and scored for
relevance. The project is saved after every iteration, so an interrupted
run loses at most the iteration in flight.

By default one iteration runs. With --auto, iterations continue until the
previous one discovered nothing new or the project's iteration bound is
reached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		iterations, _ := cmd.Flags().GetInt("iterations")
		auto, _ := cmd.Flags().GetBool("auto")
		direction, _ := cmd.Flags().GetString("direction")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if direction != "" {
			cfg.Engine.Direction = types.Direction(direction)
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
		if len(project.SeedIDs) == 0 {
			return fmt.Errorf("project has no seeds: add some with snowball seed")
		}

		scorer, err := buildScorer(cfg, logger)
		if err != nil {
			return err
		}
		agg := buildAggregator(cfg, logger)
		eng := engine.New(agg, scorer, cfg, logger)

		for i := 0; auto || i < iterations; i++ {
			if auto && !eng.ShouldContinue(project) {
				fmt.Println("Nothing left to discover, stopping.")
				break
			}

			res := <-eng.RunAsync(cmd.Context(), project)
			if res.Err != nil {
				return res.Err
			}
			if err := st.Save(cmd.Context(), project); err != nil {
				return err
			}

			fmt.Printf("Iteration %d: %d new papers (%d backward, %d forward)",
				res.Result.Iteration, len(res.Result.NewPapers), res.Result.Backward, res.Result.Forward)
			if !res.Result.Complete {
				fmt.Print(" [incomplete: some providers unavailable]")
			}
			fmt.Println()

			if len(res.Result.NewPapers) == 0 && !auto {
				break
			}
		}

		pending := project.PendingByPriority()
		fmt.Printf("Corpus: %d papers, %d pending review.\n", len(project.Papers), len(pending))
		return nil
	},
}

func init() {
	runCmd.Flags().Int("iterations", 1, "number of iterations to run")
	runCmd.Flags().Bool("auto", false, "iterate until no new papers are discovered")
	runCmd.Flags().String("direction", "", "traversal direction: backward, forward or both")
	rootCmd.AddCommand(runCmd)
}
