package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/snowball/internal/store"
	"github.com/pdiddy/snowball/pkg/types"
)

var initCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Create a new review project in the project directory",
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

		if _, err := st.Load(cmd.Context()); err == nil {
			return fmt.Errorf("project already exists in %s", cfg.Store.ProjectDir)
		} else if !errors.Is(err, store.ErrNoProject) {
			return err
		}

		description, _ := cmd.Flags().GetString("description")
		maxIterations, _ := cmd.Flags().GetInt("max-iterations")

		project := types.NewReviewProject(args[0], description)
		project.MaxIterations = maxIterations
		project.Filter = types.FilterCriteria{
			MinYear:    viper.GetInt("filter.min_year"),
			MaxYear:    viper.GetInt("filter.max_year"),
			VenueAllow: viper.GetStringSlice("filter.venue_allow"),
			VenueDeny:  viper.GetStringSlice("filter.venue_deny"),
		}

		if err := st.Save(cmd.Context(), project); err != nil {
			return err
		}
		fmt.Printf("Initialized project %q in %s\n", project.Name, cfg.Store.ProjectDir)
		return nil
	},
}

func init() {
	initCmd.Flags().String("description", "", "one-line project description")
	initCmd.Flags().Int("max-iterations", 0, "iteration bound for run --auto (0 = unbounded)")
	rootCmd.AddCommand(initCmd)
}
