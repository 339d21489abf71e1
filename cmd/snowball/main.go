// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the snowball CLI: iterative
// literature discovery over citation graphs.
// See docs/ARCHITECTURE § CLI Surface.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/snowball/internal/aggregate"
	"github.com/pdiddy/snowball/internal/score"
	"github.com/pdiddy/snowball/internal/secrets"
	"github.com/pdiddy/snowball/internal/source"
	"github.com/pdiddy/snowball/internal/store"
	"github.com/pdiddy/snowball/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if non-empty, else the named secret.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

// rootCmd is the base command for the snowball CLI.
var rootCmd = &cobra.Command{
	Use:   "snowball",
	Short: "Iterative literature discovery over citation graphs",
	Long: `snowball grows a literature-review corpus from seed papers by walking
citation graphs: backward through references, forward through citing works.
Candidate papers are fetched from Semantic Scholar, OpenAlex and Crossref,
deduplicated across providers, and ranked by relevance to the papers already
included, so each review pass starts with the most promising candidates.

A review lives in one project directory holding snowball.db. Typical flow:
snowball init, snowball seed --doi, snowball run, snowball review list,
snowball review include, repeat.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./snowball.yaml or ~/.config/snowball/config.yaml)")
	rootCmd.PersistentFlags().String("project-dir", ".", "project directory containing snowball.db")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("snowball")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "snowball"))
		}
	}

	viper.SetEnvPrefix("SNOWBALL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, config file and secrets into one Config.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if viper.ConfigFileUsed() != "" {
		err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
			dc.TagName = "yaml"
		})
		if err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	if dir, _ := rootCmd.PersistentFlags().GetString("project-dir"); dir != "" {
		cfg.Store.ProjectDir = dir
	}

	cfg.Sources.SemanticScholar.APIKey = secretDefault("semantic-scholar-api-key", cfg.Sources.SemanticScholar.APIKey)
	cfg.Sources.OpenAlex.Email = secretDefault("openalex-email", cfg.Sources.OpenAlex.Email)
	cfg.Sources.Crossref.Email = secretDefault("crossref-email", cfg.Sources.Crossref.Email)
	return cfg, nil
}

func newLogger(cfg types.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// buildAggregator constructs the enabled source clients in configured
// priority order.
func buildAggregator(cfg types.Config, logger zerolog.Logger) *aggregate.Aggregator {
	available := map[string]source.Client{}
	if cfg.Sources.SemanticScholar.Enabled {
		available["semanticscholar"] = source.NewSemanticScholar(cfg.Sources.HTTPConfig, cfg.Sources.SemanticScholar, logger)
	}
	if cfg.Sources.OpenAlex.Enabled {
		available["openalex"] = source.NewOpenAlex(cfg.Sources.HTTPConfig, cfg.Sources.OpenAlex, logger)
	}
	if cfg.Sources.Crossref.Enabled {
		available["crossref"] = source.NewCrossref(cfg.Sources.HTTPConfig, cfg.Sources.Crossref, logger)
	}

	var clients []source.Client
	for _, name := range cfg.Sources.Priority {
		if c, ok := available[strings.ToLower(name)]; ok {
			clients = append(clients, c)
			delete(available, strings.ToLower(name))
		}
	}
	// Enabled providers absent from the priority list go last, in a fixed
	// order.
	for _, name := range []string{"semanticscholar", "openalex", "crossref"} {
		if c, ok := available[name]; ok {
			clients = append(clients, c)
		}
	}
	return aggregate.New(clients, logger)
}

// buildScorer selects the scoring strategy from configuration. The external
// reranker is wrapped so a failing service falls back to TF-IDF instead of
// blocking the iteration.
func buildScorer(cfg types.Config, logger zerolog.Logger) (score.Strategy, error) {
	switch cfg.Score.Strategy {
	case types.StrategyTFIDF, "":
		return score.NewFallback(nil, score.NewTFIDF(), logger), nil
	case types.StrategyExternal:
		if cfg.Score.Endpoint == "" {
			return nil, fmt.Errorf("score strategy external requires score.endpoint")
		}
		external := score.NewExternal(cfg.Score.Endpoint, cfg.Sources.Timeout, logger)
		return score.NewFallback(external, score.NewTFIDF(), logger), nil
	default:
		return nil, fmt.Errorf("unknown score strategy %q", cfg.Score.Strategy)
	}
}

func openStore(cfg types.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.Store)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
