// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/snowball/pkg/types"
)

const dbFile = "snowball.db"

// SQLiteStore persists one project in an SQLite database under the project
// directory. Nested paper fields (identifier maps, author lists, edge sets)
// are stored as JSON text columns alongside the queryable scalars.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates projectDir/snowball.db in WAL mode and
// ensures the schema exists.
func NewSQLiteStore(cfg types.StoreConfig) (*SQLiteStore, error) {
	projectDir := cfg.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating project directory: %w", err)
	}

	dbPath := filepath.Join(projectDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS project (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			name TEXT NOT NULL,
			description TEXT,
			seed_ids TEXT NOT NULL,
			current_iteration INTEGER NOT NULL,
			max_iterations INTEGER NOT NULL,
			filter_criteria TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			canonical_id TEXT PRIMARY KEY,
			source_ids TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			year INTEGER,
			venue TEXT,
			abstract TEXT,
			citation_count INTEGER,
			refs TEXT,
			cits TEXT,
			status TEXT NOT NULL,
			origin TEXT,
			discovered_at_iteration INTEGER NOT NULL,
			discovered_via TEXT,
			relevance_score REAL,
			scored_at_iteration INTEGER,
			ambiguous INTEGER NOT NULL DEFAULT 0,
			ambiguous_with TEXT,
			expanded_backward INTEGER NOT NULL DEFAULT 0,
			expanded_forward INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_status ON papers(status)`,
		`CREATE TABLE IF NOT EXISTS iteration_stats (
			iteration INTEGER PRIMARY KEY,
			discovered INTEGER NOT NULL,
			backward INTEGER NOT NULL,
			forward INTEGER NOT NULL,
			for_review INTEGER NOT NULL,
			complete INTEGER NOT NULL,
			timestamp TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save writes the whole project in one transaction. Paper rows are fully
// rewritten so consolidation-removed duplicates do not linger.
func (s *SQLiteStore) Save(ctx context.Context, project *types.ReviewProject) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	seedIDs, err := json.Marshal(project.SeedIDs)
	if err != nil {
		return fmt.Errorf("marshaling seed ids: %w", err)
	}
	filter, err := json.Marshal(project.Filter)
	if err != nil {
		return fmt.Errorf("marshaling filter criteria: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO project (id, name, description, seed_ids, current_iteration, max_iterations, filter_criteria, created_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			seed_ids = excluded.seed_ids,
			current_iteration = excluded.current_iteration,
			max_iterations = excluded.max_iterations,
			filter_criteria = excluded.filter_criteria`,
		project.Name, project.Description, string(seedIDs),
		project.CurrentIteration, project.MaxIterations, string(filter),
		project.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("writing project row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM papers`); err != nil {
		return fmt.Errorf("clearing papers: %w", err)
	}
	for _, p := range project.Papers {
		if err := insertPaper(ctx, tx, p); err != nil {
			return fmt.Errorf("writing paper %s: %w", p.CanonicalID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM iteration_stats`); err != nil {
		return fmt.Errorf("clearing stats: %w", err)
	}
	for _, st := range project.Stats {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO iteration_stats (iteration, discovered, backward, forward, for_review, complete, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			st.Iteration, st.Discovered, st.Backward, st.Forward, st.ForReview,
			boolInt(st.Complete), st.Timestamp.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("writing stats for iteration %d: %w", st.Iteration, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func insertPaper(ctx context.Context, tx *sql.Tx, p *types.Paper) error {
	sourceIDs, err := json.Marshal(p.SourceIDs)
	if err != nil {
		return err
	}
	authors, err := json.Marshal(p.Authors)
	if err != nil {
		return err
	}
	refs, err := json.Marshal(p.References)
	if err != nil {
		return err
	}
	cits, err := json.Marshal(p.Citations)
	if err != nil {
		return err
	}
	ambiguousWith, err := json.Marshal(p.AmbiguousWith)
	if err != nil {
		return err
	}

	var citationCount any
	if p.CitationCount != nil {
		citationCount = *p.CitationCount
	}
	var relevance any
	if p.RelevanceScore != nil {
		relevance = *p.RelevanceScore
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO papers (
			canonical_id, source_ids, title, authors, year, venue, abstract,
			citation_count, refs, cits, status, origin,
			discovered_at_iteration, discovered_via, relevance_score,
			scored_at_iteration, ambiguous, ambiguous_with,
			expanded_backward, expanded_forward, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CanonicalID, string(sourceIDs), p.Title, string(authors), p.Year,
		p.Venue, p.Abstract, citationCount, string(refs), string(cits),
		string(p.Status), string(p.Origin), p.DiscoveredAtIteration,
		p.DiscoveredVia, relevance, p.ScoredAtIteration,
		boolInt(p.Ambiguous), string(ambiguousWith),
		boolInt(p.ExpandedBackward), boolInt(p.ExpandedForward),
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Load reads the stored project. Returns ErrNoProject when the database has
// no project row yet.
func (s *SQLiteStore) Load(ctx context.Context) (*types.ReviewProject, error) {
	project := &types.ReviewProject{
		Papers: make(map[string]*types.Paper),
		Stats:  make(map[int]types.IterationStats),
	}

	var seedIDs, filter, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, description, seed_ids, current_iteration, max_iterations, filter_criteria, created_at
		FROM project WHERE id = 1`,
	).Scan(&project.Name, &project.Description, &seedIDs,
		&project.CurrentIteration, &project.MaxIterations, &filter, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoProject
	}
	if err != nil {
		return nil, fmt.Errorf("reading project row: %w", err)
	}

	if err := json.Unmarshal([]byte(seedIDs), &project.SeedIDs); err != nil {
		return nil, fmt.Errorf("parsing seed ids: %w", err)
	}
	if err := json.Unmarshal([]byte(filter), &project.Filter); err != nil {
		return nil, fmt.Errorf("parsing filter criteria: %w", err)
	}
	project.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	if err := s.loadPapers(ctx, project); err != nil {
		return nil, err
	}
	if err := s.loadStats(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *SQLiteStore) loadPapers(ctx context.Context, project *types.ReviewProject) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT canonical_id, source_ids, title, authors, year, venue, abstract,
			citation_count, refs, cits, status, origin,
			discovered_at_iteration, discovered_via, relevance_score,
			scored_at_iteration, ambiguous, ambiguous_with,
			expanded_backward, expanded_forward, created_at
		FROM papers`)
	if err != nil {
		return fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &types.Paper{}
		var sourceIDs, authors, refs, cits, ambiguousWith, status, origin, createdAt string
		var citationCount sql.NullInt64
		var relevance sql.NullFloat64
		var ambiguous, expandedBackward, expandedForward int

		if err := rows.Scan(&p.CanonicalID, &sourceIDs, &p.Title, &authors,
			&p.Year, &p.Venue, &p.Abstract, &citationCount, &refs, &cits,
			&status, &origin, &p.DiscoveredAtIteration, &p.DiscoveredVia,
			&relevance, &p.ScoredAtIteration, &ambiguous, &ambiguousWith,
			&expandedBackward, &expandedForward, &createdAt,
		); err != nil {
			return fmt.Errorf("scanning paper row: %w", err)
		}

		if err := json.Unmarshal([]byte(sourceIDs), &p.SourceIDs); err != nil {
			return fmt.Errorf("parsing source ids for %s: %w", p.CanonicalID, err)
		}
		if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
			return fmt.Errorf("parsing authors for %s: %w", p.CanonicalID, err)
		}
		if err := json.Unmarshal([]byte(refs), &p.References); err != nil {
			return fmt.Errorf("parsing references for %s: %w", p.CanonicalID, err)
		}
		if err := json.Unmarshal([]byte(cits), &p.Citations); err != nil {
			return fmt.Errorf("parsing citations for %s: %w", p.CanonicalID, err)
		}
		if err := json.Unmarshal([]byte(ambiguousWith), &p.AmbiguousWith); err != nil {
			return fmt.Errorf("parsing ambiguity links for %s: %w", p.CanonicalID, err)
		}

		if citationCount.Valid {
			count := int(citationCount.Int64)
			p.CitationCount = &count
		}
		if relevance.Valid {
			score := relevance.Float64
			p.RelevanceScore = &score
		}
		p.Status = types.PaperStatus(status)
		p.Origin = types.Origin(origin)
		p.Ambiguous = ambiguous != 0
		p.ExpandedBackward = expandedBackward != 0
		p.ExpandedForward = expandedForward != 0
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

		project.Papers[p.CanonicalID] = p
	}
	return rows.Err()
}

func (s *SQLiteStore) loadStats(ctx context.Context, project *types.ReviewProject) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT iteration, discovered, backward, forward, for_review, complete, timestamp
		FROM iteration_stats`)
	if err != nil {
		return fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st types.IterationStats
		var complete int
		var timestamp string
		if err := rows.Scan(&st.Iteration, &st.Discovered, &st.Backward,
			&st.Forward, &st.ForReview, &complete, &timestamp); err != nil {
			return fmt.Errorf("scanning stats row: %w", err)
		}
		st.Complete = complete != 0
		st.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		project.Stats[st.Iteration] = st
	}
	return rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
