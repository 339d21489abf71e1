// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine drives snowball iterations: collect the frontier, fetch
// citation edges through the aggregator, resolve candidates into the corpus
// and score the pending set. The corpus has single-writer discipline: only
// the resolving phase mutates the project, and an iteration completes or
// fails atomically with respect to it.
// Implements: docs/ARCHITECTURE § Snowball Engine.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/snowball/internal/aggregate"
	"github.com/pdiddy/snowball/internal/dedupe"
	"github.com/pdiddy/snowball/internal/score"
	"github.com/pdiddy/snowball/pkg/types"
)

// State is the engine's position in the iteration state machine.
type State string

const (
	StateIdle               State = "idle"
	StateCollectingFrontier State = "collecting-frontier"
	StateFetching           State = "fetching"
	StateResolving          State = "resolving"
	StateScoring            State = "scoring"
	StateIterationComplete  State = "iteration-complete"
)

// Fetcher is the aggregator surface the engine needs. *aggregate.Aggregator
// implements it.
type Fetcher interface {
	Lookup(ctx context.Context, ids map[string]string) (*aggregate.Candidate, error)
	Citations(ctx context.Context, ids map[string]string, limit int) (aggregate.Result, error)
	References(ctx context.Context, ids map[string]string, limit int) (aggregate.Result, error)
}

// IterationResult is what one completed iteration exposes to the caller.
type IterationResult struct {
	// Iteration is the counter value the papers were discovered at.
	Iteration int

	// NewPapers holds the canonical ids of papers inserted this iteration,
	// in discovery order.
	NewPapers []string

	// Backward and Forward count new papers by traversal direction.
	Backward int
	Forward  int

	// Complete is false when any frontier fetch failed or returned partial
	// provider coverage.
	Complete bool

	// Skipped lists providers that were skipped during fetching, deduped.
	Skipped []string
}

// Engine runs snowball iterations over one project at a time. It is safe to
// invoke from a single worker per project; concurrent iterations over the
// same project are not supported.
type Engine struct {
	fetcher Fetcher
	scorer  score.Strategy
	cfg     types.EngineConfig
	dedupe  types.DedupeConfig
	limit   int
	log     zerolog.Logger

	mu    sync.Mutex
	state State
}

// New creates an Engine configured from cfg.Engine, cfg.Dedupe and
// cfg.Sources.PerPaperLimit.
func New(fetcher Fetcher, scorer score.Strategy, cfg types.Config, log zerolog.Logger) *Engine {
	engineCfg := cfg.Engine
	if engineCfg.Direction == "" {
		engineCfg.Direction = types.DirectionBoth
	}
	if engineCfg.FetchWorkers <= 0 {
		engineCfg.FetchWorkers = 4
	}
	return &Engine{
		fetcher: fetcher,
		scorer:  scorer,
		cfg:     engineCfg,
		dedupe:  cfg.Dedupe,
		limit:   cfg.Sources.PerPaperLimit,
		log:     log.With().Str("component", "engine").Logger(),
		state:   StateIdle,
	}
}

// State returns the engine's current state. Safe to call while RunAsync is
// in flight.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	e.log.Debug().Str("state", string(s)).Msg("state transition")
}

// frontierEntry pairs a frontier paper with the directions it still needs
// expanded.
type frontierEntry struct {
	paper    *types.Paper
	backward bool
	forward  bool
}

// fetchOutcome buffers one frontier paper's fetch results until the fan-in.
type fetchOutcome struct {
	backward    aggregate.Result
	backwardErr error
	forward     aggregate.Result
	forwardErr  error
}

// RunIteration executes one full snowball iteration synchronously. An empty
// frontier is a no-op success: the project is left untouched. Provider
// failures never abort the iteration; they surface through Complete and
// Skipped. The returned error is reserved for cancellation and non-provider
// faults.
func (e *Engine) RunIteration(ctx context.Context, project *types.ReviewProject) (IterationResult, error) {
	defer e.setState(StateIdle)

	e.setState(StateCollectingFrontier)
	frontier := e.collectFrontier(project)
	if len(frontier) == 0 {
		e.log.Info().Int("iteration", project.CurrentIteration).Msg("empty frontier, nothing to expand")
		e.setState(StateIterationComplete)
		return IterationResult{Iteration: project.CurrentIteration, Complete: true}, nil
	}

	e.setState(StateFetching)
	outcomes, err := e.fetchAll(ctx, frontier)
	if err != nil {
		return IterationResult{}, err
	}

	e.setState(StateResolving)
	result := e.resolveAll(project, frontier, outcomes)

	e.setState(StateScoring)
	if err := e.scorePending(ctx, project); err != nil {
		return IterationResult{}, err
	}

	e.setState(StateIterationComplete)
	result.Iteration = project.CurrentIteration
	pendingCount := len(project.ByStatus(types.StatusPending))
	project.Stats[project.CurrentIteration] = types.IterationStats{
		Iteration:  project.CurrentIteration,
		Discovered: len(result.NewPapers),
		Backward:   result.Backward,
		Forward:    result.Forward,
		ForReview:  pendingCount,
		Complete:   result.Complete,
		Timestamp:  time.Now().UTC(),
	}
	project.CurrentIteration++

	e.log.Info().
		Int("iteration", result.Iteration).
		Int("discovered", len(result.NewPapers)).
		Int("backward", result.Backward).
		Int("forward", result.Forward).
		Bool("complete", result.Complete).
		Msg("iteration complete")
	return result, nil
}

// AsyncResult carries RunAsync's outcome over its channel.
type AsyncResult struct {
	Result IterationResult
	Err    error
}

// RunAsync runs one iteration in a background goroutine and returns a
// channel that delivers the single result. The caller must not touch the
// project until the result arrives.
func (e *Engine) RunAsync(ctx context.Context, project *types.ReviewProject) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		result, err := e.RunIteration(ctx, project)
		ch <- AsyncResult{Result: result, Err: err}
		close(ch)
	}()
	return ch
}

// AddSeed looks up a paper by identifier, resolves it into the corpus and
// appends it to the project's seed list. Returns the canonical id.
func (e *Engine) AddSeed(ctx context.Context, project *types.ReviewProject, ids map[string]string) (string, error) {
	candidate, err := e.fetcher.Lookup(ctx, ids)
	if err != nil {
		return "", err
	}

	paper := candidate.Paper
	paper.Origin = types.OriginSeed
	paper.Status = types.StatusPending
	paper.DiscoveredAtIteration = project.CurrentIteration

	resolver := dedupe.NewResolver(project, e.dedupe, e.log)
	outcome := resolver.Resolve(&paper)

	if !project.IsSeed(outcome.CanonicalID) {
		project.SeedIDs = append(project.SeedIDs, outcome.CanonicalID)
	}
	e.log.Info().
		Str("canonical_id", outcome.CanonicalID).
		Str("provider", candidate.Provider).
		Bool("new", outcome.New).
		Msg("seed added")
	return outcome.CanonicalID, nil
}

// ShouldContinue reports whether another iteration is worth running: the
// iteration bound is not exhausted, the frontier is non-empty, and the last
// completed iteration still discovered papers. The frontier check matters
// after a fully-expanded pass: newly discovered papers sit in pending until
// reviewed, so without it a driver loop would spin on no-op iterations.
func (e *Engine) ShouldContinue(project *types.ReviewProject) bool {
	if project.MaxIterations > 0 && project.CurrentIteration >= project.MaxIterations {
		return false
	}
	if len(e.collectFrontier(project)) == 0 {
		return false
	}
	last, ok := project.Stats[project.CurrentIteration-1]
	if !ok {
		// Nothing has run yet.
		return true
	}
	return last.Discovered > 0
}

// collectFrontier selects the papers eligible for expansion: seeds in
// addition order, then included papers by canonical id, not yet expanded in
// at least one configured direction and passing the project filter.
func (e *Engine) collectFrontier(project *types.ReviewProject) []frontierEntry {
	wantBackward := e.cfg.Direction == types.DirectionBackward || e.cfg.Direction == types.DirectionBoth
	wantForward := e.cfg.Direction == types.DirectionForward || e.cfg.Direction == types.DirectionBoth

	var frontier []frontierEntry
	seen := make(map[string]bool)

	consider := func(p *types.Paper) {
		if p == nil || seen[p.CanonicalID] {
			return
		}
		seen[p.CanonicalID] = true
		if !project.Filter.Allows(p) {
			return
		}
		entry := frontierEntry{
			paper:    p,
			backward: wantBackward && !p.ExpandedBackward,
			forward:  wantForward && !p.ExpandedForward,
		}
		if entry.backward || entry.forward {
			frontier = append(frontier, entry)
		}
	}

	for _, id := range project.SeedIDs {
		consider(project.Papers[id])
	}
	for _, p := range project.ByStatus(types.StatusIncluded) {
		consider(p)
	}
	return frontier
}

// fetchAll fans frontier fetches out over a bounded worker pool and waits
// for all of them to settle. Results are buffered per frontier position so
// the resolving phase can process them in frontier-selection order.
// Cancellation is checked between per-paper fetches; on cancellation the
// corpus is untouched.
func (e *Engine) fetchAll(ctx context.Context, frontier []frontierEntry) ([]fetchOutcome, error) {
	outcomes := make([]fetchOutcome, len(frontier))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := e.cfg.FetchWorkers
	if workers > len(frontier) {
		workers = len(frontier)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// Drain remaining jobs on cancellation so the sender never
				// blocks against exited workers.
				if ctx.Err() != nil {
					continue
				}
				outcomes[i] = e.fetchOne(ctx, frontier[i])
			}
		}()
	}

	for i := range frontier {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (e *Engine) fetchOne(ctx context.Context, entry frontierEntry) fetchOutcome {
	var out fetchOutcome
	ids := entry.paper.SourceIDs
	if entry.backward {
		out.backward, out.backwardErr = e.fetcher.References(ctx, ids, e.limit)
		if out.backwardErr != nil {
			e.log.Warn().Err(out.backwardErr).
				Str("canonical_id", entry.paper.CanonicalID).
				Msg("reference fetch failed")
		}
	}
	if entry.forward && ctx.Err() == nil {
		out.forward, out.forwardErr = e.fetcher.Citations(ctx, ids, e.limit)
		if out.forwardErr != nil {
			e.log.Warn().Err(out.forwardErr).
				Str("canonical_id", entry.paper.CanonicalID).
				Msg("citation fetch failed")
		}
	}
	return out
}

// resolveAll runs the identity resolver over all buffered candidates in
// deterministic order: frontier-selection order, then provider order within
// each fetch result. This is the only phase that mutates the project.
func (e *Engine) resolveAll(project *types.ReviewProject, frontier []frontierEntry, outcomes []fetchOutcome) IterationResult {
	result := IterationResult{Complete: true}
	resolver := dedupe.NewResolver(project, e.dedupe, e.log)
	skipped := make(map[string]bool)

	for i, entry := range frontier {
		out := outcomes[i]
		// Consolidation may replace the frontier paper mid-loop; keep a
		// pointer that tracks the surviving record.
		paper := entry.paper

		if entry.backward {
			if out.backwardErr != nil {
				result.Complete = false
			} else {
				added := e.resolveEdges(project, resolver, paper, out.backward, types.OriginBackward, &result)
				paper = survivorOf(project, resolver, paper)
				result.Backward += added
				paper.ExpandedBackward = true
				if !out.backward.Complete {
					result.Complete = false
				}
				for _, name := range out.backward.Skipped {
					skipped[name] = true
				}
			}
		}
		if entry.forward {
			if out.forwardErr != nil {
				result.Complete = false
			} else {
				added := e.resolveEdges(project, resolver, paper, out.forward, types.OriginForward, &result)
				paper = survivorOf(project, resolver, paper)
				result.Forward += added
				paper.ExpandedForward = true
				if !out.forward.Complete {
					result.Complete = false
				}
				for _, name := range out.forward.Skipped {
					skipped[name] = true
				}
			}
		}
	}

	for name := range skipped {
		result.Skipped = append(result.Skipped, name)
	}
	sort.Strings(result.Skipped)
	return result
}

// resolveEdges resolves one fetch result's candidates against the corpus
// and records the citation edges on both endpoints. Candidates carrying
// only an identifier (no title) are recorded as unresolved edge tokens
// rather than corpus papers. Returns the number of new papers.
func (e *Engine) resolveEdges(project *types.ReviewProject, resolver *dedupe.Resolver, from *types.Paper, res aggregate.Result, origin types.Origin, result *IterationResult) int {
	added := 0
	for _, candidate := range res.Papers {
		paper := candidate.Paper

		if paper.Title == "" {
			e.recordUnresolvedEdge(resolver, from, paper, origin)
			continue
		}

		paper.Status = types.StatusPending
		paper.Origin = origin
		paper.DiscoveredAtIteration = project.CurrentIteration
		paper.DiscoveredVia = from.CanonicalID

		outcome := resolver.Resolve(&paper)
		if outcome.New {
			added++
			result.NewPapers = append(result.NewPapers, outcome.CanonicalID)
		}

		// Resolving may have consolidated the frontier paper itself away
		// (the candidate bridged it with an earlier duplicate). Follow the
		// surviving record before writing edges, or the reciprocal edge
		// would land on the deleted object and the survivor would carry a
		// dangling canonical id.
		from = survivorOf(project, resolver, from)

		target := project.Papers[outcome.CanonicalID]
		if target == nil || outcome.CanonicalID == from.CanonicalID {
			continue
		}
		if origin == types.OriginBackward {
			from.AddReference(outcome.CanonicalID)
			target.AddCitation(from.CanonicalID)
		} else {
			from.AddCitation(outcome.CanonicalID)
			target.AddReference(from.CanonicalID)
		}
	}
	return added
}

// survivorOf returns the record that now holds p's identity: p itself when
// it is still in the corpus, or the paper that absorbed it through
// consolidation.
func survivorOf(project *types.ReviewProject, resolver *dedupe.Resolver, p *types.Paper) *types.Paper {
	if current, ok := project.Papers[resolver.Current(p.CanonicalID)]; ok {
		return current
	}
	return p
}

// recordUnresolvedEdge links a work known only by identifier. When the
// identifier already maps to a corpus paper the real edge is recorded;
// otherwise an external token keeps the edge pending resolution.
func (e *Engine) recordUnresolvedEdge(resolver *dedupe.Resolver, from *types.Paper, paper types.Paper, origin types.Origin) {
	for _, scheme := range []string{types.IDSchemeDOI, types.IDSchemeArxiv, types.IDSchemeSemanticScholar, types.IDSchemeOpenAlex, types.IDSchemeCrossref} {
		id, ok := paper.SourceIDs[scheme]
		if !ok || id == "" {
			continue
		}
		edge := types.ExternalToken(scheme, id)
		if canonical, known := resolver.CanonicalFor(scheme, id); known {
			edge = canonical
		}
		if origin == types.OriginBackward {
			from.AddReference(edge)
		} else {
			from.AddCitation(edge)
		}
		return
	}
}

// scorePending scores every pending paper lacking a current-iteration
// score against the included corpus plus the seeds. Scoring failures are
// absorbed by the strategy's fallback; an error here means cancellation.
func (e *Engine) scorePending(ctx context.Context, project *types.ReviewProject) error {
	var toScore []*types.Paper
	for _, p := range project.ByStatus(types.StatusPending) {
		if p.RelevanceScore == nil || p.ScoredAtIteration != project.CurrentIteration {
			toScore = append(toScore, p)
		}
	}
	if len(toScore) == 0 {
		return nil
	}

	reference := project.ByStatus(types.StatusIncluded)
	refSeen := make(map[string]bool, len(reference))
	for _, p := range reference {
		refSeen[p.CanonicalID] = true
	}
	for _, id := range project.SeedIDs {
		if p, ok := project.Papers[id]; ok && !refSeen[id] {
			refSeen[id] = true
			reference = append(reference, p)
		}
	}

	scores, err := e.scorer.Score(ctx, toScore, reference)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.log.Warn().Err(err).Msg("scoring failed, pending papers left unscored")
		return nil
	}
	for _, p := range toScore {
		if s, ok := scores[p.CanonicalID]; ok {
			v := s
			p.RelevanceScore = &v
			p.ScoredAtIteration = project.CurrentIteration
		}
	}
	return nil
}
