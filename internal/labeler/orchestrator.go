package labeler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/labelpr/internal/attribution"
	"github.com/rohankatakam/labelpr/internal/logging"
	"github.com/rohankatakam/labelpr/internal/models"
	"github.com/rohankatakam/labelpr/internal/notes"
	"github.com/rohankatakam/labelpr/internal/reach"
	"github.com/rohankatakam/labelpr/internal/resolver"
)

// Options configures an Orchestrator
type Options struct {
	Workers          int
	DryRun           bool
	ProgressInterval int
	Logger           logrus.FieldLogger
}

// Orchestrator coordinates one labeling run: resolve every spec, merge the
// claims, then write notes.
type Orchestrator struct {
	graph  resolver.Graph
	store  notes.Store
	opts   Options
	logger logrus.FieldLogger
}

// NewOrchestrator creates a new labeling orchestrator
func NewOrchestrator(graph resolver.Graph, store notes.Store, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Orchestrator{
		graph:  graph,
		store:  store,
		opts:   opts,
		logger: opts.Logger,
	}
}

// Run labels every commit the specs attribute to a PR. The returned error
// is non-nil only for fatal failures; everything else is counted in the
// Summary.
func (o *Orchestrator) Run(ctx context.Context, specs []models.RefSpec) (*Summary, error) {
	startTime := time.Now()
	o.logger.WithFields(logrus.Fields{
		"specs":   len(specs),
		"workers": o.opts.Workers,
		"dry_run": o.opts.DryRun,
	}).Info("Starting labeling run")

	summary := &Summary{
		StartedAt: startTime,
		DryRun:    o.opts.DryRun,
	}

	// Phase 1: resolve PRs and their exclusive commits
	res := resolver.New(o.graph, resolver.Options{Workers: o.opts.Workers, Logger: o.logger})
	specResults, err := res.ResolveAll(ctx, specs)
	if err != nil {
		return nil, fmt.Errorf("resolution failed: %w", err)
	}

	var prs []*models.PullRequest
	bounds := make(map[*models.RefSpec]*reach.Closure, len(specResults))
	for _, sr := range specResults {
		summary.addSpec(sr)
		prs = append(prs, sr.PullRequests...)
		if sr.Closure != nil {
			bounds[&sr.Spec] = sr.Closure
		}
	}

	// Phase 2: settle commits claimed by more than one PR
	merger := attribution.New(o.graph, attribution.Options{Bounds: bounds, Logger: o.logger})
	merged, err := merger.Merge(ctx, prs)
	if err != nil {
		return nil, fmt.Errorf("attribution failed: %w", err)
	}
	summary.CommitsLabeled = len(merged.Labels)
	summary.Contested = merged.Contested

	// Phase 3: write notes
	writer := notes.NewWriter(o.store, notes.Options{
		DryRun:           o.opts.DryRun,
		ProgressInterval: o.opts.ProgressInterval,
		Logger:           o.logger,
	})
	written, err := writer.Write(ctx, merged.Labels)
	if err != nil {
		return nil, fmt.Errorf("writing notes failed: %w", err)
	}
	summary.addWrites(written)

	summary.Duration = time.Since(startTime)

	o.logger.WithFields(logrus.Fields{
		"duration":     summary.Duration.String(),
		"prs":          summary.PRsResolved,
		"labeled":      summary.CommitsLabeled,
		"created":      summary.Created,
		"updated":      summary.Updated,
		"skipped":      summary.Skipped,
		"failed":       summary.Failed,
		"specs_failed": summary.SpecsFailed,
	}).Info("Labeling run completed")

	return summary, nil
}
