// Package notes persists the commit → label mapping. The Writer reads the
// current label of every commit it is given, then creates, overwrites or
// skips so that an unchanged mapping produces no writes at all.
package notes

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/logging"
	"github.com/rohankatakam/labelpr/internal/models"
)

// DefaultProgressInterval is how many commits pass between progress lines
const DefaultProgressInterval = 5000

// Action is what the writer does for one commit
type Action int

const (
	ActionSkip Action = iota
	ActionCreate
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	default:
		return "skip"
	}
}

// Change is a planned operation on one commit
type Change struct {
	Commit   models.CommitID
	Label    models.Label
	Previous models.Label
	Action   Action
}

// Options configures a Writer
type Options struct {
	DryRun           bool
	ProgressInterval int
	Logger           logrus.FieldLogger
}

// Writer applies a label mapping to a Store, one commit at a time
type Writer struct {
	store    Store
	dryRun   bool
	progress int
	logger   logrus.FieldLogger
}

// WriteResult counts what a Write did. In dry-run mode Created and Updated
// count the writes that would have happened.
type WriteResult struct {
	Created  int
	Updated  int
	Skipped  int
	Failed   int
	Failures []error
	DryRun   bool
	Duration time.Duration
}

// Written is the number of records created or overwritten
func (r *WriteResult) Written() int {
	return r.Created + r.Updated
}

// NewWriter returns a Writer over store
func NewWriter(store Store, opts Options) *Writer {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	return &Writer{
		store:    store,
		dryRun:   opts.DryRun,
		progress: opts.ProgressInterval,
		logger:   opts.Logger,
	}
}

// Plan reads the existing label of every commit in labels and decides what
// to do with it. Commits whose read fails are returned as failures and left
// out of the plan.
func (w *Writer) Plan(ctx context.Context, labels map[models.CommitID]models.Label) ([]Change, []error, error) {
	commits := make([]models.CommitID, 0, len(labels))
	for c := range labels {
		commits = append(commits, c)
	}
	models.SortCommits(commits)

	plan := make([]Change, 0, len(commits))
	var failures []error
	for _, commit := range commits {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		change := Change{Commit: commit, Label: labels[commit]}
		existing, ok, err := w.store.Get(ctx, commit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			failures = append(failures, err)
			continue
		}

		switch {
		case !ok:
			change.Action = ActionCreate
		case existing != change.Label:
			change.Action = ActionUpdate
			change.Previous = existing
		default:
			change.Action = ActionSkip
		}
		plan = append(plan, change)
	}
	return plan, failures, nil
}

// Write brings the store in line with labels. Commits absent from labels
// are never touched. A failed write is recorded and the remaining commits
// are still attempted; only cancellation stops the run early.
func (w *Writer) Write(ctx context.Context, labels map[models.CommitID]models.Label) (*WriteResult, error) {
	start := time.Now()
	result := &WriteResult{DryRun: w.dryRun}
	defer func() { result.Duration = time.Since(start) }()

	plan, readFailures, err := w.Plan(ctx, labels)
	if err != nil {
		return result, err
	}
	for _, ferr := range readFailures {
		result.Failed++
		result.Failures = append(result.Failures, ferr)
		w.logger.WithError(ferr).Warn("could not read existing note")
	}

	for i, change := range plan {
		if i > 0 && i%w.progress == 0 {
			w.logger.WithFields(logrus.Fields{
				"done":    i,
				"total":   len(plan),
				"written": result.Written(),
			}).Info("writing notes")
		}

		if change.Action == ActionSkip {
			result.Skipped++
			continue
		}

		log := w.logger.WithFields(logrus.Fields{
			"commit": change.Commit.Short(),
			"label":  change.Label,
			"action": change.Action.String(),
		})

		if !w.dryRun {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if err := w.store.Set(ctx, change.Commit, change.Label); err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				if errors.GetType(err) != errors.ErrorTypeAnnotationWrite {
					err = errors.AnnotationWriteError(err, string(change.Commit))
				}
				result.Failed++
				result.Failures = append(result.Failures, err)
				log.WithError(err).Warn("failed to write note")
				continue
			}
		}

		if change.Action == ActionCreate {
			result.Created++
		} else {
			result.Updated++
			log = log.WithField("previous", change.Previous)
		}
		log.Debug("note written")
	}

	w.logger.WithFields(logrus.Fields{
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"failed":  result.Failed,
		"dry_run": result.DryRun,
	}).Info("notes written")

	return result, nil
}
