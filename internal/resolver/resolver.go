package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/logging"
	"github.com/rohankatakam/labelpr/internal/models"
	"github.com/rohankatakam/labelpr/internal/reach"
)

// Graph is the read surface the resolver needs from the repository
type Graph interface {
	reach.Graph
	ResolveRef(ctx context.Context, name string) (models.CommitID, error)
	MatchRefs(ctx context.Context, pattern string) ([]string, error)
}

// Options configures a Resolver
type Options struct {
	Workers int
	Logger  logrus.FieldLogger
}

// Resolver turns refspecs into pull requests with their exclusive commits
type Resolver struct {
	graph   Graph
	workers int
	logger  logrus.FieldLogger
}

// SpecResult is the outcome of resolving one refspec
type SpecResult struct {
	Spec         models.RefSpec
	Pattern      string
	BaseTips     []models.CommitID
	PullRequests []*models.PullRequest
	// Closure is the ancestor closure of BaseTips; nil when no refs matched
	Closure *reach.Closure
	// Warnings are non-fatal problems: unresolved base branches, refs that
	// did not yield an id, patterns that matched nothing.
	Warnings []error
	// Err is set when the spec could not be resolved at all
	Err      error
	Duration time.Duration
}

// Failed reports whether the spec produced nothing because of an error
func (r *SpecResult) Failed() bool {
	return r.Err != nil
}

// New returns a Resolver over g
func New(g Graph, opts Options) *Resolver {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Resolver{graph: g, workers: opts.Workers, logger: opts.Logger}
}

// ResolveAll resolves every spec, up to Workers at a time. Results are in
// spec order regardless of completion order. The error is non-nil only for
// fatal failures, which cancel the remaining specs.
func (r *Resolver) ResolveAll(ctx context.Context, specs []models.RefSpec) ([]*SpecResult, error) {
	results := make([]*SpecResult, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i := range specs {
		i := i
		g.Go(func() error {
			res, err := r.ResolveSpec(ctx, specs[i])
			if err != nil {
				return fmt.Errorf("spec %q: %w", specs[i].String(), err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ResolveSpec resolves one spec. Unknown refs are recorded on the result;
// graph read failures are returned.
func (r *Resolver) ResolveSpec(ctx context.Context, spec models.RefSpec) (*SpecResult, error) {
	start := time.Now()
	pattern := NormalizePattern(spec.RefPattern)
	log := r.logger.WithFields(logrus.Fields{
		"pattern": pattern,
		"url":     spec.URLPrefix,
	})

	result := &SpecResult{Spec: spec, Pattern: pattern}
	defer func() { result.Duration = time.Since(start) }()

	for _, branch := range spec.BaseBranches {
		tip, err := r.graph.ResolveRef(ctx, branch)
		if err != nil {
			if errors.IsFatal(err) {
				return nil, err
			}
			log.WithField("branch", branch).Warn("base branch not found")
			result.Warnings = append(result.Warnings, err)
			continue
		}
		result.BaseTips = append(result.BaseTips, tip)
	}

	if len(result.BaseTips) == 0 {
		result.Err = errors.UnknownRefErrorf("none of the base branches %s resolved", strings.Join(spec.BaseBranches, ",")).
			WithContext("spec", spec.String())
		log.WithError(result.Err).Warn("skipping spec")
		return result, nil
	}

	refs, err := r.graph.MatchRefs(ctx, pattern)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		warn := errors.UnknownRefErrorf("pattern %s matched no refs", pattern).WithContext("pattern", pattern)
		result.Warnings = append(result.Warnings, warn)
		log.Warn("pattern matched no refs")
		return result, nil
	}

	closure, err := reach.NewClosure(ctx, r.graph, result.BaseTips)
	if err != nil {
		return nil, err
	}
	result.Closure = closure
	log.WithFields(logrus.Fields{
		"refs":         len(refs),
		"base_commits": closure.Size(),
	}).Debug("closed base history")

	numericOnly := IsShorthand(spec.RefPattern)
	for _, ref := range refs {
		id, ok := ExtractID(pattern, ref)
		if ok && numericOnly && !isNumeric(id) {
			ok = false
		}
		if !ok {
			warn := errors.UnknownRefErrorf("cannot extract a PR id from %s", ref).WithContext("ref", ref)
			result.Warnings = append(result.Warnings, warn)
			log.WithField("ref", ref).Warn("skipping ref without PR id")
			continue
		}

		head, err := r.graph.ResolveRef(ctx, ref)
		if err != nil {
			if errors.IsFatal(err) {
				return nil, err
			}
			result.Warnings = append(result.Warnings, err)
			continue
		}

		exclusive, err := closure.Collect(ctx, r.graph, []models.CommitID{head})
		if err != nil {
			return nil, err
		}

		pr := &models.PullRequest{
			ID:        id,
			Ref:       ref,
			Head:      head,
			Spec:      &result.Spec,
			Exclusive: exclusive,
		}
		result.PullRequests = append(result.PullRequests, pr)

		log.WithFields(logrus.Fields{
			"pr":      id,
			"head":    head.Short(),
			"commits": len(exclusive),
		}).Debug("resolved PR")
	}

	log.WithFields(logrus.Fields{
		"prs":      len(result.PullRequests),
		"warnings": len(result.Warnings),
	}).Info("resolved spec")

	return result, nil
}

const globMeta = "*?[{\\"

// NormalizePattern turns shorthand patterns into full ref globs. Patterns
// outside refs/ are taken relative to refs/remotes/. A pattern without glob
// characters names the prefix of GitHub-style PR refs, so `origin/pr` becomes
// refs/remotes/origin/pr/*/head.
func NormalizePattern(pattern string) string {
	pattern = strings.TrimSuffix(pattern, "/")
	if !strings.HasPrefix(pattern, "refs/") {
		pattern = "refs/remotes/" + pattern
	}
	if IsShorthand(pattern) {
		pattern += "/*/head"
	}
	return pattern
}

// IsShorthand reports whether pattern is a bare prefix. PR ids under a
// shorthand pattern must be numeric.
func IsShorthand(pattern string) bool {
	return !strings.ContainsAny(pattern, globMeta)
}

func isNumeric(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ExtractID returns the PR id carried by ref under pattern: the part of the
// ref after the last '/' of the pattern's literal prefix, less the pattern's
// literal suffix. ok is false when that leaves nothing or more than one path
// component.
func ExtractID(pattern, ref string) (string, bool) {
	firstMeta := strings.IndexAny(pattern, globMeta)
	if firstMeta < 0 {
		return "", false
	}
	base := pattern[:strings.LastIndex(pattern[:firstMeta], "/")+1]

	suffix := ""
	if lastMeta := strings.LastIndexAny(pattern, "*?]}"); lastMeta >= 0 {
		suffix = pattern[lastMeta+1:]
	}

	if !strings.HasPrefix(ref, base) {
		return "", false
	}
	id := ref[len(base):]
	if suffix != "" {
		if !strings.HasSuffix(id, suffix) {
			return "", false
		}
		id = id[:len(id)-len(suffix)]
	}

	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
