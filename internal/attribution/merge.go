// Package attribution decides which pull request owns each commit when
// exclusive sets from several PRs overlap.
//
// A commit claimed by one PR gets that PR's label. A contested commit goes to
// the claimant whose head is an ancestor-or-equal of the fewest other
// claimants' heads, so a PR stacked on top of another wins the commits they
// share. Remaining ties fall to the smallest id, then the smallest label,
// the smallest head and finally the ref name, which makes the outcome
// independent of the order PRs are supplied in.
package attribution

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/labelpr/internal/logging"
	"github.com/rohankatakam/labelpr/internal/models"
	"github.com/rohankatakam/labelpr/internal/reach"
)

// Options configures a Merger
type Options struct {
	// Bounds maps a spec to the closure of its base branches. Ancestry walks
	// between claimant heads stop there instead of running to the root.
	Bounds map[*models.RefSpec]*reach.Closure
	Logger logrus.FieldLogger
}

// Merger builds the final commit → label mapping
type Merger struct {
	graph  reach.Graph
	bounds map[*models.RefSpec]*reach.Closure
	logger logrus.FieldLogger

	ancestry map[pair]bool
}

type pair struct {
	ancestor, descendant models.CommitID
}

// Result is the merged mapping
type Result struct {
	Labels map[models.CommitID]models.Label
	// Owners holds the winning PR for every labeled commit
	Owners map[models.CommitID]*models.PullRequest
	// Contested counts commits claimed by more than one distinct PR
	Contested int
}

// Commits returns the labeled commits in ascending order
func (r *Result) Commits() []models.CommitID {
	out := make([]models.CommitID, 0, len(r.Labels))
	for c := range r.Labels {
		out = append(out, c)
	}
	models.SortCommits(out)
	return out
}

// Records returns the mapping as sorted annotation records
func (r *Result) Records() []models.AnnotationRecord {
	commits := r.Commits()
	out := make([]models.AnnotationRecord, len(commits))
	for i, c := range commits {
		out[i] = models.AnnotationRecord{Commit: c, Label: r.Labels[c]}
	}
	return out
}

// New returns a Merger that answers ancestry questions from g
func New(g reach.Graph, opts Options) *Merger {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Merger{
		graph:    g,
		bounds:   opts.Bounds,
		logger:   opts.Logger,
		ancestry: make(map[pair]bool),
	}
}

// Merge assigns every commit in the union of the PRs' exclusive sets to
// exactly one PR.
func (m *Merger) Merge(ctx context.Context, prs []*models.PullRequest) (*Result, error) {
	claims := make(map[models.CommitID][]*models.PullRequest)
	for _, pr := range prs {
		for c := range pr.Exclusive {
			claims[c] = append(claims[c], pr)
		}
	}

	result := &Result{
		Labels: make(map[models.CommitID]models.Label, len(claims)),
		Owners: make(map[models.CommitID]*models.PullRequest, len(claims)),
	}

	for commit, claimants := range claims {
		winner := claimants[0]
		if len(claimants) > 1 {
			result.Contested++
			var err error
			winner, err = m.pick(ctx, claimants)
			if err != nil {
				return nil, err
			}
		}
		result.Labels[commit] = winner.Label()
		result.Owners[commit] = winner
	}

	m.logger.WithFields(logrus.Fields{
		"prs":       len(prs),
		"commits":   len(result.Labels),
		"contested": result.Contested,
	}).Info("merged attributions")

	return result, nil
}

// pick applies the tie-break rule to a set of claimants
func (m *Merger) pick(ctx context.Context, claimants []*models.PullRequest) (*models.PullRequest, error) {
	ranked := make([]*models.PullRequest, len(claimants))
	copy(ranked, claimants)
	sort.Slice(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })

	scores := make([]int, len(ranked))
	for i, a := range ranked {
		for j, b := range ranked {
			if i == j {
				continue
			}
			ok, err := m.isAncestor(ctx, a, b)
			if err != nil {
				return nil, err
			}
			if ok {
				scores[i]++
			}
		}
	}

	best := 0
	for i := 1; i < len(ranked); i++ {
		if scores[i] < scores[best] {
			best = i
		}
	}
	return ranked[best], nil
}

// isAncestor reports whether a's head is an ancestor-or-equal of b's head.
// The walk is bounded by a's base closure, which never holds a's head.
func (m *Merger) isAncestor(ctx context.Context, a, b *models.PullRequest) (bool, error) {
	key := pair{a.Head, b.Head}
	if v, ok := m.ancestry[key]; ok {
		return v, nil
	}
	v, err := m.bounds[a.Spec].IsAncestor(ctx, m.graph, a.Head, b.Head)
	if err != nil {
		return false, err
	}
	m.ancestry[key] = v
	return v, nil
}

// less orders PRs by id, label, head and ref
func less(a, b *models.PullRequest) bool {
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	if la, lb := a.Label(), b.Label(); la != lb {
		return la < lb
	}
	if a.Head != b.Head {
		return a.Head < b.Head
	}
	return a.Ref < b.Ref
}
