// Package reach answers reachability questions over the commit graph: which
// commits are reachable from one set of tips but not from another, and
// whether one commit is an ancestor of another.
//
// Exclusion is always closed before inclusion starts. Walking both sides at
// once could admit a commit that a base branch reaches by a path the base
// walk has not covered yet.
package reach

import (
	"context"

	"github.com/rohankatakam/labelpr/internal/models"
)

// Graph is the parent lookup the walks need
type Graph interface {
	Parents(ctx context.Context, id models.CommitID) ([]models.CommitID, error)
}

// how often long walks check for cancellation
const cancelCheckInterval = 1024

// Closure is the ancestor closure of a set of negative seeds. It is
// immutable once built and may be shared between goroutines.
type Closure struct {
	excluded map[models.CommitID]struct{}
}

// NewClosure marks every ancestor of negative (inclusive) as excluded
func NewClosure(ctx context.Context, g Graph, negative []models.CommitID) (*Closure, error) {
	excluded := make(map[models.CommitID]struct{})
	stack := make([]models.CommitID, 0, len(negative))
	for _, id := range negative {
		if _, ok := excluded[id]; ok {
			continue
		}
		excluded[id] = struct{}{}
		stack = append(stack, id)
	}

	steps := 0
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if steps++; steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		parents, err := g.Parents(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, p := range parents {
			if _, ok := excluded[p]; ok {
				continue
			}
			excluded[p] = struct{}{}
			stack = append(stack, p)
		}
	}

	return &Closure{excluded: excluded}, nil
}

// Excludes reports whether id is reachable from the negative seeds
func (c *Closure) Excludes(id models.CommitID) bool {
	_, ok := c.excluded[id]
	return ok
}

// Size returns the number of excluded commits
func (c *Closure) Size() int {
	return len(c.excluded)
}

// Collect returns every commit reachable from positive that the closure does
// not exclude. The walk stops at excluded commits and at commits it has
// already collected.
func (c *Closure) Collect(ctx context.Context, g Graph, positive []models.CommitID) (models.CommitSet, error) {
	included := make(models.CommitSet)
	stack := make([]models.CommitID, 0, len(positive))
	for _, id := range positive {
		if c.Excludes(id) || included.Has(id) {
			continue
		}
		included.Add(id)
		stack = append(stack, id)
	}

	steps := 0
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if steps++; steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		parents, err := g.Parents(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, p := range parents {
			if c.Excludes(p) || included.Has(p) {
				continue
			}
			included.Add(p)
			stack = append(stack, p)
		}
	}

	return included, nil
}

// Exclusive returns the commits reachable from positive and not reachable
// from negative.
func Exclusive(ctx context.Context, g Graph, positive, negative []models.CommitID) (models.CommitSet, error) {
	closure, err := NewClosure(ctx, g, negative)
	if err != nil {
		return nil, err
	}
	return closure.Collect(ctx, g, positive)
}

// IsAncestor reports whether ancestor is reachable from descendant. A commit
// is its own ancestor.
func IsAncestor(ctx context.Context, g Graph, ancestor, descendant models.CommitID) (bool, error) {
	return isAncestor(ctx, g, ancestor, descendant, nil)
}

// IsAncestor is the package-level IsAncestor with the walk bounded by the
// closure. No excluded commit can reach a commit outside the closure, so when
// ancestor is not excluded the walk stops at excluded commits.
func (c *Closure) IsAncestor(ctx context.Context, g Graph, ancestor, descendant models.CommitID) (bool, error) {
	if c == nil || c.Excludes(ancestor) {
		return isAncestor(ctx, g, ancestor, descendant, nil)
	}
	if ancestor == descendant {
		return true, nil
	}
	if c.Excludes(descendant) {
		return false, nil
	}
	return isAncestor(ctx, g, ancestor, descendant, c.Excludes)
}

func isAncestor(ctx context.Context, g Graph, ancestor, descendant models.CommitID, stop func(models.CommitID) bool) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}

	seen := map[models.CommitID]struct{}{descendant: {}}
	stack := []models.CommitID{descendant}
	steps := 0
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if steps++; steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return false, err
			}
		}

		parents, err := g.Parents(ctx, id)
		if err != nil {
			return false, err
		}
		for _, p := range parents {
			if p == ancestor {
				return true, nil
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			if stop != nil && stop(p) {
				continue
			}
			stack = append(stack, p)
		}
	}
	return false, nil
}
