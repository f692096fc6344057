package git

import (
	"context"
	"sort"
	"sync"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/models"
)

// MemGraph is an in-memory commit graph with the same read surface as Repo.
// Unit tests build histories with it instead of shelling out to git.
type MemGraph struct {
	mu      sync.RWMutex
	parents map[models.CommitID][]models.CommitID
	refs    map[string]models.CommitID
	calls   int
}

// NewMemGraph returns an empty graph
func NewMemGraph() *MemGraph {
	return &MemGraph{
		parents: make(map[models.CommitID][]models.CommitID),
		refs:    make(map[string]models.CommitID),
	}
}

// AddCommit records id with its ordered parents
func (g *MemGraph) AddCommit(id models.CommitID, parents ...models.CommitID) *MemGraph {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.parents[id] = append([]models.CommitID(nil), parents...)
	return g
}

// SetRef points a full ref name at a commit
func (g *MemGraph) SetRef(name string, id models.CommitID) *MemGraph {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs[name] = id
	return g
}

// DeleteRef removes a ref
func (g *MemGraph) DeleteRef(name string) *MemGraph {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.refs, name)
	return g
}

// ParentCalls reports how many Parents lookups were served
func (g *MemGraph) ParentCalls() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.calls
}

// Parents returns the parents of id. Unknown commits are a graph read
// error, as a missing object would be in a real repository.
func (g *MemGraph) Parents(_ context.Context, id models.CommitID) ([]models.CommitID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	parents, ok := g.parents[id]
	if !ok {
		return nil, errors.GraphReadErrorf(errMissingObject, "read parents of %s", id).
			WithContext("commit", string(id))
	}
	return parents, nil
}

// ResolveRef looks name up as a full ref, then under refs/heads/ and
// refs/remotes/ the way rev-parse would.
func (g *MemGraph) ResolveRef(_ context.Context, name string) (models.CommitID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, candidate := range []string{name, "refs/heads/" + name, "refs/remotes/" + name} {
		if id, ok := g.refs[candidate]; ok {
			return id, nil
		}
	}
	return "", errors.UnknownRefError(name)
}

// MatchRefs returns the sorted ref names matching pattern
func (g *MemGraph) MatchRefs(_ context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	names := make([]string, 0, len(g.refs))
	for name := range g.refs {
		names = append(names, name)
	}
	g.mu.RUnlock()

	sort.Strings(names)
	return matchRefNames(names, pattern)
}

type missingObjectError struct{}

func (missingObjectError) Error() string { return "object not found" }

var errMissingObject error = missingObjectError{}
