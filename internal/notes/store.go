package notes

import (
	"context"
	"sync"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/models"
)

// Store is a commit-keyed label store. Set creates or overwrites.
type Store interface {
	Get(ctx context.Context, commit models.CommitID) (models.Label, bool, error)
	Set(ctx context.Context, commit models.CommitID, label models.Label) error
}

// MemStore is an in-memory Store
type MemStore struct {
	mu       sync.Mutex
	labels   map[models.CommitID]models.Label
	failures map[models.CommitID]error
	sets     int
}

// NewMemStore returns an empty store
func NewMemStore() *MemStore {
	return &MemStore{
		labels:   make(map[models.CommitID]models.Label),
		failures: make(map[models.CommitID]error),
	}
}

// Seed stores a label without counting it as a write
func (s *MemStore) Seed(commit models.CommitID, label models.Label) *MemStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[commit] = label
	return s
}

// FailOn makes every Set for commit fail with err
func (s *MemStore) FailOn(commit models.CommitID, err error) *MemStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[commit] = err
	return s
}

// Get implements Store
func (s *MemStore) Get(ctx context.Context, commit models.CommitID) (models.Label, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	label, ok := s.labels[commit]
	return label, ok, nil
}

// Set implements Store
func (s *MemStore) Set(ctx context.Context, commit models.CommitID, label models.Label) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if err := s.failures[commit]; err != nil {
		return errors.AnnotationWriteError(err, string(commit))
	}
	s.labels[commit] = label
	return nil
}

// SetCalls reports how many writes were attempted
func (s *MemStore) SetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

// Records returns every stored label in commit order
func (s *MemStore) Records() []models.AnnotationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	commits := make([]models.CommitID, 0, len(s.labels))
	for c := range s.labels {
		commits = append(commits, c)
	}
	models.SortCommits(commits)
	out := make([]models.AnnotationRecord, len(commits))
	for i, c := range commits {
		out[i] = models.AnnotationRecord{Commit: c, Label: s.labels[c]}
	}
	return out
}
