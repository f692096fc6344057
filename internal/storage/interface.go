package storage

import (
	"context"
	"errors"

	"github.com/rohankatakam/labelpr/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// Store records labeling runs
type Store interface {
	// SaveRun stores run and its specs, assigning an id when it has none
	SaveRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	// ListRuns returns the most recent runs first
	ListRuns(ctx context.Context, limit int) ([]*models.Run, error)

	// Close connection
	Close() error
}
