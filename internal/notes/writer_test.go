package notes

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/models"
)

func mapping(pairs ...string) map[models.CommitID]models.Label {
	out := make(map[models.CommitID]models.Label)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[models.CommitID(pairs[i])] = models.Label(pairs[i+1])
	}
	return out
}

func TestWriteCreatesUpdatesAndSkips(t *testing.T) {
	store := NewMemStore().
		Seed("a", "https://x/1").
		Seed("b", "https://x/old").
		Seed("z", "https://x/untouched")

	res, err := NewWriter(store, Options{}).Write(context.Background(),
		mapping("a", "https://x/1", "b", "https://x/2", "c", "https://x/3"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 2, res.Written())
	assert.Equal(t, 2, store.SetCalls())

	assert.Equal(t, []models.AnnotationRecord{
		{Commit: "a", Label: "https://x/1"},
		{Commit: "b", Label: "https://x/2"},
		{Commit: "c", Label: "https://x/3"},
		{Commit: "z", Label: "https://x/untouched"},
	}, store.Records())
}

func TestWriteIsIdempotent(t *testing.T) {
	store := NewMemStore()
	labels := mapping("a", "https://x/1", "b", "https://x/1", "c", "https://x/2")
	w := NewWriter(store, Options{})

	first, err := w.Write(context.Background(), labels)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)

	second, err := w.Write(context.Background(), labels)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Written())
	assert.Equal(t, 3, second.Skipped)
	assert.Equal(t, 3, store.SetCalls())
}

func TestWriteContinuesPastFailures(t *testing.T) {
	store := NewMemStore().FailOn("b", fmt.Errorf("disk full"))

	res, err := NewWriter(store, Options{}).Write(context.Background(),
		mapping("a", "https://x/1", "b", "https://x/1", "c", "https://x/1"))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.True(t, stderrors.Is(res.Failures[0], errors.ErrAnnotationWrite))
	assert.False(t, errors.IsFatal(res.Failures[0]))
	assert.Len(t, store.Records(), 2)
}

type brokenReads struct {
	*MemStore
	bad models.CommitID
}

func (b brokenReads) Get(ctx context.Context, commit models.CommitID) (models.Label, bool, error) {
	if commit == b.bad {
		return "", false, errors.StorageErrorf(fmt.Errorf("bad object"), "read note for %s", commit)
	}
	return b.MemStore.Get(ctx, commit)
}

func TestWriteCountsReadFailures(t *testing.T) {
	store := brokenReads{MemStore: NewMemStore(), bad: "b"}

	res, err := NewWriter(store, Options{}).Write(context.Background(),
		mapping("a", "https://x/1", "b", "https://x/1"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, stderrors.Is(res.Failures[0], errors.ErrStorage))
}

func TestDryRunWritesNothing(t *testing.T) {
	store := NewMemStore().Seed("a", "https://x/old")

	res, err := NewWriter(store, Options{DryRun: true}).Write(context.Background(),
		mapping("a", "https://x/1", "b", "https://x/2"))
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 0, store.SetCalls())
	assert.Equal(t, []models.AnnotationRecord{{Commit: "a", Label: "https://x/old"}}, store.Records())
}

func TestPlanIsSorted(t *testing.T) {
	store := NewMemStore().Seed("b", "https://x/2")

	plan, failures, err := NewWriter(store, Options{}).Plan(context.Background(),
		mapping("c", "https://x/3", "a", "https://x/1", "b", "https://x/2"))
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, plan, 3)
	assert.Equal(t, models.CommitID("a"), plan[0].Commit)
	assert.Equal(t, ActionCreate, plan[0].Action)
	assert.Equal(t, ActionSkip, plan[1].Action)
	assert.Equal(t, "create", plan[2].Action.String())
}

func TestWriteLogsProgress(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)

	labels := make(map[models.CommitID]models.Label)
	for i := 0; i < 25; i++ {
		labels[models.CommitID(fmt.Sprintf("c%02d", i))] = "https://x/1"
	}

	_, err := NewWriter(NewMemStore(), Options{ProgressInterval: 10, Logger: logger}).
		Write(context.Background(), labels)
	require.NoError(t, err)

	progress := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "writing notes" {
			progress++
		}
	}
	assert.Equal(t, 2, progress)
	assert.Equal(t, "notes written", hook.LastEntry().Message)
}

func TestWriteStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWriter(NewMemStore(), Options{}).Write(ctx, mapping("a", "https://x/1"))
	assert.ErrorIs(t, err, context.Canceled)
}
