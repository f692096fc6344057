package git

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/labelpr/internal/models"
)

func TestNotesStoreRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	c1 := r.commit("one")
	c2 := r.commit("two")

	store := NewNotesStore(r.open(), "refs/notes/label-pr", Signature{Name: "PR Labeller", Email: "prlabel@example.com"})
	ctx := context.Background()

	_, ok, err := store.Get(ctx, c1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, c1, "https://example.com/pull/7"))

	label, ok, err := store.Get(ctx, c1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.Label("https://example.com/pull/7"), label)

	require.NoError(t, store.Set(ctx, c1, "https://example.com/pull/8"))
	label, _, err = store.Get(ctx, c1)
	require.NoError(t, err)
	assert.Equal(t, models.Label("https://example.com/pull/8"), label)

	_, ok, err = store.Get(ctx, c2)
	require.NoError(t, err)
	assert.False(t, ok)

	// visible to git log --notes and written under the configured identity
	assert.Equal(t, "https://example.com/pull/8", r.git("notes", "--ref=refs/notes/label-pr", "show", string(c1)))
	assert.Equal(t, "PR Labeller <prlabel@example.com>", r.git("log", "-1", "--format=%an <%ae>", "refs/notes/label-pr"))
}

func TestNotesStoreReadsExistingNotes(t *testing.T) {
	r := newTestRepo(t)
	c := r.commit("one")
	r.git("notes", "--ref=refs/notes/label-pr", "add", "-m", "https://example.com/pull/3", string(c))

	store := NewNotesStore(r.open(), "refs/notes/label-pr", Signature{})
	label, ok, err := store.Get(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.Label("https://example.com/pull/3"), label)
	assert.Equal(t, "refs/notes/label-pr", store.Ref())
}

func TestNotesStoreReadsAllNotesInOneBatch(t *testing.T) {
	r := newTestRepo(t)
	var commits []models.CommitID
	for i := 0; i < 12; i++ {
		c := r.commit(fmt.Sprintf("c%d", i))
		r.git("notes", "--ref=refs/notes/label-pr", "add", "-m", fmt.Sprintf("https://example.com/pull/%d", i%3), string(c))
		commits = append(commits, c)
	}
	fresh := r.commit("unlabeled")

	store := NewNotesStore(r.open(), "refs/notes/label-pr", Signature{})
	ctx := context.Background()
	for i, c := range commits {
		label, ok, err := store.Get(ctx, c)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, models.Label(fmt.Sprintf("https://example.com/pull/%d", i%3)), label)
	}
	_, ok, err := store.Get(ctx, fresh)
	require.NoError(t, err)
	assert.False(t, ok)

	// notes list + cat-file --batch, whatever the number of notes
	assert.Equal(t, int64(2), store.git.calls.Load())

	require.NoError(t, store.Set(ctx, fresh, "https://example.com/pull/9"))
	label, ok, err := store.Get(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.Label("https://example.com/pull/9"), label)
	assert.Equal(t, int64(3), store.git.calls.Load())
}

func TestParseBatch(t *testing.T) {
	out := []byte("aaa blob 5\nline\n\nbbb missing\nccc blob 0\n\n")
	bodies, err := parseBatch(out)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"aaa": "line\n", "ccc": ""}, bodies)

	_, err = parseBatch([]byte("aaa blob 50\nshort\n"))
	assert.Error(t, err)

	_, err = parseBatch([]byte("aaa blob"))
	assert.Error(t, err)
}
