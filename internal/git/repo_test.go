package git

import (
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/models"
)

// testRepo drives a scratch repository through the git CLI
type testRepo struct {
	t   *testing.T
	dir string
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	r := &testRepo{t: t, dir: t.TempDir()}
	r.git("init", "-q")
	r.git("symbolic-ref", "HEAD", "refs/heads/master")
	r.git("config", "user.email", "test@example.com")
	r.git("config", "user.name", "Test User")
	r.git("config", "commit.gpgsign", "false")
	return r
}

func (r *testRepo) git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

func (r *testRepo) commit(msg string) models.CommitID {
	r.git("commit", "-q", "--allow-empty", "-m", msg)
	return models.CommitID(r.git("rev-parse", "HEAD"))
}

func (r *testRepo) open() *Repo {
	r.t.Helper()
	repo, err := Open(context.Background(), Options{Path: r.dir})
	require.NoError(r.t, err)
	return repo
}

func TestOpenRejectsNonRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	_, err := Open(context.Background(), Options{Path: t.TempDir()})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrGraphRead))
	assert.True(t, errors.IsFatal(err))
}

func TestResolveRef(t *testing.T) {
	r := newTestRepo(t)
	root := r.commit("root")
	r.git("tag", "-a", "-m", "release", "v1", string(root))
	r.git("update-ref", "refs/remotes/origin/master", string(root))

	repo := r.open()
	ctx := context.Background()

	for _, name := range []string{"master", "refs/heads/master", "origin/master", "refs/tags/v1", "v1"} {
		id, err := repo.ResolveRef(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, root, id, name)
	}

	_, err := repo.ResolveRef(ctx, "no-such-branch")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnknownRef))
	assert.False(t, errors.IsFatal(err))

	_, err = repo.ResolveRef(ctx, "--all")
	assert.True(t, stderrors.Is(err, errors.ErrUnknownRef))
}

func TestMatchRefs(t *testing.T) {
	r := newTestRepo(t)
	c := r.commit("root")
	for _, ref := range []string{
		"refs/remotes/pr/7",
		"refs/remotes/pr/12",
		"refs/remotes/pr/13/head",
		"refs/remotes/other/3",
	} {
		r.git("update-ref", ref, string(c))
	}

	repo := r.open()
	ctx := context.Background()

	got, err := repo.MatchRefs(ctx, "refs/remotes/pr/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"refs/remotes/pr/12", "refs/remotes/pr/7"}, got)

	got, err = repo.MatchRefs(ctx, "refs/remotes/pr/**")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = repo.MatchRefs(ctx, "refs/remotes/none/*")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = repo.MatchRefs(ctx, "refs/remotes/[pr")
	assert.True(t, stderrors.Is(err, errors.ErrConfig))
}

func TestRefsToNonCommitsAreIgnored(t *testing.T) {
	r := newTestRepo(t)
	c := r.commit("root")
	tree := r.git("rev-parse", "HEAD^{tree}")
	r.git("config", "tag.gpgsign", "false")
	r.git("tag", "-a", "-m", "release", "v1", string(c))
	r.git("tag", "-a", "-m", "nested", "v1-outer", "v1")

	r.git("update-ref", "refs/remotes/pr/1", string(c))
	r.git("update-ref", "refs/remotes/pr/2", tree)
	r.git("update-ref", "refs/remotes/pr/3", r.git("rev-parse", "refs/tags/v1"))
	r.git("update-ref", "refs/remotes/pr/4", r.git("rev-parse", "refs/tags/v1-outer"))

	logger, hook := test.NewNullLogger()
	repo, err := Open(context.Background(), Options{Path: r.dir, Logger: logger})
	require.NoError(t, err)
	ctx := context.Background()

	got, err := repo.MatchRefs(ctx, "refs/remotes/pr/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"refs/remotes/pr/1", "refs/remotes/pr/3"}, got)

	head, err := repo.ResolveRef(ctx, "refs/remotes/pr/3")
	require.NoError(t, err)
	assert.Equal(t, c, head)

	var ignored []string
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			ignored = append(ignored, entry.Data["ref"].(string))
		}
	}
	assert.ElementsMatch(t, []string{"refs/remotes/pr/2", "refs/remotes/pr/4", "refs/tags/v1-outer"}, ignored)
}

func TestParents(t *testing.T) {
	r := newTestRepo(t)
	root := r.commit("root")
	m1 := r.commit("m1")
	r.git("checkout", "-q", "-b", "feature", string(root))
	f1 := r.commit("f1")
	r.git("checkout", "-q", "master")
	r.git("merge", "-q", "--no-ff", "-m", "merge feature", "feature")
	merge := models.CommitID(r.git("rev-parse", "HEAD"))
	r.git("checkout", "-q", "-b", "later", string(merge))
	later := r.commit("later")

	repo := r.open()
	ctx := context.Background()

	parents, err := repo.Parents(ctx, merge)
	require.NoError(t, err)
	assert.Equal(t, []models.CommitID{m1, f1}, parents)

	parents, err = repo.Parents(ctx, root)
	require.NoError(t, err)
	assert.Empty(t, parents)
	assert.Equal(t, 4, repo.CachedCommits())

	// second load only reads what the first tip did not cover
	parents, err = repo.Parents(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, []models.CommitID{merge}, parents)
	assert.Equal(t, 5, repo.CachedCommits())

	_, err = repo.Parents(ctx, models.CommitID(strings.Repeat("0", 40)))
	assert.True(t, stderrors.Is(err, errors.ErrGraphRead))
}

type recordingCache struct {
	mu     sync.Mutex
	nodes  map[models.CommitID][]models.CommitID
	hits   int
	stored int
}

func (c *recordingCache) Lookup(id models.CommitID) ([]models.CommitID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	parents, ok := c.nodes[id]
	if ok {
		c.hits++
	}
	return parents, ok, nil
}

func (c *recordingCache) StoreBatch(nodes []models.CommitNode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range nodes {
		c.nodes[n.ID] = n.Parents
		c.stored++
	}
	return nil
}

func TestParentsUsesPersistentCache(t *testing.T) {
	r := newTestRepo(t)
	root := r.commit("root")
	head := r.commit("head")

	cache := &recordingCache{nodes: make(map[models.CommitID][]models.CommitID)}
	ctx := context.Background()

	first, err := Open(ctx, Options{Path: r.dir, Cache: cache})
	require.NoError(t, err)
	_, err = first.Parents(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.stored)

	second, err := Open(ctx, Options{Path: r.dir, Cache: cache})
	require.NoError(t, err)
	parents, err := second.Parents(ctx, head)
	require.NoError(t, err)
	assert.Equal(t, []models.CommitID{root}, parents)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, 2, cache.stored)
}

func TestMemGraph(t *testing.T) {
	g := NewMemGraph().
		AddCommit("a").
		AddCommit("b", "a").
		SetRef("refs/heads/main", "b").
		SetRef("refs/remotes/pr/1", "b")
	ctx := context.Background()

	id, err := g.ResolveRef(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, models.CommitID("b"), id)

	_, err = g.ResolveRef(ctx, "gone")
	assert.True(t, stderrors.Is(err, errors.ErrUnknownRef))

	_, err = g.Parents(ctx, "zzz")
	assert.True(t, stderrors.Is(err, errors.ErrGraphRead))

	refs, err := g.MatchRefs(ctx, "refs/remotes/pr/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"refs/remotes/pr/1"}, refs)
}
