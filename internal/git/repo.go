package git

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/logging"
	"github.com/rohankatakam/labelpr/internal/models"
)

// ParentCache persists commit parent lists across runs. Parent lists are
// immutable for a given object name so entries never expire.
type ParentCache interface {
	Lookup(id models.CommitID) ([]models.CommitID, bool, error)
	StoreBatch(nodes []models.CommitNode) error
}

// Options configures Open
type Options struct {
	Path   string
	Cache  ParentCache
	Logger logrus.FieldLogger
}

// Repo is a read-only view of a repository's commit graph and refs, backed
// by the git executable. It is safe for concurrent use.
type Repo struct {
	git    *runner
	gitDir string
	cache  ParentCache
	logger logrus.FieldLogger

	mu      sync.RWMutex
	parents map[models.CommitID][]models.CommitID

	// loadMu serialises rev-list loads; loaded holds the tips whose whole
	// ancestry is in parents
	loadMu sync.Mutex
	loaded []models.CommitID

	refsOnce sync.Once
	refs     map[string]models.CommitID
	refNames []string
	refsErr  error
}

// Open verifies path is a git repository and returns a Repo for it
func Open(ctx context.Context, opts Options) (*Repo, error) {
	if opts.Path == "" {
		opts.Path = "."
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	r := &runner{dir: opts.Path}
	out, err := r.run(ctx, nil, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, errors.GraphReadErrorf(err, "not a git repository: %s", opts.Path).
			WithContext("path", opts.Path)
	}

	return &Repo{
		git:     r,
		gitDir:  strings.TrimSpace(string(out)),
		cache:   opts.Cache,
		logger:  opts.Logger,
		parents: make(map[models.CommitID][]models.CommitID),
	}, nil
}

// GitDir returns the absolute path of the repository's git directory
func (r *Repo) GitDir() string {
	return r.gitDir
}

// UseCache attaches a persistent parent cache. Call it before the first
// Parents lookup; the cache location usually depends on GitDir.
func (r *Repo) UseCache(c ParentCache) {
	r.cache = c
}

// Path returns the directory git commands run in
func (r *Repo) Path() string {
	return r.git.dir
}

// loadRefs reads the full ref table once. Annotated tags are peeled to the
// commit they point at; refs that do not end at a commit are left out.
func (r *Repo) loadRefs(ctx context.Context) error {
	r.refsOnce.Do(func() {
		out, err := r.git.run(ctx, nil, "for-each-ref",
			"--format=%(objectname) %(objecttype) %(*objectname) %(*objecttype) %(refname)")
		if err != nil {
			r.refsErr = errors.GraphReadError(err, "list refs")
			return
		}

		r.refs = make(map[string]models.CommitID)
		skipped := 0
		for _, line := range lines(out) {
			fields := strings.Fields(line)
			var target, kind, name string
			switch len(fields) {
			case 3:
				target, kind, name = fields[0], fields[1], fields[2]
			case 5:
				target, kind, name = fields[2], fields[3], fields[4]
			default:
				continue
			}
			if kind != "commit" {
				r.logger.WithFields(logrus.Fields{
					"ref":  name,
					"type": kind,
				}).Warn("ignoring ref that does not point at a commit")
				skipped++
				continue
			}
			r.refs[name] = models.CommitID(target)
			r.refNames = append(r.refNames, name)
		}
		sort.Strings(r.refNames)

		r.logger.WithFields(logrus.Fields{
			"refs":    len(r.refNames),
			"skipped": skipped,
		}).Debug("loaded ref table")
	})
	return r.refsErr
}

// MatchRefs returns the sorted ref names matching a glob. `*` stays within
// one path component, `**` spans several. No match is not an error.
func (r *Repo) MatchRefs(ctx context.Context, pattern string) ([]string, error) {
	if err := r.loadRefs(ctx); err != nil {
		return nil, err
	}
	return matchRefNames(r.refNames, pattern)
}

func matchRefNames(names []string, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.ConfigErrorf("invalid ref pattern %q", pattern).WithContext("pattern", pattern)
	}

	var matched []string
	for _, name := range names {
		if ok, _ := doublestar.Match(pattern, name); ok {
			matched = append(matched, name)
		}
	}
	return matched, nil
}

// ResolveRef resolves a full ref name or anything rev-parse understands
// (short branch names, remote-tracking names) to a commit.
func (r *Repo) ResolveRef(ctx context.Context, name string) (models.CommitID, error) {
	if err := r.loadRefs(ctx); err != nil {
		return "", err
	}
	if id, ok := r.refs[name]; ok {
		return id, nil
	}
	if name == "" || strings.HasPrefix(name, "-") {
		return "", errors.UnknownRefError(name)
	}

	out, err := r.git.run(ctx, nil, "rev-parse", "--verify", "--quiet", name+"^{commit}")
	if err != nil {
		if exitCode(err) == 1 {
			return "", errors.UnknownRefError(name)
		}
		return "", errors.GraphReadErrorf(err, "resolve %s", name).WithContext("ref", name)
	}

	id := models.CommitID(strings.TrimSpace(string(out)))
	if !id.IsValid() {
		return "", errors.New(errors.ErrorTypeGraphRead, errors.SeverityCritical,
			fmt.Sprintf("unexpected rev-parse output for %s: %q", name, string(out)))
	}
	return id, nil
}

// Parents returns the ordered parents of a commit. A miss loads the
// commit's whole unseen ancestry with one rev-list call.
func (r *Repo) Parents(ctx context.Context, id models.CommitID) ([]models.CommitID, error) {
	if parents, ok := r.cached(id); ok {
		return parents, nil
	}

	if r.cache != nil {
		parents, ok, err := r.cache.Lookup(id)
		if err != nil {
			r.logger.WithError(err).WithField("commit", id.Short()).Warn("parent cache lookup failed")
		} else if ok {
			r.mu.Lock()
			r.parents[id] = parents
			r.mu.Unlock()
			return parents, nil
		}
	}

	if err := r.loadAncestry(ctx, id); err != nil {
		return nil, err
	}

	parents, ok := r.cached(id)
	if !ok {
		return nil, errors.New(errors.ErrorTypeGraphRead, errors.SeverityCritical,
			fmt.Sprintf("commit %s missing from rev-list output", id)).WithContext("commit", string(id))
	}
	return parents, nil
}

func (r *Repo) cached(id models.CommitID) ([]models.CommitID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	parents, ok := r.parents[id]
	return parents, ok
}

// loadAncestry reads every commit reachable from id that is not reachable
// from a previously loaded tip.
func (r *Repo) loadAncestry(ctx context.Context, id models.CommitID) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	if _, ok := r.cached(id); ok {
		return nil
	}

	var stdin strings.Builder
	stdin.WriteString(string(id))
	stdin.WriteString("\n")
	for _, tip := range r.loaded {
		stdin.WriteString("^")
		stdin.WriteString(string(tip))
		stdin.WriteString("\n")
	}

	out, err := r.git.run(ctx, strings.NewReader(stdin.String()), "rev-list", "--parents", "--stdin")
	if err != nil {
		return errors.GraphReadErrorf(err, "read ancestry of %s", id).WithContext("commit", string(id))
	}

	var nodes []models.CommitNode
	for _, line := range lines(out) {
		fields := strings.Fields(line)
		node := models.CommitNode{ID: models.CommitID(fields[0]), Parents: make([]models.CommitID, 0, len(fields)-1)}
		for _, p := range fields[1:] {
			node.Parents = append(node.Parents, models.CommitID(p))
		}
		nodes = append(nodes, node)
	}

	r.mu.Lock()
	for _, node := range nodes {
		r.parents[node.ID] = node.Parents
	}
	r.mu.Unlock()
	r.loaded = append(r.loaded, id)

	r.logger.WithFields(logrus.Fields{
		"tip":     id.Short(),
		"commits": len(nodes),
	}).Debug("loaded ancestry")

	if r.cache != nil && len(nodes) > 0 {
		if err := r.cache.StoreBatch(nodes); err != nil {
			r.logger.WithError(err).Warn("failed to persist parent cache")
		}
	}
	return nil
}

// CachedCommits reports how many commits the in-memory cache holds
func (r *Repo) CachedCommits() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parents)
}
