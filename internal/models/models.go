package models

import (
	"sort"
	"strings"
	"time"
)

// CommitID is a hex object name as printed by git (40 chars for SHA-1
// repositories, 64 for SHA-256). Comparison is plain string comparison,
// which matches byte order for lowercase hex.
type CommitID string

// Short returns the abbreviated form used in log output
func (c CommitID) Short() string {
	if len(c) > 10 {
		return string(c[:10])
	}
	return string(c)
}

// IsValid reports whether c looks like a full object name
func (c CommitID) IsValid() bool {
	if len(c) != 40 && len(c) != 64 {
		return false
	}
	for i := 0; i < len(c); i++ {
		ch := c[i]
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}
	return true
}

// CommitSet is an unordered set of commits
type CommitSet map[CommitID]struct{}

// Add inserts c into the set
func (s CommitSet) Add(c CommitID) {
	s[c] = struct{}{}
}

// Has reports membership
func (s CommitSet) Has(c CommitID) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the members in ascending order
func (s CommitSet) Sorted() []CommitID {
	out := make([]CommitID, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	SortCommits(out)
	return out
}

// SortCommits sorts ids in place, ascending
func SortCommits(ids []CommitID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// CommitNode is a commit and its ordered parents. The first parent is the
// mainline parent of a merge.
type CommitNode struct {
	ID      CommitID   `json:"id"`
	Parents []CommitID `json:"parents"`
}

// RefSpec is one `refpattern:basebranches:urlprefix` triplet
type RefSpec struct {
	RefPattern   string   `json:"ref_pattern" yaml:"ref_pattern"`
	BaseBranches []string `json:"base_branches" yaml:"base_branches"`
	URLPrefix    string   `json:"url_prefix" yaml:"url_prefix"`
}

// String renders the spec back in command-line form
func (s RefSpec) String() string {
	return s.RefPattern + ":" + strings.Join(s.BaseBranches, ",") + ":" + s.URLPrefix
}

// Label is the annotation text attached to a commit
type Label string

// LabelFor builds the label for a PR id under a spec
func LabelFor(spec RefSpec, id string) Label {
	return Label(spec.URLPrefix + id)
}

// PullRequest is a PR ref discovered during resolution. It only lives for
// the duration of a run.
type PullRequest struct {
	ID        string    `json:"id"`
	Ref       string    `json:"ref"`
	Head      CommitID  `json:"head"`
	Spec      *RefSpec  `json:"-"`
	Exclusive CommitSet `json:"-"`
}

// Label returns the label this PR assigns to the commits it owns
func (pr *PullRequest) Label() Label {
	return LabelFor(*pr.Spec, pr.ID)
}

// AnnotationRecord is the persisted commit → label mapping
type AnnotationRecord struct {
	Commit CommitID `json:"commit"`
	Label  Label    `json:"label"`
}

// Run is one recorded labeling run
type Run struct {
	ID          string    `db:"id" json:"id" yaml:"id"`
	Repo        string    `db:"repo" json:"repo" yaml:"repo"`
	NotesRef    string    `db:"notes_ref" json:"notes_ref" yaml:"notes_ref"`
	StartedAt   time.Time `db:"started_at" json:"started_at" yaml:"started_at"`
	DurationMs  int64     `db:"duration_ms" json:"duration_ms" yaml:"duration_ms"`
	DryRun      bool      `db:"dry_run" json:"dry_run" yaml:"dry_run"`
	SpecsFailed int       `db:"specs_failed" json:"specs_failed" yaml:"specs_failed"`
	PRsResolved int       `db:"prs_resolved" json:"prs_resolved" yaml:"prs_resolved"`
	Labeled     int       `db:"labeled" json:"labeled" yaml:"labeled"`
	Created     int       `db:"created" json:"created" yaml:"created"`
	Updated     int       `db:"updated" json:"updated" yaml:"updated"`
	Skipped     int       `db:"skipped" json:"skipped" yaml:"skipped"`
	Failed      int       `db:"failed" json:"failed" yaml:"failed"`
	ExitCode    int       `db:"exit_code" json:"exit_code" yaml:"exit_code"`

	Specs []RunSpec `db:"-" json:"specs,omitempty" yaml:"specs,omitempty"`
}

// RunSpec is the per-spec outcome of a recorded run
type RunSpec struct {
	RunID    string `db:"run_id" json:"-" yaml:"-"`
	Position int    `db:"position" json:"-" yaml:"-"`
	Spec     string `db:"spec" json:"spec" yaml:"spec"`
	PRs      int    `db:"prs" json:"prs" yaml:"prs"`
	Commits  int    `db:"commits" json:"commits" yaml:"commits"`
	Warnings int    `db:"warnings" json:"warnings" yaml:"warnings"`
	Error    string `db:"error" json:"error,omitempty" yaml:"error,omitempty"`
}
