package labeler

import (
	"time"

	"github.com/rohankatakam/labelpr/internal/cli"
	"github.com/rohankatakam/labelpr/internal/models"
	"github.com/rohankatakam/labelpr/internal/notes"
	"github.com/rohankatakam/labelpr/internal/resolver"
)

// SpecSummary is the per-spec part of a Summary
type SpecSummary struct {
	Spec     string        `json:"spec" yaml:"spec"`
	Pattern  string        `json:"pattern" yaml:"pattern"`
	PRs      int           `json:"prs" yaml:"prs"`
	Commits  int           `json:"commits" yaml:"commits"`
	Warnings []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Summary is the end-of-run report
type Summary struct {
	StartedAt      time.Time     `json:"started_at" yaml:"started_at"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
	DryRun         bool          `json:"dry_run" yaml:"dry_run"`
	Specs          []SpecSummary `json:"specs" yaml:"specs"`
	SpecsFailed    int           `json:"specs_failed" yaml:"specs_failed"`
	PRsResolved    int           `json:"prs_resolved" yaml:"prs_resolved"`
	CommitsLabeled int           `json:"commits_labeled" yaml:"commits_labeled"`
	Contested      int           `json:"contested" yaml:"contested"`
	Created        int           `json:"created" yaml:"created"`
	Updated        int           `json:"updated" yaml:"updated"`
	Skipped        int           `json:"skipped" yaml:"skipped"`
	Failed         int           `json:"failed" yaml:"failed"`
	Failures       []string      `json:"failures,omitempty" yaml:"failures,omitempty"`
}

func (s *Summary) addSpec(sr *resolver.SpecResult) {
	spec := SpecSummary{
		Spec:     sr.Spec.String(),
		Pattern:  sr.Pattern,
		PRs:      len(sr.PullRequests),
		Duration: sr.Duration,
	}
	for _, pr := range sr.PullRequests {
		spec.Commits += len(pr.Exclusive)
	}
	for _, w := range sr.Warnings {
		spec.Warnings = append(spec.Warnings, w.Error())
	}
	if sr.Failed() {
		spec.Error = sr.Err.Error()
		s.SpecsFailed++
	}
	s.PRsResolved += spec.PRs
	s.Specs = append(s.Specs, spec)
}

func (s *Summary) addWrites(r *notes.WriteResult) {
	s.Created = r.Created
	s.Updated = r.Updated
	s.Skipped = r.Skipped
	s.Failed = r.Failed
	for _, err := range r.Failures {
		s.Failures = append(s.Failures, err.Error())
	}
}

// Written is the number of notes created or overwritten
func (s *Summary) Written() int {
	return s.Created + s.Updated
}

// Warnings counts non-fatal problems across all specs
func (s *Summary) Warnings() int {
	n := 0
	for _, spec := range s.Specs {
		n += len(spec.Warnings)
	}
	return n
}

// HasFailures reports whether any spec failed entirely
func (s *Summary) HasFailures() bool {
	return s.SpecsFailed > 0
}

// ExitCode maps the run outcome to a process exit status. Per-commit write
// failures are reported but do not fail the run.
func (s *Summary) ExitCode() int {
	if s.HasFailures() {
		return cli.ExitSpecFailed
	}
	return cli.ExitOK
}

// Record converts the summary into a run history entry
func (s *Summary) Record(repo, notesRef string) *models.Run {
	run := &models.Run{
		Repo:        repo,
		NotesRef:    notesRef,
		StartedAt:   s.StartedAt,
		DurationMs:  s.Duration.Milliseconds(),
		DryRun:      s.DryRun,
		SpecsFailed: s.SpecsFailed,
		PRsResolved: s.PRsResolved,
		Labeled:     s.CommitsLabeled,
		Created:     s.Created,
		Updated:     s.Updated,
		Skipped:     s.Skipped,
		Failed:      s.Failed,
		ExitCode:    s.ExitCode(),
	}
	for _, spec := range s.Specs {
		run.Specs = append(run.Specs, models.RunSpec{
			Spec:     spec.Spec,
			PRs:      spec.PRs,
			Commits:  spec.Commits,
			Warnings: len(spec.Warnings),
			Error:    spec.Error,
		})
	}
	return run
}
