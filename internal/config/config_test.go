package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/models"
)

func TestParseRefSpec(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    models.RefSpec
		wantErr bool
	}{
		{
			name: "url prefix keeps its colons",
			arg:  "refs/remotes/pr/*:master:https://github.com/org/repo/pull/",
			want: models.RefSpec{
				RefPattern:   "refs/remotes/pr/*",
				BaseBranches: []string{"master"},
				URLPrefix:    "https://github.com/org/repo/pull/",
			},
		},
		{
			name: "branch list trimmed and de-duplicated",
			arg:  "origin/pr: master , 0.21,master,:https://x/",
			want: models.RefSpec{
				RefPattern:   "origin/pr",
				BaseBranches: []string{"master", "0.21"},
				URLPrefix:    "https://x/",
			},
		},
		{name: "too few fields", arg: "refs/pr/*:master", wantErr: true},
		{name: "single field", arg: "refs/pr/*", wantErr: true},
		{name: "empty pattern", arg: ":master:https://x/", wantErr: true},
		{name: "empty branches", arg: "pr/*: , :https://x/", wantErr: true},
		{name: "empty prefix", arg: "pr/*:master:", wantErr: true},
		{name: "bad glob", arg: "refs/pr/[0-9:master:https://x/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRefSpec(tt.arg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, stderrors.Is(err, errors.ErrConfig))
				assert.True(t, errors.IsFatal(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRefSpecsFailsFast(t *testing.T) {
	specs, err := ParseRefSpecs([]string{"pr/*:master:https://a/", "broken"})
	assert.Nil(t, specs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"broken"`)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	specs := []models.RefSpec{{RefPattern: "pr/*", BaseBranches: []string{"master"}, URLPrefix: "https://x/"}}

	result := cfg.Validate(specs)
	assert.False(t, result.HasErrors())
	assert.NoError(t, result.Err())

	cfg.NotesRef = "refs/heads/notes"
	cfg.Workers = 0
	result = cfg.Validate(nil)
	assert.Len(t, result.Errors, 3)
	err := result.Err()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfig))
}

func TestValidateWarnsOnDuplicatePattern(t *testing.T) {
	spec := models.RefSpec{RefPattern: "pr/*", BaseBranches: []string{"master"}, URLPrefix: "not-a-url/"}
	result := Default().Validate([]models.RefSpec{spec, spec})
	assert.False(t, result.HasErrors())
	assert.Len(t, result.Warnings, 3)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label-pr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
repo: /srv/repo
notes_ref: refs/notes/prs
workers: 3
specs:
  - "pr/*:master:https://example.com/pull/"
cache:
  enabled: false
`), 0644))

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "/srv/repo", cfg.Repo)
	assert.Equal(t, "refs/notes/prs", cfg.NotesRef)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"pr/*:master:https://example.com/pull/"}, cfg.Specs)
	assert.False(t, cfg.Cache.Enabled)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "PR Labeller", cfg.Signature.Name)
}

func TestLoadFindsConfigInRepoDir(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, ".label-pr.yaml"), []byte("notes_ref: refs/notes/local\n"), 0644))

	cfg, err := Load("", repo)
	require.NoError(t, err)
	assert.Equal(t, "refs/notes/local", cfg.NotesRef)

	t.Setenv("HOME", t.TempDir())
	cfg, err = Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultNotesRef, cfg.NotesRef)
}

func TestLoadFallsBackToHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "label-pr")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("workers: 5\n"), 0644))

	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LABELPR_WORKERS", "7")
	t.Setenv("LABELPR_NOTES_REF", "refs/notes/other")

	cfg := Default()
	applyEnvOverrides(cfg)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, "refs/notes/other", cfg.NotesRef)
}
