package git

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/models"
)

// Signature is the identity git records on note commits
type Signature struct {
	Name  string
	Email string
}

// NotesStore keeps one label per commit under a notes ref. Writes are
// serialised; git updates the notes ref atomically for each add.
type NotesStore struct {
	git *runner
	ref string

	mu     sync.Mutex
	index  map[models.CommitID]models.Label
	loaded bool
}

// NewNotesStore returns a store writing to ref (e.g. refs/notes/label-pr)
func NewNotesStore(repo *Repo, ref string, sig Signature) *NotesStore {
	var env []string
	if sig.Name != "" {
		env = append(env, "GIT_AUTHOR_NAME="+sig.Name, "GIT_COMMITTER_NAME="+sig.Name)
	}
	if sig.Email != "" {
		env = append(env, "GIT_AUTHOR_EMAIL="+sig.Email, "GIT_COMMITTER_EMAIL="+sig.Email)
	}
	return &NotesStore{
		git: &runner{dir: repo.Path(), env: env},
		ref: ref,
	}
}

// Ref returns the notes ref this store writes to
func (s *NotesStore) Ref() string {
	return s.ref
}

// loadIndex lists the existing notes and reads their bodies with a single
// cat-file --batch. Caller holds mu.
func (s *NotesStore) loadIndex(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	out, err := s.git.run(ctx, nil, "notes", "--ref="+s.ref, "list")
	if err != nil {
		return errors.StorageErrorf(err, "list notes in %s", s.ref).WithContext("ref", s.ref)
	}

	blobs := make(map[models.CommitID]string)
	var request strings.Builder
	requested := make(map[string]bool)
	for _, line := range lines(out) {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		blobs[models.CommitID(fields[1])] = fields[0]
		// commits of one PR share a note blob
		if !requested[fields[0]] {
			requested[fields[0]] = true
			request.WriteString(fields[0])
			request.WriteString("\n")
		}
	}

	bodies := map[string]string{}
	if len(requested) > 0 {
		out, err = s.git.run(ctx, strings.NewReader(request.String()), "cat-file", "--batch")
		if err != nil {
			return errors.StorageErrorf(err, "read notes in %s", s.ref).WithContext("ref", s.ref)
		}
		bodies, err = parseBatch(out)
		if err != nil {
			return errors.StorageErrorf(err, "read notes in %s", s.ref).WithContext("ref", s.ref)
		}
	}

	s.index = make(map[models.CommitID]models.Label, len(blobs))
	for commit, blob := range blobs {
		body, ok := bodies[blob]
		if !ok {
			return errors.New(errors.ErrorTypeStorage, errors.SeverityMedium,
				fmt.Sprintf("note blob %s for %s missing", blob, commit)).WithContext("commit", string(commit))
		}
		s.index[commit] = models.Label(strings.TrimSuffix(body, "\n"))
	}
	s.loaded = true
	return nil
}

// parseBatch splits `git cat-file --batch` output into object bodies keyed
// by object name. Missing objects are left out.
func parseBatch(out []byte) (map[string]string, error) {
	bodies := make(map[string]string)
	for len(out) > 0 {
		nl := bytes.IndexByte(out, '\n')
		if nl < 0 {
			return nil, fmt.Errorf("truncated cat-file header %q", out)
		}
		header := strings.Fields(string(out[:nl]))
		out = out[nl+1:]

		if len(header) == 2 && header[1] == "missing" {
			continue
		}
		if len(header) != 3 {
			return nil, fmt.Errorf("unexpected cat-file header %q", strings.Join(header, " "))
		}
		size, err := strconv.Atoi(header[2])
		if err != nil || size < 0 || size+1 > len(out) {
			return nil, fmt.Errorf("bad object size in cat-file header %q", strings.Join(header, " "))
		}
		bodies[header[0]] = string(out[:size])
		out = out[size+1:]
	}
	return bodies, nil
}

// Get returns the label currently attached to commit
func (s *NotesStore) Get(ctx context.Context, commit models.CommitID) (models.Label, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadIndex(ctx); err != nil {
		return "", false, err
	}

	label, ok := s.index[commit]
	return label, ok, nil
}

// Set creates or overwrites the note on commit
func (s *NotesStore) Set(ctx context.Context, commit models.CommitID, label models.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.git.run(ctx, strings.NewReader(string(label)+"\n"),
		"notes", "--ref="+s.ref, "add", "--force", "--file=-", string(commit))
	if err != nil {
		return errors.AnnotationWriteError(err, string(commit))
	}

	if s.loaded {
		s.index[commit] = label
	}
	return nil
}
