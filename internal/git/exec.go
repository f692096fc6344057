package git

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
)

// runner executes git inside one repository
type runner struct {
	dir string
	env []string

	calls atomic.Int64
}

// exitCode returns the process exit status carried by err, or -1
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// run executes git with args and returns stdout. stderr is folded into the
// returned error so failures carry git's own explanation.
func (r *runner) run(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error) {
	r.calls.Add(1)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return stdout.Bytes(), &commandError{args: args, stderr: msg, err: err}
		}
		return stdout.Bytes(), &commandError{args: args, err: err}
	}
	return stdout.Bytes(), nil
}

// commandError describes a failed git invocation
type commandError struct {
	args   []string
	stderr string
	err    error
}

func (e *commandError) Error() string {
	if e.stderr != "" {
		return fmt.Sprintf("git %s: %v (stderr: %s)", strings.Join(e.args, " "), e.err, e.stderr)
	}
	return fmt.Sprintf("git %s: %v", strings.Join(e.args, " "), e.err)
}

func (e *commandError) Unwrap() error {
	return e.err
}

// lines splits command output into non-empty trimmed lines
func lines(out []byte) []string {
	var result []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}
