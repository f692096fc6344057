package output

import (
	"fmt"
	"io"

	"github.com/rohankatakam/labelpr/internal/labeler"
)

// QuietFormatter outputs a one-line summary
type QuietFormatter struct{}

func (f *QuietFormatter) Format(s *labeler.Summary, w io.Writer) error {
	if s.HasFailures() {
		_, err := fmt.Fprintf(w, "⚠️  %d PRs, %d commits labeled, %d written, %d spec(s) failed\n",
			s.PRsResolved, s.CommitsLabeled, s.Written(), s.SpecsFailed)
		return err
	}
	_, err := fmt.Fprintf(w, "✅ %d PRs, %d commits labeled, %d written\n",
		s.PRsResolved, s.CommitsLabeled, s.Written())
	return err
}
