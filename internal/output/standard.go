package output

import (
	"fmt"
	"io"
	"time"

	"github.com/rohankatakam/labelpr/internal/labeler"
)

// TextFormatter outputs counts, per-spec results and problems (default)
type TextFormatter struct{}

func (f *TextFormatter) Format(s *labeler.Summary, w io.Writer) error {
	// Header
	if s.DryRun {
		fmt.Fprintf(w, "🏷  label-pr (dry run, nothing written)\n")
	} else {
		fmt.Fprintf(w, "🏷  label-pr\n")
	}
	fmt.Fprintf(w, "PRs resolved:    %d\n", s.PRsResolved)
	fmt.Fprintf(w, "Commits labeled: %d (%d contested)\n", s.CommitsLabeled, s.Contested)
	fmt.Fprintf(w, "Notes created:   %d\n", s.Created)
	fmt.Fprintf(w, "Notes updated:   %d\n", s.Updated)
	fmt.Fprintf(w, "Unchanged:       %d\n", s.Skipped)
	fmt.Fprintf(w, "Failed:          %d\n", s.Failed)
	fmt.Fprintf(w, "Duration:        %s\n\n", s.Duration.Round(time.Millisecond))

	// Specs
	if len(s.Specs) > 0 {
		fmt.Fprintf(w, "Specs:\n")
		for i, spec := range s.Specs {
			if spec.Error != "" {
				fmt.Fprintf(w, "%d. 🔴 %s - %s\n", i+1, spec.Spec, spec.Error)
			} else {
				fmt.Fprintf(w, "%d. %s - %d PRs, %d commits\n", i+1, spec.Spec, spec.PRs, spec.Commits)
			}
			for _, warn := range spec.Warnings {
				fmt.Fprintf(w, "   ⚠️  %s\n", warn)
			}
		}
		fmt.Fprintf(w, "\n")
	}

	// Write failures
	if len(s.Failures) > 0 {
		fmt.Fprintf(w, "Write failures:\n")
		for _, failure := range s.Failures {
			fmt.Fprintf(w, "- %s\n", failure)
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}
