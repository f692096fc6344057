package output

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rohankatakam/labelpr/internal/models"
)

// FormatRuns prints recorded runs as a table, newest first
func FormatRuns(runs []*models.Run, w io.Writer) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No recorded runs")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tPRS\tLABELED\tCREATED\tUPDATED\tFAILED\tEXIT")
	for _, run := range runs {
		started := run.StartedAt.Local().Format("2006-01-02 15:04:05")
		if run.DryRun {
			started += " (dry)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			shortID(run.ID),
			started,
			(time.Duration(run.DurationMs) * time.Millisecond).String(),
			run.PRsResolved,
			run.Labeled,
			run.Created,
			run.Updated,
			run.Failed,
			run.ExitCode,
		)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
