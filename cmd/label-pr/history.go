package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/labelpr/internal/cli"
	"github.com/rohankatakam/labelpr/internal/git"
	"github.com/rohankatakam/labelpr/internal/output"
	"github.com/rohankatakam/labelpr/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded labeling runs",
	Long:  `Show the most recent label-pr runs recorded in the repository's history database.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return cli.Exitf(cli.ExitFatal, err, "invalid --output")
	}

	path := cfg.History.Path
	if path == "" {
		repo, err := git.Open(ctx, git.Options{Path: cfg.Repo, Logger: logger})
		if err != nil {
			return err
		}
		path = cli.HistoryPath("", repo.GitDir())
	}

	store, err := storage.NewSQLiteStore(path, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch format {
	case output.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	case output.FormatYAML:
		return yaml.NewEncoder(w).Encode(runs)
	default:
		return output.FormatRuns(runs, w)
	}
}
