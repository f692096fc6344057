package main

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/labelpr/internal/cache"
	"github.com/rohankatakam/labelpr/internal/cli"
	"github.com/rohankatakam/labelpr/internal/config"
	"github.com/rohankatakam/labelpr/internal/git"
	"github.com/rohankatakam/labelpr/internal/labeler"
	"github.com/rohankatakam/labelpr/internal/output"
	"github.com/rohankatakam/labelpr/internal/storage"
)

func runLabel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	applyRunFlags(cmd)

	specArgs := args
	if len(specArgs) == 0 {
		specArgs = cfg.Specs
	}
	specs, err := config.ParseRefSpecs(specArgs)
	if err != nil {
		return err
	}

	validation := cfg.Validate(specs)
	for _, warning := range validation.Warnings {
		logger.Warn(warning)
	}
	if err := validation.Err(); err != nil {
		return err
	}

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return cli.Exitf(cli.ExitFatal, err, "invalid --output")
	}

	repo, err := git.Open(ctx, git.Options{Path: cfg.Repo, Logger: logger})
	if err != nil {
		return err
	}
	if cfg.Cache.Enabled {
		if parents := openParentCache(repo); parents != nil {
			defer parents.Close()
			repo.UseCache(parents)
		}
	}

	store := git.NewNotesStore(repo, cfg.NotesRef, git.Signature{
		Name:  cfg.Signature.Name,
		Email: cfg.Signature.Email,
	})

	orchestrator := labeler.NewOrchestrator(repo, store, labeler.Options{
		Workers: cfg.Workers,
		DryRun:  cfg.DryRun,
		Logger:  logger,
	})
	summary, err := orchestrator.Run(ctx, specs)
	if err != nil {
		return err
	}

	if cfg.History.Enabled {
		recordRun(ctx, repo, summary)
	}

	if err := output.NewFormatter(format).Format(summary, cmd.OutOrStdout()); err != nil {
		return err
	}

	if code := summary.ExitCode(); code != cli.ExitOK {
		return cli.Code(code)
	}
	return nil
}

// applyRunFlags copies explicitly set flags over the loaded configuration
func applyRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("notes-ref") {
		cfg.NotesRef, _ = flags.GetString("notes-ref")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("dry-run") {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	if noHistory, _ := flags.GetBool("no-history"); noHistory {
		cfg.History.Enabled = false
	}
}

// openParentCache opens the bbolt parent cache. A cache that cannot be
// opened (another run holds the lock) only costs speed.
func openParentCache(repo *git.Repo) *cache.ParentCache {
	path := cli.CachePath(cfg.Cache.Path, repo.GitDir())
	parents, err := cache.OpenParentCache(path)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("parent cache unavailable, continuing without it")
		return nil
	}
	return parents
}

// recordRun stores the run in the history database. Failures are logged.
func recordRun(ctx context.Context, repo *git.Repo, summary *labeler.Summary) {
	path := cli.HistoryPath(cfg.History.Path, repo.GitDir())
	store, err := storage.NewSQLiteStore(path, logger)
	if err != nil {
		logger.WithError(err).Warn("run history unavailable")
		return
	}
	defer store.Close()

	repoDir, err := filepath.Abs(repo.Path())
	if err != nil {
		repoDir = repo.Path()
	}
	run := summary.Record(repoDir, cfg.NotesRef)
	if err := store.SaveRun(ctx, run); err != nil {
		logger.WithError(err).Warn("failed to record run")
		return
	}
	logger.WithField("run", run.ID).Debug("recorded run")
}
