package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/labelpr/internal/cli"
	"github.com/rohankatakam/labelpr/internal/config"
	"github.com/rohankatakam/labelpr/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile      string
	verbose      bool
	repoPath     string
	logFile      string
	outputFormat string

	logger    *logrus.Logger
	logCloser io.Closer
	cfg       *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		if !cli.Silent(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.ExitCodeOf(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "label-pr [flags] <refpattern:basebranches:urlprefix>...",
	Short: "Attach pull request links to commits as git notes",
	Long: `label-pr finds the commits each pull request introduced and records the
PR's URL in a git note on every one of them, so 'git log --notes=label-pr'
and blame tooling can point at the PR a line came from.

Each argument is a triplet:

  refpattern    glob over ref names, e.g. refs/remotes/origin/pr/*/head
                (relative patterns are taken under refs/remotes/; a bare
                prefix such as origin/pr means origin/pr/<number>/head)
  basebranches  comma-separated branches whose history is already mainline
  urlprefix     prepended to the PR id to form the note text

A commit belongs to a PR when it is reachable from the PR ref and from none
of the base branches. Re-running only writes notes that changed.`,
	Example: `  label-pr 'origin/pr/*/head:master,release:https://github.com/org/repo/pull/'
  label-pr -n -o json 'refs/remotes/mr/*:main:https://gitlab.com/org/repo/-/merge_requests/'`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runLabel,
}

// setup loads configuration, applies flag overrides and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	var err error
	// .label-pr.yaml is looked up in the repository being labeled
	cfg, err = config.Load(cfgFile, repoPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("repo") {
		cfg.Repo = repoPath
	}

	logCfg := cfg.Log
	if verbose {
		logCfg.Level = "debug"
	}
	if logFile != "" {
		logCfg.OutputFile = logFile
	}
	logger, logCloser, err = logging.New(logCfg)
	if err != nil {
		return cli.Exitf(cli.ExitFatal, err, "configure logging")
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .label-pr.yaml in the repository or ~/.config/label-pr/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&repoPath, "repo", "C", ".", "repository to operate on")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: text, quiet, json or yaml")

	rootCmd.Flags().String("notes-ref", config.DefaultNotesRef, "notes ref to write labels to")
	rootCmd.Flags().IntP("workers", "j", 0, "specs resolved in parallel (default: number of CPUs)")
	rootCmd.Flags().BoolP("dry-run", "n", false, "compute labels without writing notes")
	rootCmd.Flags().Bool("no-cache", false, "do not use the persistent commit parent cache")
	rootCmd.Flags().Bool("no-history", false, "do not record this run in the history database")

	rootCmd.SetVersionTemplate(`label-pr {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(configCmd)
}
