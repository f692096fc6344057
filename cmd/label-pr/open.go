package main

import (
	"fmt"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/labelpr/internal/cli"
	"github.com/rohankatakam/labelpr/internal/git"
)

var openPrint bool

var openCmd = &cobra.Command{
	Use:   "open <commit>",
	Short: "Open the pull request a commit was labeled with",
	Long: `Read the label-pr note of a commit and open it in the default browser.
Anything git rev-parse accepts works as <commit>.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	openCmd.Flags().StringP("notes-ref", "r", "", "notes ref to read (default: notes_ref from config)")
	openCmd.Flags().BoolVarP(&openPrint, "print", "p", false, "print the URL instead of opening it")
}

func runOpen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	notesRef := cfg.NotesRef
	if ref, _ := cmd.Flags().GetString("notes-ref"); ref != "" {
		notesRef = ref
	}

	repo, err := git.Open(ctx, git.Options{Path: cfg.Repo, Logger: logger})
	if err != nil {
		return err
	}

	commit, err := repo.ResolveRef(ctx, args[0])
	if err != nil {
		return err
	}

	store := git.NewNotesStore(repo, notesRef, git.Signature{})
	label, ok, err := store.Get(ctx, commit)
	if err != nil {
		return err
	}
	if !ok {
		return cli.Exit(cli.ExitFatal, fmt.Sprintf("commit %s has no note in %s", commit.Short(), notesRef))
	}

	url := string(label)
	if openPrint || !strings.Contains(url, "://") {
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	}

	if err := browser.OpenURL(url); err != nil {
		logger.WithError(err).Warn("could not open browser")
		fmt.Fprintln(cmd.OutOrStdout(), url)
	}
	return nil
}
