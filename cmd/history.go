package cmd

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitlane/internal/git"
	"github.com/thiagokokada/gitlane/internal/history"
	"github.com/thiagokokada/gitlane/internal/render"
)

type historyOptions struct {
	*options
	patch bool
	start string
}

func newHistoryCmd(o *options) *cobra.Command {
	h := &historyOptions{options: o}
	cmd := &cobra.Command{
		Use:   "history <path|glob>...",
		Short: "List the commits that changed a file, newest first",
		Long: `history follows a file back from HEAD (or --start) and lists every
non-merge commit that changed its content. Arguments holding glob
characters, like 'internal/**/*.go', are matched against the files of the
start commit and each match is traced in turn.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.run(cmd.OutOrStdout(), args)
		},
	}
	addOutputFlags(cmd)
	f := cmd.Flags()
	f.BoolVarP(&h.patch, "patch", "p", false, "show the change to the file in each commit")
	f.StringVar(&h.start, "start", "", "revision to start from (default HEAD)")
	f.String("mode", "auto", "color scheme for syntax highlighting: auto, light or dark")
	f.Bool("syntax", true, "syntax highlight patches")
	return cmd
}

func (h *historyOptions) run(out io.Writer, args []string) error {
	started := time.Now()
	repo, err := git.Open(h.repo, h.cfg.CacheSize)
	if err != nil {
		return err
	}
	var start *git.Oid
	if h.start != "" {
		id, err := repo.Resolve(h.start)
		if err != nil {
			return err
		}
		start = &id
	}
	paths, err := expandPaths(repo, start, args)
	if err != nil {
		return err
	}

	write, header, closeOut, err := h.historyOutput(out)
	if err != nil {
		return err
	}
	defer closeOut()

	total := 0
	for _, path := range paths {
		tracer, err := history.FileHistory(repo, path, start)
		if err != nil {
			return err
		}
		if len(paths) > 1 {
			if err := header(path); err != nil {
				return err
			}
		}
		n := 0
		for id, err := range tracerSeq(tracer) {
			if err != nil {
				return err
			}
			c, err := repo.Commit(id)
			if err != nil {
				return err
			}
			entry := render.HistoryEntry{Path: tracer.Path(), Commit: c}
			if h.patch {
				if entry.Patch, err = render.Patch(repo, c, tracer.Path()); err != nil {
					return err
				}
			}
			if err := write(entry); err != nil {
				return err
			}
			n++
			if h.cfg.Limit > 0 && n >= h.cfg.Limit {
				break
			}
		}
		total += n
	}
	slog.Debug("history printed",
		slog.Int("paths", len(paths)),
		slog.Int("commits", total),
		slog.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// tracerSeq adapts the tracer to a range loop that also reports errors.
func tracerSeq(t *history.Tracer) iter.Seq2[git.Oid, error] {
	return func(yield func(git.Oid, error) bool) {
		for {
			id, err := t.Next()
			if err == io.EOF {
				return
			}
			if !yield(id, err) || err != nil {
				return
			}
		}
	}
}

// expandPaths resolves every argument to repository paths, dropping
// duplicates. A glob that matches nothing is an error.
func expandPaths(store git.Store, start *git.Oid, args []string) ([]string, error) {
	var paths []string
	seen := map[string]bool{}
	for _, arg := range args {
		matches, err := history.Expand(store, start, arg)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%q matches no file", arg)
		}
		for _, p := range matches {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	return paths, nil
}

func (h *historyOptions) historyOutput(out io.Writer) (func(render.HistoryEntry) error, func(string) error, func(), error) {
	format := h.cfg.OutputFormat()
	if format == render.FormatText {
		palette := render.NewPalette(h.cfg.Color)
		var highlight *render.Highlighter
		if h.patch {
			highlight = render.NewHighlighter(palette, h.cfg.Theme(), h.cfg.Syntax)
		}
		hw := render.NewHistoryWriter(out, palette, highlight)
		return hw.Write, hw.Header, func() {}, nil
	}
	enc, err := render.NewEncoder(out, format)
	if err != nil {
		return nil, nil, nil, err
	}
	write := func(e render.HistoryEntry) error { return enc.Encode(e) }
	noHeader := func(string) error { return nil }
	closeOut := func() {
		if err := enc.Close(); err != nil {
			slog.Error("close encoder", slog.Any("error", err))
		}
	}
	return write, noHeader, closeOut, nil
}
