package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitlane/internal/git"
	"github.com/thiagokokada/gitlane/internal/graph"
	"github.com/thiagokokada/gitlane/internal/render"
	"github.com/thiagokokada/gitlane/internal/stream"
	"github.com/thiagokokada/gitlane/internal/watch"
)

const streamBuffer = 64

func newGraphCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the commit graph of every branch, remote branch and tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.cfg.Watch {
				return o.watchGraph(cmd.Context(), cmd.OutOrStdout())
			}
			return o.printGraph(cmd.Context(), cmd.OutOrStdout())
		},
	}
	addOutputFlags(cmd)
	f := cmd.Flags()
	f.BoolP("watch", "w", false, "print the graph again whenever the repository changes")
	f.Duration("debounce", 0, "quiet period before reprinting in watch mode")
	return cmd
}

// printGraph lays out the repository and prints it as it is produced, so the
// first rows appear before the walk is over.
func (o *options) printGraph(ctx context.Context, out io.Writer) error {
	started := time.Now()
	repo, err := git.Open(o.repo, o.cfg.CacheSize)
	if err != nil {
		return err
	}
	layout, err := graph.PositionedCommits(repo)
	if err != nil {
		return err
	}

	write, closeOut, err := o.graphOutput(out, layout)
	if err != nil {
		return err
	}
	defer closeOut()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s := stream.Start(ctx, layout, streamBuffer)

	printed := 0
	limited := false
	var writeErr error
	for ev := range s.Events {
		if writeErr = write(ev); writeErr != nil {
			break
		}
		printed++
		if o.cfg.Limit > 0 && printed >= o.cfg.Limit {
			limited = true
			break
		}
	}
	cancel()
	_, err = s.Wait()
	if writeErr != nil {
		return writeErr
	}
	if limited && errors.Is(err, context.Canceled) {
		err = nil
	}
	slog.Debug("graph printed",
		slog.String("channel", s.Channel),
		slog.Int("commits", printed),
		slog.Int("width", layout.Width()),
		slog.Duration("elapsed", time.Since(started)),
	)
	return err
}

func (o *options) graphOutput(out io.Writer, layout *graph.Layout) (func(stream.Event) error, func(), error) {
	format := o.cfg.OutputFormat()
	if format == render.FormatText {
		gw := render.NewGraphWriter(out, render.NewPalette(o.cfg.Color), layout.Labels())
		return func(ev stream.Event) error { return gw.Write(ev.Commit) }, func() {}, nil
	}
	enc, err := render.NewEncoder(out, format)
	if err != nil {
		return nil, nil, err
	}
	closeOut := func() {
		if err := enc.Close(); err != nil {
			slog.Error("close encoder", slog.Any("error", err))
		}
	}
	return func(ev stream.Event) error { return enc.Encode(ev) }, closeOut, nil
}

// watchGraph prints the graph, then prints it again after every burst of
// changes to the repository until interrupted.
func (o *options) watchGraph(ctx context.Context, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := git.Open(o.repo, o.cfg.CacheSize)
	if err != nil {
		return err
	}
	reload := make(chan struct{}, 1)
	w, err := watch.Start(repo.Root(), o.cfg.Debounce, func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("watch repository: %w", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			slog.Error("close watcher", slog.Any("error", err))
		}
	}()

	if err := o.printGraph(ctx, out); err != nil && ctx.Err() == nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reload:
			slog.Info("repository changed, reloading", slog.String("repo", repo.Root()))
			if _, err := fmt.Fprintln(out); err != nil {
				return err
			}
			if err := o.printGraph(ctx, out); err != nil && ctx.Err() == nil {
				slog.Error("reload graph", slog.Any("error", err))
			}
		}
	}
}
