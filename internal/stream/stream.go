// Package stream forwards a positioned commit layout over a channel, one
// event per commit, for consumers that render incrementally.
package stream

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thiagokokada/gitlane/internal/graph"
)

const channelPrefix = "get_commits-stream-"

// Event carries one positioned commit. Seq starts at 0 and increases by one
// per event of the same channel.
type Event struct {
	Channel string                  `json:"channel" yaml:"channel"`
	Seq     int                     `json:"seq" yaml:"seq"`
	Commit  *graph.PositionedCommit `json:"payload" yaml:"payload"`
}

// Source is satisfied by *graph.Layout.
type Source interface {
	Next() (*graph.PositionedCommit, error)
}

// NewChannel returns a fresh channel name correlating the events of one run.
func NewChannel() string {
	return channelPrefix + uuid.NewString()
}

// Forward pulls src until it is exhausted and sends every commit to out. It
// returns how many events were sent; an error from src or the context stops
// forwarding. out is never closed by Forward.
func Forward(ctx context.Context, channel string, src Source, out chan<- Event) (int, error) {
	started := time.Now()
	sent := 0
	defer func() {
		slog.Debug("stream forwarded",
			slog.String("channel", channel),
			slog.Int("events", sent),
			slog.Duration("elapsed", time.Since(started)),
		)
	}()
	for {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		pc, err := src.Next()
		if err == io.EOF {
			return sent, nil
		}
		if err != nil {
			return sent, err
		}
		select {
		case out <- Event{Channel: channel, Seq: sent, Commit: pc}:
			sent++
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
}

// Stream runs Forward on its own goroutine.
type Stream struct {
	Channel string
	Events  <-chan Event

	wg    sync.WaitGroup
	count int
	err   error
}

// Start forwards src in the background. Events is closed once src is
// exhausted, fails or ctx is cancelled; Wait reports the outcome. The source
// must not be used by anything else until then.
func Start(ctx context.Context, src Source, buffer int) *Stream {
	events := make(chan Event, buffer)
	s := &Stream{Channel: NewChannel(), Events: events}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(events)
		s.count, s.err = Forward(ctx, s.Channel, src, events)
		if s.err != nil && ctx.Err() == nil {
			slog.Error("stream failed", slog.String("channel", s.Channel), slog.Any("error", s.err))
		}
	}()
	return s
}

// Wait blocks until forwarding stops and returns the number of events sent.
// Consumers that stop reading early must cancel the context first.
func (s *Stream) Wait() (int, error) {
	s.wg.Wait()
	return s.count, s.err
}
