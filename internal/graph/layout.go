package graph

import (
	"io"
	"iter"

	"github.com/thiagokokada/gitlane/internal/git"
)

// CommitSource yields commits in topological order and returns io.EOF once
// exhausted. *git.RevWalk satisfies it.
type CommitSource interface {
	Next() (*git.CommitInfo, error)
}

// Layout positions commits pulled from a CommitSource one at a time.
type Layout struct {
	src      CommitSource
	assigner *Assigner
	labels   map[git.Oid][]string
}

func NewLayout(src CommitSource) *Layout {
	return &Layout{src: src, assigner: NewAssigner()}
}

// PositionedCommits lays out every commit reachable from HEAD, the local and
// remote branches and the tags of store.
func PositionedCommits(store git.Store) (*Layout, error) {
	refs, err := git.ListRefs(store)
	if err != nil {
		return nil, err
	}
	walk, err := git.Walk(store, refs)
	if err != nil {
		return nil, err
	}
	l := NewLayout(walk)
	l.labels = git.Labels(refs)
	return l, nil
}

// Next returns the next positioned commit, or io.EOF.
func (l *Layout) Next() (*PositionedCommit, error) {
	c, err := l.src.Next()
	if err != nil {
		return nil, err
	}
	return l.assigner.Place(c), nil
}

// All adapts the layout to a range-over-func sequence. Errors other than
// io.EOF end the sequence; use Next to observe them.
func (l *Layout) All() iter.Seq[*PositionedCommit] {
	return func(yield func(*PositionedCommit) bool) {
		for {
			pc, err := l.Next()
			if err != nil {
				return
			}
			if !yield(pc) {
				return
			}
		}
	}
}

// Collect drains the layout.
func (l *Layout) Collect() ([]*PositionedCommit, error) {
	var out []*PositionedCommit
	for {
		pc, err := l.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, pc)
	}
}

// Labels returns the ref decorations of the commits being laid out, when the
// layout was built from a store.
func (l *Layout) Labels() map[git.Oid][]string {
	return l.labels
}

// Width is the number of lane slots allocated so far.
func (l *Layout) Width() int {
	return l.assigner.Width()
}
