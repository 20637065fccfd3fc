// Package history traces the commits that changed a single path.
package history

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/thiagokokada/gitlane/internal/git"
)

// head is a frontier element of the backward walk.
type head struct {
	path     string
	oid      git.Oid
	priority int64
}

// Tracer walks backwards from a start commit, following every parent of a
// merge, and yields the commits whose version of path differs from their
// only parent. Merge commits are never yielded. Heads are popped newest
// first, so results come out by descending commit time.
//
// A Tracer is single pass; build a new one to walk again.
type Tracer struct {
	store   git.Store
	path    string
	heads   *binaryheap.Heap
	visited map[git.Oid]struct{}
}

// NewTracer prepares a trace of path starting at start, or at HEAD when start
// is nil. Failing to resolve the start commit aborts the call.
func NewTracer(store git.Store, path string, start *git.Oid) (*Tracer, error) {
	path = git.CleanPath(path)
	if path == "" {
		return nil, &git.RepositoryError{Kind: git.KindNotFound, Op: "trace", Err: errors.New("empty path")}
	}
	var id git.Oid
	if start != nil {
		id = *start
	} else {
		ref, err := store.Head()
		if err != nil {
			return nil, err
		}
		id = ref.Oid
	}
	c, err := store.Commit(id)
	if err != nil {
		return nil, err
	}
	t := &Tracer{
		store:   store,
		path:    path,
		heads:   binaryheap.NewWith(newestFirst),
		visited: map[git.Oid]struct{}{},
	}
	t.heads.Push(head{path: path, oid: c.ID, priority: c.Time})
	return t, nil
}

// FileHistory traces path from start, or from HEAD when start is nil.
func FileHistory(store git.Store, path string, start *git.Oid) (*Tracer, error) {
	return NewTracer(store, path, start)
}

func (t *Tracer) Path() string {
	return t.path
}

// Next returns the next commit that changed the path, or io.EOF. Commits
// that cannot be read are logged and their branch of the walk is dropped.
func (t *Tracer) Next() (git.Oid, error) {
	for {
		v, ok := t.heads.Pop()
		if !ok {
			return git.ZeroOid, io.EOF
		}
		h := v.(head)
		if _, seen := t.visited[h.oid]; seen {
			continue
		}
		t.visited[h.oid] = struct{}{}

		c, err := t.store.Commit(h.oid)
		if err != nil {
			t.skip(h, "read commit", err)
			continue
		}
		entry, ok, err := t.store.TreeEntry(c.ID, h.path)
		if err != nil {
			t.skip(h, "read tree", err)
			continue
		}
		if !ok {
			continue
		}

		switch len(c.Parents) {
		case 0:
			return c.ID, nil
		case 1:
			changed, err := t.advance(h, c.Parents[0], entry)
			if err != nil {
				t.skip(h, "read parent", err)
				return c.ID, nil
			}
			if changed {
				return c.ID, nil
			}
		default:
			for _, parent := range c.Parents {
				p, err := t.store.Commit(parent)
				if err != nil {
					t.skip(head{path: h.path, oid: parent}, "read merge parent", err)
					continue
				}
				t.heads.Push(head{path: h.path, oid: p.ID, priority: p.Time})
			}
		}
	}
}

// advance compares the entry of h with its only parent, pushing the parent
// when it still holds the path. It reports whether h changed the path.
func (t *Tracer) advance(h head, parent git.Oid, entry git.Oid) (bool, error) {
	p, err := t.store.Commit(parent)
	if err != nil {
		return true, err
	}
	parentEntry, ok, err := t.store.TreeEntry(p.ID, h.path)
	if err != nil {
		return true, err
	}
	if !ok {
		return true, nil
	}
	t.heads.Push(head{path: h.path, oid: p.ID, priority: p.Time})
	return parentEntry != entry, nil
}

func (t *Tracer) skip(h head, op string, err error) {
	slog.Warn("skipping commit in file history",
		slog.String("op", op),
		slog.String("commit", h.oid.String()),
		slog.String("path", h.path),
		slog.Any("error", err),
	)
}

// All adapts the tracer to a range-over-func sequence.
func (t *Tracer) All() iter.Seq[git.Oid] {
	return func(yield func(git.Oid) bool) {
		for {
			id, err := t.Next()
			if err != nil {
				return
			}
			if !yield(id) {
				return
			}
		}
	}
}

// Collect drains the tracer.
func (t *Tracer) Collect() ([]git.Oid, error) {
	var out []git.Oid
	for {
		id, err := t.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("trace %s: %w", t.path, err)
		}
		out = append(out, id)
	}
}

func newestFirst(a, b any) int {
	ha, hb := a.(head), b.(head)
	switch {
	case ha.priority > hb.priority:
		return -1
	case ha.priority < hb.priority:
		return 1
	}
	return ha.oid.Compare(hb.oid)
}
