package git

import (
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// RevWalk yields every commit reachable from a set of starting refs in
// topological order: a commit is only emitted once all of its children in
// the walk have been. Among commits that are ready at the same time the one
// with the newest committer time goes first, then the lowest id.
//
// The ancestry is read eagerly when the walk is created, since the order
// cannot be known before every child of a commit has been seen. Emission is
// pull based.
type RevWalk struct {
	commits map[Oid]*CommitInfo
	// pending counts the children of a commit that have not been emitted yet.
	pending map[Oid]int
	ready   *binaryheap.Heap

	skipped int
}

// Walk starts a fresh walk from starts. It fails when a starting ref does not
// resolve to a readable commit; commits that cannot be read further down the
// ancestry are skipped with a warning.
func Walk(store Store, starts []Ref) (*RevWalk, error) {
	w := &RevWalk{
		commits: make(map[Oid]*CommitInfo),
		pending: make(map[Oid]int),
		ready:   binaryheap.NewWith(newestFirst),
	}
	queue := make([]Oid, 0, len(starts))
	for _, ref := range starts {
		if _, ok := w.commits[ref.Oid]; ok {
			continue
		}
		c, err := store.Commit(ref.Oid)
		if err != nil {
			return nil, wrapError(fmt.Sprintf("resolve %s %s", ref.Kind, ref.Name), err)
		}
		w.commits[c.ID] = c
		queue = append(queue, c.ID)
	}

	unreadable := map[Oid]struct{}{}
	for i := 0; i < len(queue); i++ {
		for _, parent := range w.commits[queue[i]].Parents {
			if _, ok := w.commits[parent]; ok {
				continue
			}
			if _, ok := unreadable[parent]; ok {
				continue
			}
			c, err := store.Commit(parent)
			if err != nil {
				slog.Warn("skipping unreadable commit",
					slog.String("commit", parent.String()),
					slog.Any("error", err),
				)
				unreadable[parent] = struct{}{}
				w.skipped++
				continue
			}
			w.commits[c.ID] = c
			queue = append(queue, c.ID)
		}
	}

	for _, c := range w.commits {
		for _, parent := range uniqueParents(c.Parents) {
			if _, ok := w.commits[parent]; ok {
				w.pending[parent]++
			}
		}
	}
	for id, c := range w.commits {
		if w.pending[id] == 0 {
			w.ready.Push(c)
		}
	}
	slog.Debug("revision walk prepared",
		slog.Int("starts", len(starts)),
		slog.Int("commits", len(w.commits)),
		slog.Int("skipped", w.skipped),
	)
	return w, nil
}

// Next returns the next commit, or io.EOF once the walk is exhausted.
func (w *RevWalk) Next() (*CommitInfo, error) {
	v, ok := w.ready.Pop()
	if !ok {
		return nil, io.EOF
	}
	c := v.(*CommitInfo)
	for _, parent := range uniqueParents(c.Parents) {
		n, ok := w.pending[parent]
		if !ok {
			continue
		}
		if n > 1 {
			w.pending[parent] = n - 1
			continue
		}
		delete(w.pending, parent)
		w.ready.Push(w.commits[parent])
	}
	delete(w.commits, c.ID)
	return c, nil
}

// All adapts the walk to a range-over-func sequence.
func (w *RevWalk) All() iter.Seq[*CommitInfo] {
	return func(yield func(*CommitInfo) bool) {
		for {
			c, err := w.Next()
			if err != nil {
				return
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Skipped reports how many unreadable commits were left out of the walk.
func (w *RevWalk) Skipped() int {
	return w.skipped
}

func newestFirst(a, b any) int {
	ca, cb := a.(*CommitInfo), b.(*CommitInfo)
	switch {
	case ca.Time > cb.Time:
		return -1
	case ca.Time < cb.Time:
		return 1
	}
	return ca.ID.Compare(cb.ID)
}

func uniqueParents(parents []Oid) []Oid {
	if len(parents) < 2 {
		return parents
	}
	out := make([]Oid, 0, len(parents))
	for _, p := range parents {
		dup := false
		for _, seen := range out {
			if seen == p {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}
