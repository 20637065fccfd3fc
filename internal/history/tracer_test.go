package history

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"github.com/thiagokokada/gitlane/internal/git"
	"github.com/thiagokokada/gitlane/internal/git/gittest"
)

func trace(t *testing.T, store *gittest.Store, path string, start *git.Oid) []git.Oid {
	t.Helper()
	tr, err := FileHistory(store, path, start)
	if err != nil {
		t.Fatalf("FileHistory(%q) error = %v", path, err)
	}
	got, err := tr.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return got
}

func ids(names ...string) []git.Oid {
	out := make([]git.Oid, len(names))
	for i, n := range names {
		out[i] = gittest.ID(n)
	}
	return out
}

func linearStore() *gittest.Store {
	store := gittest.New()
	store.Add("C1", 100, nil, map[string]string{"a.txt": "one", "b.txt": "x"})
	store.Add("C2", 200, []string{"C1"}, map[string]string{"a.txt": "one", "b.txt": "y"})
	store.Add("C3", 300, []string{"C2"}, map[string]string{"a.txt": "two", "b.txt": "y"})
	store.SetHead("main", "C3")
	return store
}

func TestFileHistory_SkipsCommitsNotTouchingPath(t *testing.T) {
	t.Parallel()

	got := trace(t, linearStore(), "a.txt", nil)
	if want := ids("C3", "C1"); !slices.Equal(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
}

func TestFileHistory_FromExplicitStart(t *testing.T) {
	t.Parallel()

	start := gittest.ID("C2")
	got := trace(t, linearStore(), "b.txt", &start)
	if want := ids("C2", "C1"); !slices.Equal(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
}

func TestFileHistory_Idempotent(t *testing.T) {
	t.Parallel()

	store := linearStore()
	first := trace(t, store, "a.txt", nil)
	second := trace(t, store, "a.txt", nil)
	if !slices.Equal(first, second) {
		t.Fatalf("traces differ: %v vs %v", first, second)
	}
}

func TestFileHistory_MergeIsPassThrough(t *testing.T) {
	t.Parallel()

	store := gittest.New()
	store.Add("B", 100, nil, map[string]string{"a.txt": "one"})
	store.Add("P1", 200, []string{"B"}, map[string]string{"a.txt": "one", "c.txt": "c"})
	store.Add("P2", 300, []string{"B"}, map[string]string{"a.txt": "one", "d.txt": "d"})
	store.Add("M", 400, []string{"P1", "P2"}, map[string]string{"a.txt": "one", "c.txt": "c", "d.txt": "d"})
	store.SetHead("main", "M")

	got := trace(t, store, "a.txt", nil)
	if want := ids("B"); !slices.Equal(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
}

func TestFileHistory_FollowsEveryMergeParent(t *testing.T) {
	t.Parallel()

	store := gittest.New()
	store.Add("B", 100, nil, map[string]string{"a.txt": "one"})
	store.Add("P1", 200, []string{"B"}, map[string]string{"a.txt": "two"})
	store.Add("P2", 300, []string{"B"}, map[string]string{"a.txt": "one", "d.txt": "d"})
	store.Add("M", 400, []string{"P1", "P2"}, map[string]string{"a.txt": "two", "d.txt": "d"})
	store.SetHead("main", "M")

	got := trace(t, store, "a.txt", nil)
	if want := ids("P1", "B"); !slices.Equal(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
}

func TestFileHistory_StopsWhereThePathAppears(t *testing.T) {
	t.Parallel()

	store := gittest.New()
	store.Add("C1", 100, nil, map[string]string{"b.txt": "x"})
	store.Add("C2", 200, []string{"C1"}, map[string]string{"a.txt": "one", "b.txt": "x"})
	store.Add("C3", 300, []string{"C2"}, map[string]string{"a.txt": "one", "b.txt": "y"})
	store.SetHead("main", "C3")

	got := trace(t, store, "a.txt", nil)
	if want := ids("C2"); !slices.Equal(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
}

func TestFileHistory_PathAbsentAtStart(t *testing.T) {
	t.Parallel()

	got := trace(t, linearStore(), "missing.txt", nil)
	if len(got) != 0 {
		t.Fatalf("history = %v, want empty", got)
	}
}

// Not parallel: it swaps the default logger.
func TestFileHistory_FileUsedAsDirectory(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := gittest.NewMemoryRepo(t)
	r.Commit("add a", 100, map[string]string{"a.txt": "one\n"})
	r.Commit("change a", 200, map[string]string{"a.txt": "two\n"})

	tr, err := FileHistory(r.Store(), "a.txt/x", nil)
	if err != nil {
		t.Fatalf("FileHistory() error = %v", err)
	}
	got, err := tr.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("history = %v, want empty", got)
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected log output:\n%s", logs.String())
	}
}

func TestFileHistory_NestedPath(t *testing.T) {
	t.Parallel()

	store := gittest.New()
	store.Add("C1", 100, nil, map[string]string{"src/lib/a.go": "one"})
	store.Add("C2", 200, []string{"C1"}, map[string]string{"src/lib/a.go": "two"})
	store.SetHead("main", "C2")

	got := trace(t, store, "./src/lib/a.go", nil)
	if want := ids("C2", "C1"); !slices.Equal(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
}

func TestFileHistory_StartErrors(t *testing.T) {
	t.Parallel()

	store := linearStore()
	missing := gittest.ID("nope")
	tests := []struct {
		name  string
		store *gittest.Store
		path  string
		start *git.Oid
	}{
		{name: "empty path", store: store, path: "", start: nil},
		{name: "unknown start", store: store, path: "a.txt", start: &missing},
		{name: "unborn HEAD", store: gittest.New(), path: "a.txt", start: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FileHistory(tt.store, tt.path, tt.start)
			if !errors.Is(err, git.ErrNotFound) {
				t.Fatalf("FileHistory() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestFileHistory_UnreadableParentEndsBranch(t *testing.T) {
	t.Parallel()

	store := linearStore()
	store.Break("C2", errors.New("inflate: corrupt input"))

	got := trace(t, store, "a.txt", nil)
	if want := ids("C3"); !slices.Equal(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
}

func TestFileHistory_StopsPullingEarly(t *testing.T) {
	t.Parallel()

	store := linearStore()
	tr, err := FileHistory(store, "a.txt", nil)
	if err != nil {
		t.Fatalf("FileHistory() error = %v", err)
	}
	for id := range tr.All() {
		if id != gittest.ID("C3") {
			t.Fatalf("first entry = %v, want C3", id)
		}
		break
	}
	calls := store.Calls
	if calls > 3 {
		t.Fatalf("Commit() called %d times before the first entry, want at most 3", calls)
	}
}

// genRepository draws a random history in which every commit is newer than
// its parents and holds one of a few versions of a.txt, or none.
func genRepository(t *rapid.T) (*gittest.Store, map[git.Oid]*git.CommitInfo) {
	store := gittest.New()
	n := rapid.IntRange(1, 25).Draw(t, "n")
	versions := []string{"", "one", "two"}
	for i := 0; i < n; i++ {
		var parents []string
		if i > 0 {
			count := rapid.IntRange(1, 2).Draw(t, fmt.Sprintf("parents%d", i))
			for k := 0; k < count; k++ {
				p := fmt.Sprint(rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("parent%d_%d", i, k)))
				if !slices.Contains(parents, p) {
					parents = append(parents, p)
				}
			}
		}
		files := map[string]string{"other": fmt.Sprint(i)}
		if v := rapid.SampledFrom(versions).Draw(t, fmt.Sprintf("version%d", i)); v != "" {
			files["a.txt"] = v
		}
		store.Add(fmt.Sprint(i), int64(100+i), parents, files)
	}
	store.SetHead("main", fmt.Sprint(n-1))
	infos := map[git.Oid]*git.CommitInfo{}
	for i := 0; i < n; i++ {
		c := store.Info(fmt.Sprint(i))
		infos[c.ID] = c
	}
	return store, infos
}

func TestFileHistory_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store, infos := genRepository(rt)

		tr, err := FileHistory(store, "a.txt", nil)
		if err != nil {
			rt.Fatalf("FileHistory() error = %v", err)
		}
		first, err := tr.Collect()
		if err != nil {
			rt.Fatalf("Collect() error = %v", err)
		}
		tr, err = FileHistory(store, "a.txt", nil)
		if err != nil {
			rt.Fatalf("FileHistory() error = %v", err)
		}
		second, _ := tr.Collect()
		if !slices.Equal(first, second) {
			rt.Fatalf("traces differ: %v vs %v", first, second)
		}

		seen := map[git.Oid]bool{}
		for i, id := range first {
			c := infos[id]
			if c.IsMerge() {
				rt.Fatalf("merge commit %s yielded", c.Summary)
			}
			if seen[id] {
				rt.Fatalf("commit %s yielded twice", c.Summary)
			}
			seen[id] = true
			if i > 0 && infos[first[i-1]].Time < c.Time {
				rt.Fatalf("history not newest first: %v", first)
			}
		}
	})
}
