package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/thiagokokada/gitlane/internal/git"
	"github.com/thiagokokada/gitlane/internal/git/gittest"
)

type fixture struct {
	dir           string
	a, b, c, merge git.Oid
}

// newFixture builds master: A -> C -> M and feature: A -> B, with M merging
// feature into master.
func newFixture(t *testing.T) fixture {
	t.Helper()
	cfgDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgDir)
	t.Setenv("HOME", cfgDir)

	dir := t.TempDir()
	r := gittest.NewDiskRepo(t, dir)
	a := r.Commit("add a", 1000, map[string]string{"a.txt": "1\n"})
	r.Branch("feature")
	b := r.Commit("add b", 2000, map[string]string{"b.txt": "b\n"})
	r.Checkout("master")
	c := r.Commit("change a", 3000, map[string]string{"a.txt": "2\n"})
	m := r.Merge("merge feature", 4000, "feature")
	r.Tag("v1", true, 4100)
	return fixture{dir: dir, a: a, b: b, c: c, merge: m}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

// indexOf returns the index of the first line containing id's short form.
func indexOf(ls []string, id git.Oid) int {
	for i, l := range ls {
		if strings.Contains(l, id.Short()) {
			return i
		}
	}
	return -1
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd(&options{})
	if root.Use != "gitlane" {
		t.Fatalf("Use = %q, want gitlane", root.Use)
	}
	want := map[string]bool{"graph": false, "history": false, "refs": false, "version": false}
	for _, sub := range root.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("subcommand %s not registered", name)
		}
	}
}

func TestGraph_Text(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "graph", "-C", f.dir, "--color=false")
	if err != nil {
		t.Fatalf("graph error = %v", err)
	}
	ls := lines(out)
	order := []git.Oid{f.merge, f.c, f.b, f.a}
	prev := -1
	for _, id := range order {
		i := indexOf(ls, id)
		if i <= prev {
			t.Fatalf("commit %s out of order in:\n%s", id.Short(), out)
		}
		prev = i
	}
	mergeLine := ls[indexOf(ls, f.merge)]
	if !strings.HasPrefix(mergeLine, "*") || !strings.Contains(mergeLine, "(HEAD -> master, tag: v1)") {
		t.Fatalf("merge line = %q", mergeLine)
	}
	if line := ls[indexOf(ls, f.b)]; !strings.HasPrefix(line, "| *") || !strings.Contains(line, "(feature)") {
		t.Fatalf("feature line = %q", line)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatal("color codes with --color=false")
	}
}

type graphEvent struct {
	Channel string `json:"channel"`
	Seq     int    `json:"seq"`
	Payload struct {
		Commit struct {
			ID string `json:"id"`
		} `json:"commit"`
		Position int `json:"position"`
		Paths    []struct {
			Type string `json:"type"`
			Lane int    `json:"lane"`
		} `json:"paths"`
	} `json:"payload"`
}

func decodeEvents(t *testing.T, out string) []graphEvent {
	t.Helper()
	var events []graphEvent
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var ev graphEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("decode %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestGraph_JSON(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "graph", "-C", f.dir, "--format", "json")
	if err != nil {
		t.Fatalf("graph error = %v", err)
	}
	events := decodeEvents(t, out)
	want := []git.Oid{f.merge, f.c, f.b, f.a}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if !strings.HasPrefix(ev.Channel, "get_commits-stream-") || ev.Channel != events[0].Channel {
			t.Fatalf("event %d channel = %q", i, ev.Channel)
		}
		if ev.Seq != i {
			t.Fatalf("event %d seq = %d", i, ev.Seq)
		}
		if ev.Payload.Commit.ID != want[i].String() {
			t.Fatalf("event %d commit = %s, want %s", i, ev.Payload.Commit.ID, want[i])
		}
	}
	if pos := events[2].Payload.Position; pos != 1 {
		t.Fatalf("feature commit position = %d, want 1", pos)
	}
	if paths := events[0].Payload.Paths; len(paths) != 2 || paths[0].Type != "parent" || paths[1].Lane != 1 {
		t.Fatalf("merge paths = %+v", paths)
	}
}

func TestGraph_Limit(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "graph", "-C", f.dir, "--format", "json", "--limit", "2")
	if err != nil {
		t.Fatalf("graph error = %v", err)
	}
	if events := decodeEvents(t, out); len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
}

func TestGraph_NotARepository(t *testing.T) {
	newFixture(t)

	_, err := execute(t, "graph", "-C", t.TempDir())
	if !errors.Is(err, git.ErrNotFound) {
		t.Fatalf("graph error = %v, want ErrNotFound", err)
	}
}

func TestHistory_Text(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "history", "-C", f.dir, "--color=false", "a.txt")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	ls := lines(out)
	if len(ls) != 2 {
		t.Fatalf("history output:\n%s", out)
	}
	if !strings.HasPrefix(ls[0], f.c.Short()) || !strings.HasPrefix(ls[1], f.a.Short()) {
		t.Fatalf("history output:\n%s", out)
	}
	if strings.Contains(out, f.merge.Short()) {
		t.Fatal("merge commit listed")
	}
}

func TestHistory_Patch(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "history", "-C", f.dir, "--color=false", "--patch", "--limit", "1", "a.txt")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	for _, want := range []string{"--- a/a.txt", "+++ b/a.txt", "-1", "+2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("patch output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, f.a.Short()) {
		t.Fatal("--limit 1 printed a second entry")
	}
}

func TestHistory_PatchDirectory(t *testing.T) {
	newFixture(t)
	dir := t.TempDir()
	r := gittest.NewDiskRepo(t, dir)
	first := r.Commit("add d", 1000, map[string]string{"d/a.txt": "1\n", "d/b.txt": "b\n"})
	second := r.Commit("change d", 2000, map[string]string{"d/a.txt": "2\n"})

	out, err := execute(t, "history", "-C", dir, "--color=false", "--patch", "d")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	for _, want := range []string{"--- a/d/a.txt", "+++ b/d/a.txt", "-1", "+2", "--- /dev/null", "+++ b/d/b.txt", "+b"} {
		if !strings.Contains(out, want) {
			t.Fatalf("patch output missing %q:\n%s", want, out)
		}
	}
	if i, j := strings.Index(out, second.Short()), strings.Index(out, first.Short()); i < 0 || j < i {
		t.Fatalf("history output:\n%s", out)
	}
}

func TestHistory_GlobFromStart(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "history", "-C", f.dir, "--color=false", "--start", "feature", "*.txt")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	ls := lines(out)
	want := []string{"==> a.txt <==", f.a.Short(), "==> b.txt <==", f.b.Short()}
	if len(ls) != len(want) {
		t.Fatalf("history output:\n%s", out)
	}
	for i, w := range want {
		if !strings.HasPrefix(ls[i], w) {
			t.Fatalf("line %d = %q, want prefix %q", i, ls[i], w)
		}
	}
}

func TestHistory_JSON(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "history", "-C", f.dir, "--format=json", "a.txt")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	var ids []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var entry struct {
			Path   string `json:"path"`
			Commit struct {
				ID string `json:"id"`
			} `json:"commit"`
		}
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("decode %q: %v", sc.Text(), err)
		}
		if entry.Path != "a.txt" {
			t.Fatalf("path = %q", entry.Path)
		}
		ids = append(ids, entry.Commit.ID)
	}
	if len(ids) != 2 || ids[0] != f.c.String() || ids[1] != f.a.String() {
		t.Fatalf("history ids = %v", ids)
	}
}

func TestHistory_Errors(t *testing.T) {
	f := newFixture(t)

	tests := map[string][]string{
		"no path":        {"history", "-C", f.dir},
		"unmatched glob": {"history", "-C", f.dir, "*.go"},
		"bad start":      {"history", "-C", f.dir, "--start", "nope", "a.txt"},
		"bad format":     {"history", "-C", f.dir, "--format", "xml", "a.txt"},
	}
	for name, args := range tests {
		if _, err := execute(t, args...); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestRefs(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "refs", "-C", f.dir, "--color=false")
	if err != nil {
		t.Fatalf("refs error = %v", err)
	}
	want := []string{
		f.merge.Short() + " head   master",
		f.b.Short() + " branch feature",
		f.merge.Short() + " branch master",
		f.merge.Short() + " tag    v1",
	}
	if got := lines(out); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("refs output:\n%s\nwant:\n%s", out, strings.Join(want, "\n"))
	}

	out, err = execute(t, "refs", "-C", f.dir, "--format", "json")
	if err != nil {
		t.Fatalf("refs error = %v", err)
	}
	var refs []struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(out), &refs); err != nil {
		t.Fatalf("decode refs: %v", err)
	}
	if len(refs) != 4 || refs[0].Kind != "head" || refs[3].Name != "v1" || refs[3].ID != f.merge.String() {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestVersion(t *testing.T) {
	newFixture(t)

	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatal("empty version")
	}
}
