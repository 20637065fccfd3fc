package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/thiagokokada/gitlane/internal/git"
)

const patchContext = 3

// Patch returns the unified diff of path between c and its first parent.
// Root commits and commits adding a file diff against an empty file. When
// path names a directory, every file under it that changed is diffed, in
// path order.
func Patch(store git.Store, c *git.CommitInfo, path string) (string, error) {
	path = git.CleanPath(path)
	var parent *git.Oid
	if len(c.Parents) > 0 {
		parent = &c.Parents[0]
	}
	files, err := filesUnder(store, c.ID, parent, path)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, file := range files {
		text, err := patchFile(store, c.ID, parent, file)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// filesUnder lists the files at or below path in commit and parent, without
// duplicates.
func filesUnder(store git.Store, commit git.Oid, parent *git.Oid, path string) ([]string, error) {
	under := func(p string) bool {
		return path == "" || p == path || strings.HasPrefix(p, path+"/")
	}
	seen := map[string]bool{}
	var files []string
	collect := func(id git.Oid) error {
		paths, err := store.Paths(id)
		if err != nil {
			return err
		}
		for _, p := range paths {
			if under(p) && !seen[p] {
				seen[p] = true
				files = append(files, p)
			}
		}
		return nil
	}
	if err := collect(commit); err != nil {
		return nil, err
	}
	if parent != nil {
		if err := collect(*parent); err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func patchFile(store git.Store, commit git.Oid, parent *git.Oid, path string) (string, error) {
	newID, inNew, err := store.TreeEntry(commit, path)
	if err != nil {
		return "", err
	}
	var oldID git.Oid
	inOld := false
	if parent != nil {
		if oldID, inOld, err = store.TreeEntry(*parent, path); err != nil {
			return "", err
		}
	}
	if inNew == inOld && newID == oldID {
		return "", nil
	}
	newer, err := blob(store, newID, inNew)
	if err != nil {
		return "", err
	}
	older, err := blob(store, oldID, inOld)
	if err != nil {
		return "", err
	}

	from, to := "a/"+path, "b/"+path
	if !inOld {
		from = "/dev/null"
	}
	if !inNew {
		to = "/dev/null"
	}
	if isBinary(older) || isBinary(newer) {
		if bytes.Equal(older, newer) {
			return "", nil
		}
		return fmt.Sprintf("Binary files %s and %s differ\n", from, to), nil
	}
	diff := difflib.UnifiedDiff{
		A:        splitLines(older),
		B:        splitLines(newer),
		FromFile: from,
		ToFile:   to,
		Context:  patchContext,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", path, err)
	}
	return text, nil
}

func blob(store git.Store, id git.Oid, ok bool) ([]byte, error) {
	if !ok {
		return nil, nil
	}
	return store.Blob(id)
}

// splitLines keeps line terminators, without the phantom empty line difflib
// adds after a final newline.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	lines := difflib.SplitLines(s)
	if strings.HasSuffix(s, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func isBinary(data []byte) bool {
	const sniff = 8000
	if len(data) > sniff {
		data = data[:sniff]
	}
	return bytes.IndexByte(data, 0) >= 0
}
