package history

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/thiagokokada/gitlane/internal/git"
)

// IsPattern reports whether p holds glob metacharacters.
func IsPattern(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// Expand resolves pattern against the tree of start (HEAD when nil). A plain
// path is returned as is, without checking that it exists; a glob such as
// "internal/**/*.go" is matched against every file of the tree.
func Expand(store git.Store, start *git.Oid, pattern string) ([]string, error) {
	pattern = git.CleanPath(pattern)
	if !IsPattern(pattern) {
		if pattern == "" {
			return nil, nil
		}
		return []string{pattern}, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
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
	paths, err := store.Paths(id)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range paths {
		// The pattern is validated above, so Match cannot fail.
		if ok, _ := doublestar.Match(pattern, p); ok {
			out = append(out, p)
		}
	}
	return out, nil
}
