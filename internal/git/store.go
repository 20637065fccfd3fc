package git

import (
	"path"
	"strings"
)

// Store is the read-only view of a repository used by the walker and the
// tracer.
//
// The default implementation is backed by go-git (see Open). Implementations
// are not required to be safe for concurrent use: callers that run a layout
// and a trace at the same time open one store per goroutine.
type Store interface {
	// Head resolves HEAD. Name is the checked out branch, or "HEAD" when
	// detached. An unborn HEAD is reported as ErrNotFound.
	Head() (Ref, error)
	// References lists local branches, remote branches and tags, tags peeled
	// to commits.
	References() ([]Ref, error)
	Commit(id Oid) (*CommitInfo, error)
	// TreeEntry looks up path in the tree of commit. A missing path is not an
	// error: ok is false.
	TreeEntry(commit Oid, path string) (id Oid, ok bool, err error)
	Blob(id Oid) ([]byte, error)
	// Paths lists every file path in the tree of commit.
	Paths(commit Oid) ([]string, error)
}

// CleanPath normalizes a repository-relative path to the slash separated
// form stored in trees. It returns "" for the repository root.
func CleanPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return ""
	}
	p = strings.TrimLeft(path.Clean("/"+p), "/")
	return p
}
