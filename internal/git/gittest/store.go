// Package gittest provides an in-memory git.Store for tests.
package gittest

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/thiagokokada/gitlane/internal/git"
)

// Store is a fake object store where commits are addressed by name. Every
// commit carries a full snapshot of its files.
type Store struct {
	commits map[git.Oid]*commit
	blobs   map[git.Oid][]byte
	head    *git.Ref
	refs    []git.Ref
	broken  map[git.Oid]error

	// Calls counts Commit lookups, for tests asserting laziness.
	Calls int
}

type commit struct {
	info  *git.CommitInfo
	files map[string]git.Oid
}

var _ git.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		commits: map[git.Oid]*commit{},
		blobs:   map[git.Oid][]byte{},
		broken:  map[git.Oid]error{},
	}
}

// ID returns the deterministic id of the commit called name.
func ID(name string) git.Oid {
	return git.Oid(sha1.Sum([]byte("commit " + name)))
}

func blobID(content string) git.Oid {
	return git.Oid(sha1.Sum([]byte("blob " + content)))
}

// Add records a commit named name with committer time when (unix seconds),
// the given parent names and a full snapshot of file contents.
func (s *Store) Add(name string, when int64, parents []string, files map[string]string) git.Oid {
	id := ID(name)
	ps := make([]git.Oid, len(parents))
	for i, p := range parents {
		ps[i] = ID(p)
	}
	snapshot := make(map[string]git.Oid, len(files))
	for path, content := range files {
		b := blobID(content)
		s.blobs[b] = []byte(content)
		snapshot[git.CleanPath(path)] = b
	}
	sig := git.Signature{Name: "Tester", Email: "tester@example.com", When: time.Unix(when, 0).UTC()}
	s.commits[id] = &commit{
		info: &git.CommitInfo{
			ID:        id,
			Parents:   ps,
			Author:    sig,
			Committer: sig,
			Time:      when,
			Summary:   name,
		},
		files: snapshot,
	}
	return id
}

// Info returns the recorded commit called name.
func (s *Store) Info(name string) *git.CommitInfo {
	c, ok := s.commits[ID(name)]
	if !ok {
		panic(fmt.Sprintf("gittest: unknown commit %q", name))
	}
	return c.info
}

// SetHead points HEAD at commit; branch is the checked out branch name or ""
// for a detached HEAD.
func (s *Store) SetHead(branch string, commit string) {
	name := branch
	if name == "" {
		name = "HEAD"
	}
	s.head = &git.Ref{Oid: ID(commit), Kind: git.RefKindHead, Name: name}
}

func (s *Store) AddRef(kind git.RefKind, name string, commit string) {
	s.refs = append(s.refs, git.Ref{Oid: ID(commit), Kind: kind, Name: name})
}

// AddRawRef adds a ref pointing at an arbitrary id, e.g. a missing object.
func (s *Store) AddRawRef(kind git.RefKind, name string, id git.Oid) {
	s.refs = append(s.refs, git.Ref{Oid: id, Kind: kind, Name: name})
}

// Break makes reads of commit fail with err.
func (s *Store) Break(commit string, err error) {
	s.broken[ID(commit)] = err
}

func (s *Store) Head() (git.Ref, error) {
	if s.head == nil {
		return git.Ref{}, &git.RepositoryError{Kind: git.KindNotFound, Op: "resolve HEAD", Err: errors.New("reference not found")}
	}
	return *s.head, nil
}

func (s *Store) References() ([]git.Ref, error) {
	return append([]git.Ref(nil), s.refs...), nil
}

func (s *Store) lookup(id git.Oid) (*commit, error) {
	if err, ok := s.broken[id]; ok {
		return nil, err
	}
	c, ok := s.commits[id]
	if !ok {
		return nil, &git.RepositoryError{Kind: git.KindNotFound, Op: "read commit " + id.String(), Err: errors.New("object not found")}
	}
	return c, nil
}

func (s *Store) Commit(id git.Oid) (*git.CommitInfo, error) {
	s.Calls++
	c, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return c.info, nil
}

func (s *Store) TreeEntry(commit git.Oid, path string) (git.Oid, bool, error) {
	c, err := s.lookup(commit)
	if err != nil {
		return git.ZeroOid, false, err
	}
	id, ok := c.files[git.CleanPath(path)]
	return id, ok, nil
}

func (s *Store) Blob(id git.Oid) ([]byte, error) {
	b, ok := s.blobs[id]
	if !ok {
		return nil, &git.RepositoryError{Kind: git.KindNotFound, Op: "read blob " + id.String(), Err: errors.New("object not found")}
	}
	return b, nil
}

func (s *Store) Paths(commit git.Oid) ([]string, error) {
	c, err := s.lookup(commit)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(c.files))
	for p := range c.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
