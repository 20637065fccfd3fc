package gittest

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/thiagokokada/gitlane/internal/git"
)

// Repo builds real repositories through go-git, either in memory or in a
// directory on disk. Every helper fails the test on error.
type Repo struct {
	Repo *gitlib.Repository

	t  testing.TB
	wt *gitlib.Worktree
	fs billy.Filesystem
}

// NewMemoryRepo returns an empty repository backed by memory storage.
func NewMemoryRepo(t testing.TB) *Repo {
	t.Helper()
	fs := memfs.New()
	repo, err := gitlib.Init(memory.NewStorage(), fs)
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	return newRepo(t, repo)
}

// NewDiskRepo initializes a repository with a work tree in dir.
func NewDiskRepo(t testing.TB, dir string) *Repo {
	t.Helper()
	repo, err := gitlib.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	return newRepo(t, repo)
}

func newRepo(t testing.TB, repo *gitlib.Repository) *Repo {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	return &Repo{Repo: repo, t: t, wt: wt, fs: wt.Filesystem}
}

// Store wraps the repository in a git.Repository.
func (r *Repo) Store() *git.Repository {
	return git.FromRepository(r.Repo, 0)
}

func signature(when int64) *object.Signature {
	return &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Unix(when, 0).UTC()}
}

// Commit writes files into the work tree and commits everything staged at
// when (unix seconds).
func (r *Repo) Commit(message string, when int64, files map[string]string) git.Oid {
	r.t.Helper()
	for path, content := range files {
		if err := util.WriteFile(r.fs, path, []byte(content), 0o644); err != nil {
			r.t.Fatalf("write %s: %v", path, err)
		}
		if _, err := r.wt.Add(path); err != nil {
			r.t.Fatalf("add %s: %v", path, err)
		}
	}
	return r.commit(message, when, nil)
}

// Remove deletes path from the work tree and the index; the removal lands
// with the next Commit.
func (r *Repo) Remove(path string) {
	r.t.Helper()
	if _, err := r.wt.Remove(path); err != nil {
		r.t.Fatalf("remove %s: %v", path, err)
	}
}

// Merge records a merge of branch into the current branch, keeping the
// current tree.
func (r *Repo) Merge(message string, when int64, branch string) git.Oid {
	r.t.Helper()
	head, err := r.Repo.Head()
	if err != nil {
		r.t.Fatalf("resolve HEAD: %v", err)
	}
	other, err := r.Repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		r.t.Fatalf("resolve %s: %v", branch, err)
	}
	return r.commit(message, when, []plumbing.Hash{head.Hash(), other.Hash()})
}

func (r *Repo) commit(message string, when int64, parents []plumbing.Hash) git.Oid {
	r.t.Helper()
	hash, err := r.wt.Commit(message, &gitlib.CommitOptions{
		Author:            signature(when),
		Parents:           parents,
		AllowEmptyCommits: true,
	})
	if err != nil {
		r.t.Fatalf("commit %q: %v", message, err)
	}
	return git.Oid(hash)
}

// Branch creates name at HEAD and checks it out.
func (r *Repo) Branch(name string) {
	r.t.Helper()
	err := r.wt.Checkout(&gitlib.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name), Create: true})
	if err != nil {
		r.t.Fatalf("create branch %s: %v", name, err)
	}
}

// Checkout switches to an existing branch.
func (r *Repo) Checkout(name string) {
	r.t.Helper()
	if err := r.wt.Checkout(&gitlib.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)}); err != nil {
		r.t.Fatalf("checkout %s: %v", name, err)
	}
}

// Detach checks out id without a branch.
func (r *Repo) Detach(id git.Oid) {
	r.t.Helper()
	if err := r.wt.Checkout(&gitlib.CheckoutOptions{Hash: plumbing.Hash(id)}); err != nil {
		r.t.Fatalf("checkout %s: %v", id, err)
	}
}

// Tag tags HEAD; annotated tags get a tag object.
func (r *Repo) Tag(name string, annotated bool, when int64) {
	r.t.Helper()
	head, err := r.Repo.Head()
	if err != nil {
		r.t.Fatalf("resolve HEAD: %v", err)
	}
	var opts *gitlib.CreateTagOptions
	if annotated {
		opts = &gitlib.CreateTagOptions{Tagger: signature(when), Message: "release " + name}
	}
	if _, err := r.Repo.CreateTag(name, head.Hash(), opts); err != nil {
		r.t.Fatalf("tag %s: %v", name, err)
	}
}

// RemoteBranch points refs/remotes/<remote>/<name> at id.
func (r *Repo) RemoteBranch(remote, name string, id git.Oid) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewRemoteReferenceName(remote, name), plumbing.Hash(id))
	if err := r.Repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("set %s: %v", ref.Name(), err)
	}
}
