package git

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 4096

// Repository is the go-git backed Store.
type Repository struct {
	repo *gitlib.Repository
	path string

	commits *lru.Cache[Oid, *object.Commit]
	entries *lru.Cache[entryKey, entryResult]
}

type entryKey struct {
	commit Oid
	path   string
}

type entryResult struct {
	id Oid
	ok bool
}

var _ Store = (*Repository)(nil)

// Open opens the repository containing repoPath. cacheSize bounds the number
// of decoded commits and tree lookups kept in memory; values <= 0 use
// DefaultCacheSize.
func Open(repoPath string, cacheSize int) (*Repository, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, wrapError("open repository", err)
	}
	r := FromRepository(repo, cacheSize)
	r.path = abs
	return r, nil
}

// FromRepository wraps an already opened go-git repository, e.g. one backed
// by in-memory storage.
func FromRepository(repo *gitlib.Repository, cacheSize int) *Repository {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	// lru.New only fails for non-positive sizes.
	commits, _ := lru.New[Oid, *object.Commit](cacheSize)
	entries, _ := lru.New[entryKey, entryResult](cacheSize)
	return &Repository{repo: repo, commits: commits, entries: entries}
}

func (r *Repository) Path() string {
	return r.path
}

// Root returns the working tree root, falling back to Path for bare
// repositories.
func (r *Repository) Root() string {
	wt, err := r.repo.Worktree()
	if err != nil || wt.Filesystem == nil {
		return r.path
	}
	return wt.Filesystem.Root()
}

func (r *Repository) Head() (Ref, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Ref{}, wrapError("resolve HEAD", err)
	}
	name := "HEAD"
	if ref.Name().IsBranch() {
		name = ref.Name().Short()
	}
	return Ref{Oid: Oid(ref.Hash()), Kind: RefKindHead, Name: name}, nil
}

func (r *Repository) References() ([]Ref, error) {
	iter, err := r.repo.References()
	if err != nil {
		return nil, wrapError("list references", err)
	}
	defer iter.Close()

	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		short := name.Short()
		switch {
		case name.IsBranch():
			refs = append(refs, Ref{Oid: Oid(ref.Hash()), Kind: RefKindBranch, Name: short})
		case name.IsRemote():
			if strings.HasSuffix(short, "/HEAD") {
				return nil
			}
			refs = append(refs, Ref{Oid: Oid(ref.Hash()), Kind: RefKindRemoteBranch, Name: short})
		case name.IsTag():
			peeled, ok := r.peelTagCommitHash(ref.Hash())
			if !ok {
				slog.Debug("skipping tag not pointing at a commit", slog.String("tag", short))
				return nil
			}
			refs = append(refs, Ref{Oid: Oid(peeled), Kind: RefKindTag, Name: short})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError("list references", err)
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].Name < refs[j].Name
	})
	return refs, nil
}

func (r *Repository) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	// Lightweight tags point directly at a commit; annotated tags point at a tag object.
	if _, err := r.commitObject(Oid(hash)); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := r.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}

// Resolve turns a revision such as "main", "v1.0", "HEAD~2" or a (possibly
// abbreviated) hash into a commit id.
func (r *Repository) Resolve(rev string) (Oid, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return ZeroOid, notFound("resolve revision", errors.New("empty revision"))
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return ZeroOid, wrapError(fmt.Sprintf("resolve %s", rev), err)
	}
	return Oid(*hash), nil
}

func (r *Repository) commitObject(id Oid) (*object.Commit, error) {
	if c, ok := r.commits.Get(id); ok {
		return c, nil
	}
	c, err := r.repo.CommitObject(plumbing.Hash(id))
	if err != nil {
		return nil, err
	}
	r.commits.Add(id, c)
	return c, nil
}

func (r *Repository) Commit(id Oid) (*CommitInfo, error) {
	c, err := r.commitObject(id)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("read commit %s", id), err)
	}
	return newCommitInfo(c), nil
}

func (r *Repository) TreeEntry(commit Oid, path string) (Oid, bool, error) {
	path = CleanPath(path)
	if path == "" {
		return ZeroOid, false, nil
	}
	key := entryKey{commit: commit, path: path}
	if res, ok := r.entries.Get(key); ok {
		return res.id, res.ok, nil
	}
	tree, err := r.commitTree(commit)
	if err != nil {
		return ZeroOid, false, err
	}
	res, err := r.findEntry(tree, path)
	if err != nil {
		return ZeroOid, false, wrapError(fmt.Sprintf("find %s in %s", path, commit), err)
	}
	r.entries.Add(key, res)
	return res.id, res.ok, nil
}

// findEntry walks path one component at a time. A component that is missing,
// or a file where a directory is needed, leaves the path absent.
func (r *Repository) findEntry(tree *object.Tree, path string) (entryResult, error) {
	parts := strings.Split(path, "/")
	for i, name := range parts {
		entry := treeEntry(tree, name)
		if entry == nil {
			return entryResult{}, nil
		}
		if i == len(parts)-1 {
			return entryResult{id: Oid(entry.Hash), ok: true}, nil
		}
		if entry.Mode != filemode.Dir {
			return entryResult{}, nil
		}
		sub, err := r.repo.TreeObject(entry.Hash)
		if err != nil {
			return entryResult{}, err
		}
		tree = sub
	}
	return entryResult{}, nil
}

func treeEntry(tree *object.Tree, name string) *object.TreeEntry {
	for i := range tree.Entries {
		if tree.Entries[i].Name == name {
			return &tree.Entries[i]
		}
	}
	return nil
}

func (r *Repository) commitTree(commit Oid) (*object.Tree, error) {
	c, err := r.commitObject(commit)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("read commit %s", commit), err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, wrapError(fmt.Sprintf("read tree of %s", commit), err)
	}
	return tree, nil
}

func (r *Repository) Blob(id Oid) ([]byte, error) {
	blob, err := r.repo.BlobObject(plumbing.Hash(id))
	if err != nil {
		return nil, wrapError(fmt.Sprintf("read blob %s", id), err)
	}
	rd, err := blob.Reader()
	if err != nil {
		return nil, wrapError(fmt.Sprintf("read blob %s", id), err)
	}
	defer rd.Close()
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("read blob %s", id), err)
	}
	return data, nil
}

func (r *Repository) Paths(commit Oid) ([]string, error) {
	tree, err := r.commitTree(commit)
	if err != nil {
		return nil, err
	}
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	var paths []string
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapError(fmt.Sprintf("list files of %s", commit), err)
		}
		if entry.Mode == filemode.Dir || entry.Mode == filemode.Submodule {
			continue
		}
		paths = append(paths, name)
	}
	sort.Strings(paths)
	return paths, nil
}

func newCommitInfo(c *object.Commit) *CommitInfo {
	parents := make([]Oid, len(c.ParentHashes))
	for i, h := range c.ParentHashes {
		parents[i] = Oid(h)
	}
	committer := c.Committer
	if committer.Name == "" && committer.Email == "" && committer.When.IsZero() {
		committer = c.Author
	}
	summary, body := splitMessage(c.Message)
	return &CommitInfo{
		ID:        Oid(c.Hash),
		Parents:   parents,
		Author:    Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer: Signature{Name: committer.Name, Email: committer.Email, When: committer.When},
		Time:      committer.When.Unix(),
		Summary:   summary,
		Body:      body,
	}
}
