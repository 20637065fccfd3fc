package git

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// Oid identifies a commit, tree or blob in the object store.
type Oid plumbing.Hash

var ZeroOid Oid

// ParseOid parses a full hexadecimal object id.
func ParseOid(s string) (Oid, error) {
	s = strings.TrimSpace(s)
	var id Oid
	if len(s) != hex.EncodedLen(len(id)) {
		return ZeroOid, fmt.Errorf("invalid object id %q", s)
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return ZeroOid, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	return id, nil
}

func (o Oid) String() string {
	return plumbing.Hash(o).String()
}

// Short returns the abbreviated form used in listings.
func (o Oid) Short() string {
	return o.String()[:7]
}

func (o Oid) IsZero() bool {
	return o == ZeroOid
}

// Compare orders ids bytewise; it is the tie-break used wherever two commits
// would otherwise compare equal.
func (o Oid) Compare(other Oid) int {
	return bytes.Compare(o[:], other[:])
}

func (o Oid) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Oid) UnmarshalText(b []byte) error {
	id, err := ParseOid(string(b))
	if err != nil {
		return err
	}
	*o = id
	return nil
}

type Signature struct {
	Name  string    `json:"name" yaml:"name"`
	Email string    `json:"email" yaml:"email"`
	When  time.Time `json:"when" yaml:"when"`
}

// CommitInfo is an immutable snapshot of a commit read from the store.
type CommitInfo struct {
	ID        Oid       `json:"id" yaml:"id"`
	Parents   []Oid     `json:"parents" yaml:"parents"`
	Author    Signature `json:"author" yaml:"author"`
	Committer Signature `json:"committer" yaml:"committer"`
	// Time is the committer time in unix seconds.
	Time    int64  `json:"time" yaml:"time"`
	Summary string `json:"summary" yaml:"summary"`
	Body    string `json:"body,omitempty" yaml:"body,omitempty"`
}

func (c *CommitInfo) IsMerge() bool {
	return len(c.Parents) > 1
}

// splitMessage returns the first paragraph of message folded onto one line,
// and whatever follows it.
func splitMessage(message string) (summary string, body string) {
	message = strings.TrimLeft(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
	para, rest, _ := strings.Cut(message, "\n\n")
	lines := strings.Split(strings.TrimSpace(para), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, " "), strings.TrimSpace(rest)
}

// RefKind distinguishes HEAD, local branches, remote branches and tags.
type RefKind uint8

const (
	RefKindHead RefKind = iota
	RefKindBranch
	RefKindRemoteBranch
	RefKindTag
)

func (k RefKind) String() string {
	switch k {
	case RefKindHead:
		return "head"
	case RefKindBranch:
		return "branch"
	case RefKindRemoteBranch:
		return "remote"
	case RefKindTag:
		return "tag"
	default:
		return "unknown"
	}
}

func (k RefKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Ref is a starting point of a walk. Tags are already peeled to the commit
// they name.
type Ref struct {
	Oid  Oid     `json:"id" yaml:"id"`
	Kind RefKind `json:"kind" yaml:"kind"`
	Name string  `json:"name" yaml:"name"` // short name: main, origin/main, v1; HEAD when detached
}
