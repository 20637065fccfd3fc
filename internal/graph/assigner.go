// Package graph assigns lanes and colors to a topologically ordered commit
// stream so that every row of a commit graph can be drawn independently.
package graph

import (
	"fmt"

	"github.com/thiagokokada/gitlane/internal/git"
)

// Color distinguishes concurrently active lanes. It is an abstract id; the
// mapping to a visible hue belongs to the renderer.
type Color int

// PathKind says how a path segment meets the row of its commit.
type PathKind uint8

const (
	// Base is a line arriving from above that converges into this row's commit.
	Base PathKind = iota
	// Parent is a line leaving the commit downwards towards one of its parents.
	Parent
	// Follow is a line passing straight through the row.
	Follow
)

func (k PathKind) String() string {
	switch k {
	case Base:
		return "base"
	case Parent:
		return "parent"
	case Follow:
		return "follow"
	default:
		return fmt.Sprintf("PathKind(%d)", uint8(k))
	}
}

func (k PathKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Path is one segment to draw in a commit's row.
type Path struct {
	Kind  PathKind `json:"type" yaml:"type"`
	Lane  int      `json:"lane" yaml:"lane"`
	Color Color    `json:"color" yaml:"color"`
}

// PositionedCommit is a commit annotated with everything needed to draw its
// row: the lane holding the node, the node color and the path segments,
// ordered bases first, then follows, then parents.
type PositionedCommit struct {
	Commit   *git.CommitInfo `json:"commit" yaml:"commit"`
	Position int             `json:"position" yaml:"position"`
	Color    Color           `json:"color" yaml:"color"`
	Paths    []Path          `json:"paths" yaml:"paths"`
}

type lane struct {
	target   git.Oid
	color    Color
	occupied bool
}

// LaneState is a snapshot of one occupied lane.
type LaneState struct {
	Lane   int
	Target git.Oid
	Color  Color
}

// Assigner holds the lane slots between commits. Slots are tombstoned when
// their target is reached and never removed, so lane indices stay stable
// for the whole run. The zero value is ready to use.
type Assigner struct {
	lanes  []lane
	colors colorSet
}

func NewAssigner() *Assigner {
	return &Assigner{}
}

// Place positions c. Commits must be fed children before parents; a parent
// that never shows up leaves its lane open for the rest of the run.
func (a *Assigner) Place(c *git.CommitInfo) *PositionedCommit {
	var matching []int
	for i, l := range a.lanes {
		if l.occupied && l.target == c.ID {
			matching = append(matching, i)
		}
	}

	var (
		position int
		color    Color
		paths    []Path
	)
	if len(matching) == 0 {
		position = a.freeSlot()
		color = a.colors.lowestFree()
	} else {
		// The leftmost matching lane survives.
		position = matching[0]
		color = a.lanes[position].color
		for _, i := range matching {
			paths = append(paths, Path{Kind: Base, Lane: i, Color: a.lanes[i].color})
		}
	}

	for i, l := range a.lanes {
		if l.occupied && l.target != c.ID {
			paths = append(paths, Path{Kind: Follow, Lane: i, Color: l.color})
		}
	}

	for _, i := range matching {
		a.release(i)
	}

	for n, parent := range c.Parents {
		if n == 0 {
			a.occupy(position, parent, color)
			paths = append(paths, Path{Kind: Parent, Lane: position, Color: color})
			continue
		}
		i, ok := a.targeting(parent)
		if !ok {
			i = a.freeSlot()
			a.occupy(i, parent, a.colors.lowestFree())
		}
		paths = append(paths, Path{Kind: Parent, Lane: i, Color: a.lanes[i].color})
	}

	return &PositionedCommit{Commit: c, Position: position, Color: color, Paths: paths}
}

// Lanes returns the occupied lanes in index order.
func (a *Assigner) Lanes() []LaneState {
	var out []LaneState
	for i, l := range a.lanes {
		if l.occupied {
			out = append(out, LaneState{Lane: i, Target: l.target, Color: l.color})
		}
	}
	return out
}

// Width is the number of lane slots ever allocated.
func (a *Assigner) Width() int {
	return len(a.lanes)
}

func (a *Assigner) freeSlot() int {
	for i, l := range a.lanes {
		if !l.occupied {
			return i
		}
	}
	return len(a.lanes)
}

func (a *Assigner) targeting(id git.Oid) (int, bool) {
	for i, l := range a.lanes {
		if l.occupied && l.target == id {
			return i, true
		}
	}
	return 0, false
}

func (a *Assigner) occupy(i int, target git.Oid, color Color) {
	if i == len(a.lanes) {
		a.lanes = append(a.lanes, lane{})
	}
	a.lanes[i] = lane{target: target, color: color, occupied: true}
	a.colors.add(color)
}

func (a *Assigner) release(i int) {
	a.colors.remove(a.lanes[i].color)
	a.lanes[i] = lane{}
}
