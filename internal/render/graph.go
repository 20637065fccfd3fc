package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/thiagokokada/gitlane/internal/git"
	"github.com/thiagokokada/gitlane/internal/graph"
)

// GraphWriter draws positioned commits one row at a time, with connector
// lines above a row where lanes converge and below it where a merge opens
// lanes.
type GraphWriter struct {
	w       io.Writer
	palette *Palette
	labels  map[git.Oid][]string
	now     func() time.Time
}

func NewGraphWriter(w io.Writer, palette *Palette, labels map[git.Oid][]string) *GraphWriter {
	return &GraphWriter{w: w, palette: palette, labels: labels, now: time.Now}
}

func (g *GraphWriter) Write(pc *graph.PositionedCommit) error {
	pre, row, post := rowCells(pc)
	var b strings.Builder
	if pre.converges {
		b.WriteString(g.cells(pre.cells, 0))
		b.WriteByte('\n')
	}
	b.WriteString(g.cells(row.cells, 2*rowWidth(pc)))
	b.WriteString(g.describe(pc.Commit))
	b.WriteByte('\n')
	if post.converges {
		b.WriteString(g.cells(post.cells, 0))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(g.w, b.String())
	return err
}

func (g *GraphWriter) describe(c *git.CommitInfo) string {
	var b strings.Builder
	b.WriteString(g.palette.paint(g.palette.id, c.ID.Short()))
	if labels := g.labels[c.ID]; len(labels) > 0 {
		b.WriteString(" ")
		b.WriteString(g.palette.paint(g.palette.label, "("+strings.Join(labels, ", ")+")"))
	}
	b.WriteString(" ")
	b.WriteString(c.Summary)
	meta := fmt.Sprintf("(%s, %s)", c.Author.Name, relTime(c.Committer.When, g.now()))
	b.WriteString(" ")
	b.WriteString(g.palette.paint(g.palette.meta, meta))
	return b.String()
}

func relTime(then, now time.Time) string {
	if then.IsZero() {
		return "unknown date"
	}
	return humanize.RelTime(then, now, "ago", "from now")
}

type cell struct {
	ch    byte
	color graph.Color
}

type cellLine struct {
	cells     []*cell
	converges bool
}

func (l *cellLine) put(col int, ch byte, c graph.Color) {
	if col < 0 {
		return
	}
	for len(l.cells) <= col {
		l.cells = append(l.cells, nil)
	}
	l.cells[col] = &cell{ch: ch, color: c}
}

// fill draws '_' on the blank columns in [from, to], leaving lanes already
// drawn there untouched.
func (l *cellLine) fill(from, to int, c graph.Color) {
	for col := max(from, 0); col <= to; col++ {
		if col < len(l.cells) && l.cells[col] != nil {
			continue
		}
		l.put(col, '_', c)
	}
}

// rowCells lays out the three possible lines of a row. Lane i is drawn at
// column 2i; diagonals sit on the odd column between two lanes, and an
// underscore run bridges a lane more than one column away from the commit.
// Base paths come first, so a Follow lane crossing the run overwrites it.
func rowCells(pc *graph.PositionedCommit) (pre, row, post cellLine) {
	at := 2 * pc.Position
	for _, p := range pc.Paths {
		col := 2 * p.Lane
		switch p.Kind {
		case graph.Follow:
			pre.put(col, '|', p.Color)
			row.put(col, '|', p.Color)
			post.put(col, '|', p.Color)
		case graph.Base:
			switch {
			case p.Lane == pc.Position:
				pre.put(col, '|', p.Color)
			case p.Lane > pc.Position:
				pre.converges = true
				pre.fill(at+1, col-2, p.Color)
				pre.put(col-1, '/', p.Color)
			default:
				pre.converges = true
				pre.fill(col+2, at-1, p.Color)
				pre.put(col+1, '\\', p.Color)
			}
		case graph.Parent:
			switch {
			case p.Lane == pc.Position:
				post.put(col, '|', p.Color)
			case p.Lane > pc.Position:
				post.converges = true
				post.fill(at+1, col-2, p.Color)
				post.put(col-1, '\\', p.Color)
			default:
				post.converges = true
				post.fill(col+2, at-1, p.Color)
				post.put(col+1, '/', p.Color)
			}
		}
	}
	row.put(at, '*', pc.Color)
	return pre, row, post
}

// rowWidth counts the lanes still drawn below the row's connector line.
func rowWidth(pc *graph.PositionedCommit) int {
	width := pc.Position + 1
	for _, p := range pc.Paths {
		if p.Kind != graph.Base && p.Lane+1 > width {
			width = p.Lane + 1
		}
	}
	return width
}

// cells renders a line, padded with spaces to at least pad columns. Lines
// that are not padded lose their trailing blanks.
func (g *GraphWriter) cells(cells []*cell, pad int) string {
	var b strings.Builder
	for _, c := range cells {
		if c == nil {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(g.palette.paint(g.palette.Lane(c.color), string(c.ch)))
	}
	for i := len(cells); i < pad; i++ {
		b.WriteByte(' ')
	}
	if pad == 0 {
		return strings.TrimRight(b.String(), " ")
	}
	return b.String()
}
