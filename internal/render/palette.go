// Package render turns positioned commits and file histories into terminal
// text, JSON or YAML.
package render

import (
	"github.com/fatih/color"

	"github.com/thiagokokada/gitlane/internal/graph"
)

var laneAttributes = []color.Attribute{
	color.FgBlue,
	color.FgGreen,
	color.FgYellow,
	color.FgMagenta,
	color.FgCyan,
	color.FgRed,
	color.FgHiBlue,
	color.FgHiGreen,
	color.FgHiYellow,
	color.FgHiMagenta,
	color.FgHiCyan,
	color.FgHiRed,
}

// Palette maps abstract lane colors and text roles onto terminal colors.
type Palette struct {
	enabled bool
	lanes   []*color.Color

	id     *color.Color
	label  *color.Color
	meta   *color.Color
	added  *color.Color
	remove *color.Color
	hunk   *color.Color
	header *color.Color
}

// NewPalette builds a palette; a disabled palette leaves text untouched
// whatever the terminal supports.
func NewPalette(enabled bool) *Palette {
	p := &Palette{
		enabled: enabled,
		id:      color.New(color.FgYellow),
		label:   color.New(color.FgGreen, color.Bold),
		meta:    color.New(color.Faint),
		added:   color.New(color.FgGreen),
		remove:  color.New(color.FgRed),
		hunk:    color.New(color.FgCyan),
		header:  color.New(color.Bold),
	}
	for _, attr := range laneAttributes {
		p.lanes = append(p.lanes, color.New(attr))
	}
	for _, c := range p.all() {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *Palette) all() []*color.Color {
	return append([]*color.Color{p.id, p.label, p.meta, p.added, p.remove, p.hunk, p.header}, p.lanes...)
}

func (p *Palette) Enabled() bool {
	return p.enabled
}

// Lane returns the terminal color of a lane color id. Ids beyond the palette
// wrap around.
func (p *Palette) Lane(c graph.Color) *color.Color {
	i := int(c) % len(p.lanes)
	if i < 0 {
		i += len(p.lanes)
	}
	return p.lanes[i]
}

func (p *Palette) paint(c *color.Color, s string) string {
	if !p.enabled || s == "" {
		return s
	}
	return c.Sprint(s)
}
