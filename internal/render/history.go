package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/thiagokokada/gitlane/internal/git"
)

// HistoryEntry is one commit that changed Path.
type HistoryEntry struct {
	Path   string          `json:"path" yaml:"path"`
	Commit *git.CommitInfo `json:"commit" yaml:"commit"`
	Patch  string          `json:"patch,omitempty" yaml:"patch,omitempty"`
}

type HistoryWriter struct {
	w         io.Writer
	palette   *Palette
	highlight *Highlighter
	now       func() time.Time
}

func NewHistoryWriter(w io.Writer, palette *Palette, highlight *Highlighter) *HistoryWriter {
	return &HistoryWriter{w: w, palette: palette, highlight: highlight, now: time.Now}
}

func (h *HistoryWriter) Write(e HistoryEntry) error {
	c := e.Commit
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s %s\n",
		h.palette.paint(h.palette.id, c.ID.Short()),
		c.Committer.When.Format(time.DateOnly),
		c.Summary,
		h.palette.paint(h.palette.meta, fmt.Sprintf("(%s, %s)", c.Author.Name, relTime(c.Committer.When, h.now()))),
	)
	if e.Patch != "" {
		patch := e.Patch
		if h.highlight != nil {
			patch = h.highlight.Patch(patch)
		}
		b.WriteString(patch)
		if !strings.HasSuffix(patch, "\n") {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(h.w, b.String())
	return err
}

// Header introduces the entries of one path when several are traced.
func (h *HistoryWriter) Header(path string) error {
	_, err := fmt.Fprintln(h.w, h.palette.paint(h.palette.header, "==> "+path+" <=="))
	return err
}
