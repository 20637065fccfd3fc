package render

import (
	"fmt"
	"io"

	"github.com/thiagokokada/gitlane/internal/git"
)

// WriteRefs lists refs one per line: short id, kind and name.
func WriteRefs(w io.Writer, palette *Palette, refs []git.Ref) error {
	for _, ref := range refs {
		_, err := fmt.Fprintf(w, "%s %-6s %s\n",
			palette.paint(palette.id, ref.Oid.Short()),
			ref.Kind,
			palette.paint(palette.label, ref.Name),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
