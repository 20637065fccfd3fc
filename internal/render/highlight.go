package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/fatih/color"
)

// Highlighter colors unified diffs: markers and headers from the palette,
// code from the chroma style matching the terminal theme.
type Highlighter struct {
	palette *Palette
	style   *chroma.Style
	colors  map[chroma.Colour]*color.Color
}

func NewHighlighter(palette *Palette, theme ThemePreference, syntax bool) *Highlighter {
	h := &Highlighter{palette: palette, colors: map[chroma.Colour]*color.Color{}}
	if syntax && palette.Enabled() {
		h.style = styleForTheme(theme.IsDark())
	}
	return h
}

// Patch returns the colored form of a unified diff.
func (h *Highlighter) Patch(text string) string {
	if !h.palette.Enabled() || text == "" {
		return text
	}
	var (
		b     strings.Builder
		lexer chroma.Lexer
	)
	lines := strings.SplitAfter(text, "\n")
	for _, raw := range lines {
		line, eol := strings.CutSuffix(raw, "\n")
		switch {
		case strings.HasPrefix(line, "+++ "), strings.HasPrefix(line, "--- "):
			if path, ok := diffPathFromLine(line); ok && path != "" {
				lexer = lexerForPath(path)
			}
			b.WriteString(h.palette.paint(h.palette.header, line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(h.palette.paint(h.palette.hunk, line))
		default:
			code, ok := diffLineCode(line)
			if !ok {
				b.WriteString(line)
				break
			}
			switch line[0] {
			case '+':
				b.WriteString(h.palette.paint(h.palette.added, "+"))
			case '-':
				b.WriteString(h.palette.paint(h.palette.remove, "-"))
			default:
				b.WriteByte(' ')
			}
			b.WriteString(h.code(lexer, code, line[0]))
		}
		if eol {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (h *Highlighter) code(lexer chroma.Lexer, code string, marker byte) string {
	fallback := func() string {
		switch marker {
		case '+':
			return h.palette.paint(h.palette.added, code)
		case '-':
			return h.palette.paint(h.palette.remove, code)
		default:
			return code
		}
	}
	if h.style == nil || lexer == nil || code == "" {
		return fallback()
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return fallback()
	}
	var b strings.Builder
	// Some lexers append a newline; never emit more than the input.
	remaining := len(code)
	for _, token := range iterator.Tokens() {
		value := token.Value
		if len(value) > remaining {
			value = value[:remaining]
		}
		if value == "" {
			continue
		}
		remaining -= len(value)
		c := h.colorFromEntry(h.style.Get(token.Type))
		if c == nil {
			b.WriteString(value)
			continue
		}
		b.WriteString(h.palette.paint(c, value))
	}
	return b.String()
}

func (h *Highlighter) colorFromEntry(entry chroma.StyleEntry) *color.Color {
	if !entry.Colour.IsSet() {
		return nil
	}
	if c, ok := h.colors[entry.Colour]; ok {
		return c
	}
	c := color.RGB(int(entry.Colour.Red()), int(entry.Colour.Green()), int(entry.Colour.Blue()))
	c.EnableColor()
	h.colors[entry.Colour] = c
	return c
}

func styleForTheme(dark bool) *chroma.Style {
	name := "github"
	if dark {
		name = "github-dark"
	}
	if st := styles.Get(name); st != nil {
		return st
	}
	return styles.Fallback
}

func lexerForPath(path string) chroma.Lexer {
	if path == "" {
		return nil
	}
	lexer := lexers.Match(path)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// diffPathFromLine extracts the path of a "--- a/x" or "+++ b/x" header.
func diffPathFromLine(line string) (string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(line, "+++ "):
		rest = line[4:]
	case strings.HasPrefix(line, "--- "):
		rest = line[4:]
	default:
		return "", false
	}
	rest, _, _ = strings.Cut(rest, "\t")
	rest = strings.TrimSpace(rest)
	if rest == "/dev/null" {
		return "", true
	}
	for _, prefix := range []string{"a/", "b/"} {
		if p, ok := strings.CutPrefix(rest, prefix); ok {
			return p, true
		}
	}
	return rest, true
}

// diffLineCode returns the code of a context, added or removed line.
func diffLineCode(line string) (string, bool) {
	if line == "" {
		return "", false
	}
	switch line[0] {
	case '+', '-', ' ':
		return line[1:], true
	default:
		return "", false
	}
}
