package render

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter provides code syntax highlighting using Chroma
type Highlighter struct {
	style     string
	formatter chroma.Formatter
}

// NewHighlighter creates a highlighter for a chroma style name. Unknown
// styles fall back to chroma's default.
func NewHighlighter(style string) *Highlighter {
	if style == "" {
		style = "monokai"
	}
	return &Highlighter{
		style:     style,
		formatter: formatters.Get("terminal256"),
	}
}

// Highlight applies syntax highlighting to code.
// Returns ANSI-escaped lines joined by "\n".
// Never pass this output into a lipgloss Width()-constrained Render call:
// lipgloss miscounts ANSI escape widths. Use HighlightLines instead.
func (h *Highlighter) Highlight(code, language string) string {
	// Ladder diagrams are ASCII art; content sniffing would pick a
	// random lexer for them.
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(h.style)
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// HighlightLines highlights code and returns individual ANSI-escaped lines.
func (h *Highlighter) HighlightLines(code, language string) []string {
	return strings.Split(h.Highlight(code, language), "\n")
}
