// Package export writes session transcripts as Markdown, JSON or YAML.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Dhanuzh/plcchat/internal/content"
	"github.com/Dhanuzh/plcchat/internal/render"
	"github.com/Dhanuzh/plcchat/internal/session"
)

// Format is a transcript file format.
type Format string

const (
	Markdown Format = "md"
	JSON     Format = "json"
	YAML     Format = "yaml"
)

// Formats lists the accepted format names.
var Formats = []Format{Markdown, JSON, YAML}

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "md", "markdown":
		return Markdown, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown export format %q (want md, json or yaml)", s)
}

// Transcript is one session with its messages.
type Transcript struct {
	Session    session.ChatSession
	Messages   []session.Message
	ExportedAt time.Time
}

type document struct {
	SessionID  string       `json:"session_id" yaml:"session_id"`
	Title      string       `json:"title" yaml:"title"`
	ExportedAt time.Time    `json:"exported_at" yaml:"exported_at"`
	Messages   []messageDoc `json:"messages" yaml:"messages"`
}

type messageDoc struct {
	Role      session.Role    `json:"role" yaml:"role"`
	Timestamp *time.Time      `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Text      string          `json:"text,omitempty" yaml:"text,omitempty"`
	Blocks    []content.Block `json:"blocks,omitempty" yaml:"blocks,omitempty"`
}

func toDocument(t Transcript) document {
	doc := document{
		SessionID:  t.Session.ID,
		Title:      t.Session.Title,
		ExportedAt: t.ExportedAt.UTC(),
		Messages:   make([]messageDoc, len(t.Messages)),
	}
	for i, m := range t.Messages {
		md := messageDoc{Role: m.Role}
		if !m.Timestamp.IsZero() {
			ts := m.Timestamp.UTC()
			md.Timestamp = &ts
		}
		switch c := m.Content.(type) {
		case content.StructuredBlocks:
			md.Blocks = c.Blocks
		default:
			md.Text = m.Text()
		}
		doc.Messages[i] = md
	}
	return doc
}

// Write encodes t to w in format f.
func Write(w io.Writer, f Format, t Transcript) error {
	if t.ExportedAt.IsZero() {
		t.ExportedAt = time.Now()
	}
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toDocument(t))
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toDocument(t)); err != nil {
			return err
		}
		return enc.Close()
	case Markdown:
		_, err := io.WriteString(w, markdown(t))
		return err
	}
	return fmt.Errorf("unknown export format %q", f)
}

func markdown(t Transcript) string {
	var sb strings.Builder
	title := t.Session.Title
	if title == "" {
		title = "Untitled chat"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "_Exported %s_\n", t.ExportedAt.Format("2006-01-02 15:04"))

	for _, m := range t.Messages {
		sb.WriteString("\n## ")
		if m.Role == session.RoleUser {
			sb.WriteString("You")
		} else {
			sb.WriteString("Assistant")
		}
		if !m.Timestamp.IsZero() {
			sb.WriteString(" · ")
			sb.WriteString(m.Timestamp.Format("2006-01-02 15:04"))
		}
		sb.WriteString("\n\n")

		for _, v := range render.ViewMessage(string(m.Role), m.Timestamp, m.Content) {
			writeBlock(&sb, v)
		}
	}
	return sb.String()
}

func writeBlock(sb *strings.Builder, v render.BlockView) {
	if v.Mode == render.Prose {
		sb.WriteString(v.Content)
		sb.WriteString("\n\n")
	} else {
		fmt.Fprintf(sb, "**%s**\n\n", v.Title)
		fence := "```"
		// Lengthen the fence if the content itself contains one.
		for strings.Contains(v.Content, fence) {
			fence += "`"
		}
		fmt.Fprintf(sb, "%s%s\n%s\n%s\n\n", fence, v.Language, v.Content, fence)
	}

	if p := v.Validation; p != nil {
		fmt.Fprintf(sb, "> **%s** · %s\n", p.StatusLabel(), p.ExecutableLabel())
		if p.Reason != "" {
			fmt.Fprintf(sb, ">\n> %s\n", p.Reason)
		}
		if len(p.Warnings) > 0 {
			sb.WriteString(">\n> Warnings:\n")
			for _, w := range p.Warnings {
				fmt.Fprintf(sb, "> - %s\n", w)
			}
		}
		sb.WriteString("\n")
	}
}
