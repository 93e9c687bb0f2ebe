// Package render turns normalized replies into block views: the presentation
// mode, viewer title and language, validation panel and copy target for each
// block.
package render

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Dhanuzh/plcchat/internal/content"
)

// Mode selects how a block is presented.
type Mode int

const (
	// Prose is free-flowing text with its line breaks preserved.
	Prose Mode = iota
	// Code is a read-only code/diagram viewer.
	Code
)

func (m Mode) String() string {
	if m == Code {
		return "code"
	}
	return "prose"
}

// Tone is the semantic color channel of a validation panel.
type Tone int

const (
	Positive Tone = iota
	Negative
	Caution
)

func (t Tone) String() string {
	switch t {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "caution"
	}
}

// ToneFor maps a validation status to its tone. Unknown and unrecognized
// statuses are Caution.
func ToneFor(s content.Status) Tone {
	switch s {
	case content.StatusValid:
		return Positive
	case content.StatusInvalid:
		return Negative
	default:
		return Caution
	}
}

// ValidationPanel is the status panel drawn under a validated block.
type ValidationPanel struct {
	Tone       Tone
	Status     content.Status
	Executable bool
	Reason     string
	Warnings   []string
}

// ExecutableLabel is the panel's executable badge text.
func (p ValidationPanel) ExecutableLabel() string {
	if p.Executable {
		return "Executable"
	}
	return "Not Executable"
}

// StatusLabel is the status line shown in the panel header.
func (p ValidationPanel) StatusLabel() string {
	switch p.Status {
	case content.StatusValid:
		return "Valid"
	case content.StatusInvalid:
		return "Invalid"
	case "":
		return "Unknown"
	default:
		return "Unknown (" + string(p.Status) + ")"
	}
}

// Key identifies a block within the rendered conversation. It is derived
// from the owning message and the block position, so re-rendering the same
// message yields the same keys.
type Key string

// BlockKey builds the key of block index of a message. A zero timestamp
// (an optimistic message not yet confirmed) contributes an empty segment.
func BlockKey(role string, ts time.Time, typ content.BlockType, index int) Key {
	return Key(fmt.Sprintf("%s|%s|%s|%d", role, stamp(ts), typ, index))
}

// FallbackKey is the key of a plain-text reply, which has a single block.
func FallbackKey(role string, ts time.Time) Key {
	return Key(fmt.Sprintf("%s|%s|fallback", role, stamp(ts)))
}

func stamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return strconv.FormatInt(ts.UnixMilli(), 10)
}

// BlockView is the presentation decision for one block.
type BlockView struct {
	Key      Key
	Mode     Mode
	Type     content.BlockType
	Title    string
	Language string // chroma lexer name, Code mode only
	Content  string

	Validation *ValidationPanel
}

// CopyText is what the block's copy action puts on the clipboard: the
// content, verbatim.
func (v BlockView) CopyText() string { return v.Content }

// Display metadata per block type. Unlisted types use genericViewer.
type viewer struct {
	title    string
	language string
}

var viewers = map[content.BlockType]viewer{
	content.TypeLadder:  {title: "Ladder Diagram", language: "text"},
	content.TypePLCCode: {title: "PLC Code", language: "pascal"}, // Structured Text is Pascal-like
}

var genericViewer = viewer{title: "Response", language: "text"}

// Render decides how block is shown.
func Render(block content.Block, key Key) BlockView {
	v := BlockView{
		Key:     key,
		Type:    block.Type,
		Content: block.Content,
		Title:   genericViewer.title,
	}
	if block.Type == content.TypeText {
		v.Mode = Prose
	} else {
		vw, ok := viewers[block.Type]
		if !ok {
			vw = genericViewer
		}
		v.Mode = Code
		v.Title = vw.title
		v.Language = vw.language
	}
	if block.Validation != nil {
		val := block.Validation
		v.Validation = &ValidationPanel{
			Tone:       ToneFor(val.Status),
			Status:     val.Status,
			Executable: val.Executable,
			Reason:     val.Reason,
			Warnings:   append([]string(nil), val.Warnings...),
		}
	}
	return v
}

// ViewMessage renders every block of a message's content in order.
func ViewMessage(role string, ts time.Time, n content.Normalized) []BlockView {
	switch c := n.(type) {
	case content.StructuredBlocks:
		views := make([]BlockView, len(c.Blocks))
		for i, b := range c.Blocks {
			views[i] = Render(b, BlockKey(role, ts, b.Type, i))
		}
		return views
	case content.PlainText:
		b := content.Block{Type: content.TypeText, Content: c.Text}
		return []BlockView{Render(b, FallbackKey(role, ts))}
	}
	return nil
}
