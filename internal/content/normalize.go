package content

import (
	"strings"
)

// Normalized is the typed form of an assistant reply: PlainText or
// StructuredBlocks.
type Normalized interface {
	// Raw returns a raw value that normalizes back to the same value.
	Raw() Raw
	isNormalized()
}

// PlainText is a reply shown verbatim.
type PlainText struct {
	Text string
}

// StructuredBlocks is an ordered, non-empty list of response blocks.
type StructuredBlocks struct {
	Blocks []Block
}

func (PlainText) isNormalized()        {}
func (StructuredBlocks) isNormalized() {}

// Raw implements Normalized.
func (p PlainText) Raw() Raw { return Text(p.Text) }

// Raw implements Normalized.
func (s StructuredBlocks) Raw() Raw {
	list := make(List, len(s.Blocks))
	for i, b := range s.Blocks {
		list[i] = b.raw()
	}
	return list
}

// String returns the text a reply contributes to conversation history and
// previews: the plain text, or the block contents joined by blank lines.
func String(n Normalized) string {
	switch v := n.(type) {
	case PlainText:
		return v.Text
	case StructuredBlocks:
		parts := make([]string, len(v.Blocks))
		for i, b := range v.Blocks {
			parts[i] = b.Content
		}
		return strings.Join(parts, "\n\n")
	}
	return ""
}

// Normalize reduces any raw reply to a Normalized value. It never fails:
// content it cannot interpret degrades to PlainText.
//
// Precedence, first match wins:
//  1. a list is the block list
//  2. a record whose "responses" field is a list supplies the block list
//  3. a record with "type" and "content" is a single block
//  4. text is unfenced and parsed as a JSON block list; every element must be
//     a record with non-empty "type" and "content" or the cleaned text is kept
//  5. anything else is shown as its display string
func Normalize(r Raw) Normalized {
	switch v := r.(type) {
	case List:
		return fromList(v, r)
	case Record:
		if responses, ok := v["responses"].(List); ok {
			return fromList(responses, r)
		}
		if truthy(v["type"]) && truthy(v["content"]) {
			return fromList(List{v}, r)
		}
	case Text:
		return fromText(string(v))
	}
	return PlainText{Text: DisplayString(r)}
}

func fromList(list List, whole Raw) Normalized {
	if len(list) == 0 {
		return PlainText{Text: DisplayString(whole)}
	}
	blocks := make([]Block, len(list))
	for i, e := range list {
		blocks[i] = blockFromRaw(e)
	}
	return StructuredBlocks{Blocks: blocks}
}

func fromText(s string) Normalized {
	cleaned := Unfence(s)
	parsed := FromJSON([]byte(cleaned))
	list, ok := parsed.(List)
	if !ok || len(list) == 0 {
		return PlainText{Text: cleaned}
	}
	for _, e := range list {
		rec, ok := e.(Record)
		if !ok || !truthy(rec["type"]) || !truthy(rec["content"]) {
			return PlainText{Text: cleaned}
		}
	}
	return fromList(list, parsed)
}

// Unfence trims s and strips markdown code fences around it: a leading
// "```json" or "```" marker and a trailing "```". Stripping repeats until the
// text no longer changes, so Unfence(Unfence(s)) == Unfence(s).
func Unfence(s string) string {
	for {
		next := unfenceOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func unfenceOnce(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
