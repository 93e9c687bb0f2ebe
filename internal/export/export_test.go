package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Dhanuzh/plcchat/internal/content"
	"github.com/Dhanuzh/plcchat/internal/session"
)

func sampleTranscript() Transcript {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	reply := content.List{
		content.Record{"type": content.Text("text"), "content": content.Text("Here is the rung:")},
		content.Record{
			"type":    content.Text("ladder"),
			"content": content.Text("|--[ START ]--( MOTOR )--|"),
			"validation": content.Record{
				"status":     content.Text("invalid"),
				"executable": content.Bool(false),
				"reason":     content.Text("missing stop"),
				"warnings":   content.List{content.Text("no seal-in")},
			},
		},
	}
	return Transcript{
		Session: session.ChatSession{ID: "s1", Title: "Motor start"},
		Messages: []session.Message{
			session.NewMessage(session.RoleUser, content.Text("draw a motor start rung"), ts),
			session.NewMessage(session.RoleAssistant, reply, ts.Add(5*time.Second)),
		},
		ExportedAt: ts.Add(time.Hour),
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"md": Markdown, "Markdown": Markdown, ".json": JSON, "yml": YAML, "yaml": YAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Markdown, sampleTranscript()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Motor start\n"))
	assert.Contains(t, out, "## You · 2024-03-01 10:00")
	assert.Contains(t, out, "draw a motor start rung")
	assert.Contains(t, out, "Here is the rung:")
	assert.Contains(t, out, "**Ladder Diagram**")
	assert.Contains(t, out, "```text\n|--[ START ]--( MOTOR )--|\n```")
	assert.Contains(t, out, "> **Invalid** · Not Executable")
	assert.Contains(t, out, "> missing stop")
	assert.Contains(t, out, "> - no seal-in")
}

func TestMarkdownLongerFence(t *testing.T) {
	tr := Transcript{Messages: []session.Message{
		session.NewMessage(session.RoleAssistant, content.Record{"type": content.Text("plc-code"), "content": content.Text("a ``` b")}, time.Time{}),
	}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Markdown, tr))
	assert.Contains(t, buf.String(), "````pascal\na ``` b\n````")
	assert.Contains(t, buf.String(), "# Untitled chat")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, sampleTranscript()))

	var doc document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "s1", doc.SessionID)
	require.Len(t, doc.Messages, 2)
	assert.Equal(t, "draw a motor start rung", doc.Messages[0].Text)
	require.Len(t, doc.Messages[1].Blocks, 2)
	assert.Equal(t, content.TypeLadder, doc.Messages[1].Blocks[1].Type)
	require.NotNil(t, doc.Messages[1].Blocks[1].Validation)
	assert.Equal(t, content.StatusInvalid, doc.Messages[1].Blocks[1].Validation.Status)
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, YAML, sampleTranscript()))

	var doc document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Motor start", doc.Title)
	require.Len(t, doc.Messages, 2)
	assert.Equal(t, session.RoleAssistant, doc.Messages[1].Role)
	assert.Equal(t, []string{"no seal-in"}, doc.Messages[1].Blocks[1].Validation.Warnings)
	assert.Contains(t, buf.String(), "session_id: s1")
}

func TestUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("pdf"), sampleTranscript()))
}
