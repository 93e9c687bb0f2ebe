package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhanuzh/plcchat/internal/content"
)

func TestRenderTextIsProse(t *testing.T) {
	v := Render(content.Block{Type: content.TypeText, Content: "line one\nline two"}, "k")

	assert.Equal(t, Prose, v.Mode)
	assert.Equal(t, "line one\nline two", v.CopyText())
	assert.Nil(t, v.Validation)
}

func TestRenderDisplayMapping(t *testing.T) {
	tests := []struct {
		typ      content.BlockType
		title    string
		language string
	}{
		{content.TypeLadder, "Ladder Diagram", "text"},
		{content.TypePLCCode, "PLC Code", "pascal"},
		{"function-block", "Response", "text"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			v := Render(content.Block{Type: tt.typ, Content: "x"}, "k")
			assert.Equal(t, Code, v.Mode)
			assert.Equal(t, tt.title, v.Title)
			assert.Equal(t, tt.language, v.Language)
			assert.Equal(t, "x", v.CopyText())
		})
	}
}

func TestRenderValidationPanel(t *testing.T) {
	tests := []struct {
		status content.Status
		tone   Tone
	}{
		{content.StatusValid, Positive},
		{content.StatusInvalid, Negative},
		{content.StatusUnknown, Caution},
		{"pending", Caution},
		{"", Caution},
	}
	for _, tt := range tests {
		b := content.Block{
			Type:    content.TypeLadder,
			Content: "|--|",
			Validation: &content.Validation{
				Status:   tt.status,
				Reason:   "why",
				Warnings: []string{"b", "a"},
			},
		}
		v := Render(b, "k")
		require.NotNil(t, v.Validation)
		assert.Equal(t, tt.tone, v.Validation.Tone, "status %q", tt.status)
		assert.Equal(t, "Not Executable", v.Validation.ExecutableLabel())
		assert.Equal(t, []string{"b", "a"}, v.Validation.Warnings)
	}
}

func TestRenderCopiesWarnings(t *testing.T) {
	val := &content.Validation{Status: content.StatusValid, Warnings: []string{"w"}}
	v := Render(content.Block{Type: content.TypePLCCode, Content: "x", Validation: val}, "k")

	val.Warnings[0] = "changed"

	assert.Equal(t, []string{"w"}, v.Validation.Warnings)
}

func TestBlockKeyStableAndUnique(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	n := content.StructuredBlocks{Blocks: []content.Block{
		{Type: content.TypeText, Content: "a"},
		{Type: content.TypeText, Content: "b"},
		{Type: content.TypeLadder, Content: "c"},
	}}

	first := ViewMessage("assistant", ts, n)
	second := ViewMessage("assistant", ts, n)

	seen := map[Key]bool{}
	for i := range first {
		assert.Equal(t, first[i].Key, second[i].Key)
		assert.False(t, seen[first[i].Key], "duplicate key %s", first[i].Key)
		seen[first[i].Key] = true
	}
	assert.Equal(t, Key("assistant|1709287200000|text|0"), first[0].Key)
}

func TestBlockKeyZeroTimestamp(t *testing.T) {
	assert.Equal(t, Key("user||text|0"), BlockKey("user", time.Time{}, content.TypeText, 0))
	assert.Equal(t, Key("user||fallback"), FallbackKey("user", time.Time{}))
}

func TestViewMessagePlainText(t *testing.T) {
	views := ViewMessage("assistant", time.Time{}, content.PlainText{Text: "hello"})

	require.Len(t, views, 1)
	assert.Equal(t, Prose, views[0].Mode)
	assert.Equal(t, "hello", views[0].Content)
	assert.Equal(t, FallbackKey("assistant", time.Time{}), views[0].Key)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Valid", ValidationPanel{Status: content.StatusValid}.StatusLabel())
	assert.Equal(t, "Invalid", ValidationPanel{Status: content.StatusInvalid}.StatusLabel())
	assert.Equal(t, "Unknown", ValidationPanel{}.StatusLabel())
	assert.Equal(t, "Unknown (odd)", ValidationPanel{Status: "odd"}.StatusLabel())
}
