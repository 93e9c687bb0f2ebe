package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFencedJSON(t *testing.T) {
	got := Normalize(Text("```json\n[{\"type\":\"text\",\"content\":\"hi\"}]\n```"))

	require.IsType(t, StructuredBlocks{}, got)
	assert.Equal(t, []Block{{Type: TypeText, Content: "hi"}}, got.(StructuredBlocks).Blocks)
}

func TestNormalizeBareFence(t *testing.T) {
	got := Normalize(Text("  ```\n[{\"type\":\"ladder\",\"content\":\"|--] [--( )--|\"}]\n```  "))

	require.IsType(t, StructuredBlocks{}, got)
	assert.Equal(t, TypeLadder, got.(StructuredBlocks).Blocks[0].Type)
}

func TestNormalizePartiallyValidArrayIsPlainText(t *testing.T) {
	in := `  [{"type":"text","content":"a"},{"type":"bogus"}]  `

	got := Normalize(Text(in))

	assert.Equal(t, PlainText{Text: `[{"type":"text","content":"a"},{"type":"bogus"}]`}, got)
}

func TestNormalizeScalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"int", 42, "42"},
		{"float", 3.5, "3.5"},
		{"bool", true, "true"},
		{"null", nil, "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, PlainText{Text: tt.want}, Normalize(FromValue(tt.in)))
		})
	}
}

func TestNormalizeInvalidJSONString(t *testing.T) {
	got := Normalize(Text("  Use a TON timer with PT := T#5s.\n"))

	assert.Equal(t, PlainText{Text: "Use a TON timer with PT := T#5s."}, got)
}

func TestNormalizeNonArrayJSONString(t *testing.T) {
	got := Normalize(Text(`{"type":"text","content":"hi"}`))

	// Only arrays are accepted from text.
	assert.Equal(t, PlainText{Text: `{"type":"text","content":"hi"}`}, got)
}

func TestNormalizeTrailingGarbageIsPlainText(t *testing.T) {
	in := `[{"type":"text","content":"a"}] trailing`

	assert.Equal(t, PlainText{Text: in}, Normalize(Text(in)))
}

func TestNormalizeEmptyArrayIsPlainText(t *testing.T) {
	assert.Equal(t, PlainText{Text: "[]"}, Normalize(Text("[]")))
	assert.Equal(t, PlainText{Text: "[]"}, Normalize(List{}))
}

func TestNormalizeList(t *testing.T) {
	raw := FromJSON([]byte(`[
		{"type":"text","content":"Here is the rung."},
		{"type":"ladder","content":"|--] [--( )--|","validation":{"status":"valid","executable":true,"reason":"ok","warnings":["w1","w2"]}},
		{"type":"plc-code","content":"Motor := Start AND NOT Stop;"}
	]`))

	got := Normalize(raw)

	require.IsType(t, StructuredBlocks{}, got)
	blocks := got.(StructuredBlocks).Blocks
	require.Len(t, blocks, 3)
	assert.Equal(t, TypeText, blocks[0].Type)
	assert.Equal(t, TypeLadder, blocks[1].Type)
	assert.Equal(t, TypePLCCode, blocks[2].Type)
	assert.Equal(t, &Validation{
		Status:     StatusValid,
		Executable: true,
		Reason:     "ok",
		Warnings:   []string{"w1", "w2"},
	}, blocks[1].Validation)
	assert.Nil(t, blocks[2].Validation)
}

func TestNormalizeResponsesRecord(t *testing.T) {
	raw := Record{"responses": List{
		Record{"type": Text("text"), "content": Text("first")},
		Record{"type": Text("text"), "content": Text("second")},
	}}

	got := Normalize(raw)

	require.IsType(t, StructuredBlocks{}, got)
	blocks := got.(StructuredBlocks).Blocks
	assert.Equal(t, "first", blocks[0].Content)
	assert.Equal(t, "second", blocks[1].Content)
}

func TestNormalizeSingleBlockRecord(t *testing.T) {
	got := Normalize(FromValue(map[string]any{"type": "plc-code", "content": "x := 1;"}))

	assert.Equal(t, StructuredBlocks{Blocks: []Block{{Type: TypePLCCode, Content: "x := 1;"}}}, got)
}

func TestNormalizeUnrecognizedRecord(t *testing.T) {
	got := Normalize(FromValue(map[string]any{"answer": "yes"}))

	assert.Equal(t, PlainText{Text: "{\n  \"answer\": \"yes\"\n}"}, got)
}

func TestRecordDumpKeepsComparisonsLiteral(t *testing.T) {
	got := Normalize(Record{"code": Text("IF a < b AND c > d & e THEN")})

	assert.Equal(t, PlainText{Text: "{\n  \"code\": \"IF a < b AND c > d & e THEN\"\n}"}, got)
	assert.Equal(t, "[\n  \"x <= 1\"\n]", DisplayString(List{Text("x <= 1")}))
}

func TestNormalizeNilRaw(t *testing.T) {
	assert.Equal(t, PlainText{Text: "null"}, Normalize(nil))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []Raw{
		Text("```json\n[{\"type\":\"text\",\"content\":\"hi\"}]\n```"),
		Text("```json\n```python\nprint(1)\n```"),
		Text(`[{"type":"text","content":"a"},{"type":"bogus"}]`),
		Text("plain words"),
		Text(""),
		Text("[]"),
		Number("42"),
		Bool(false),
		Null{},
		List{},
		List{Text("loose"), Number("7"), Record{"content": Text("no type")}},
		Record{"responses": List{}},
		Record{"responses": List{Record{"type": Text("ladder"), "content": Text("|--|"), "validation": Record{"status": Text("odd")}}}},
		Record{"type": Text("text"), "content": Text("single")},
		Record{"foo": List{Number("1"), Bool(true)}},
		FromJSON([]byte(`[{"type":"plc-code","content":"x","validation":{"status":"invalid","executable":false,"warnings":[]}}]`)),
	}

	for _, in := range inputs {
		first := Normalize(in)
		second := Normalize(first.Raw())
		assert.Equal(t, first, second, "input %#v", in)
	}
}

func TestStructuredBlocksNeverEmpty(t *testing.T) {
	inputs := []Raw{List{}, Record{"responses": List{}}, Text("[]"), Text("```json\n[]\n```")}
	for _, in := range inputs {
		_, structured := Normalize(in).(StructuredBlocks)
		assert.False(t, structured, "input %#v", in)
	}
}

func TestUnfence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n[1]\n```", "[1]"},
		{"```\n[1]\n```", "[1]"},
		{"  text  ", "text"},
		{"```", ""},
		{"no fence ```", "no fence"},
	}
	for _, tt := range tests {
		got := Unfence(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, got, Unfence(got))
	}
}

func TestString(t *testing.T) {
	n := StructuredBlocks{Blocks: []Block{{Type: TypeText, Content: "a"}, {Type: TypeLadder, Content: "b"}}}

	assert.Equal(t, "a\n\nb", String(n))
	assert.Equal(t, "x", String(PlainText{Text: "x"}))
}
