// Package content turns assistant replies of unknown shape into a typed,
// renderable value.
//
// Replies arrive either already structured (the backend decoded the model
// output) or as raw text that may contain a fenced JSON array. Both forms are
// represented as a Raw value and reduced to a Normalized value by Normalize.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Raw is message content exactly as received. The set of implementations is
// closed: Text, List, Record, Number, Bool and Null.
type Raw interface {
	isRaw()
}

// Text is a raw string payload.
type Text string

// List is an ordered sequence of raw values.
type List []Raw

// Record is a keyed record of raw values.
type Record map[string]Raw

// Number holds a numeric literal in its textual form ("42", "3.5").
type Number string

// Bool is a raw boolean.
type Bool bool

// Null is the absent/null value.
type Null struct{}

func (Text) isRaw()   {}
func (List) isRaw()   {}
func (Record) isRaw() {}
func (Number) isRaw() {}
func (Bool) isRaw()   {}
func (Null) isRaw()   {}

// FromJSON decodes a JSON document into a Raw value. Empty input is Null;
// input that is not valid JSON is kept as Text.
func FromJSON(data []byte) Raw {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Null{}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Text(string(data))
	}
	// Trailing data after the first value makes the document invalid.
	if _, err := dec.Token(); err != io.EOF {
		return Text(string(data))
	}
	return FromValue(v)
}

// FromValue converts a decoded Go value (as produced by encoding/json or built
// by hand) into a Raw value.
func FromValue(v any) Raw {
	switch t := v.(type) {
	case nil:
		return Null{}
	case Raw:
		return t
	case string:
		return Text(t)
	case bool:
		return Bool(t)
	case json.Number:
		return Number(t.String())
	case float64:
		return Number(formatFloat(t))
	case float32:
		return Number(formatFloat(float64(t)))
	case int:
		return Number(strconv.Itoa(t))
	case int64:
		return Number(strconv.FormatInt(t, 10))
	case []any:
		out := make(List, len(t))
		for i, e := range t {
			out[i] = FromValue(e)
		}
		return out
	case []string:
		out := make(List, len(t))
		for i, e := range t {
			out[i] = Text(e)
		}
		return out
	case map[string]any:
		out := make(Record, len(t))
		for k, e := range t {
			out[k] = FromValue(e)
		}
		return out
	case json.RawMessage:
		return FromJSON(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(strconv.FormatUint(rv.Uint(), 10))
	}

	// Structs and other composite values go through their JSON form.
	data, err := json.Marshal(v)
	if err != nil {
		return Text(fmt.Sprint(v))
	}
	return FromJSON(data)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toValue converts a Raw value back into plain Go values for encoding.
func toValue(r Raw) any {
	switch t := r.(type) {
	case Text:
		return string(t)
	case Number:
		return json.Number(t)
	case Bool:
		return bool(t)
	case List:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toValue(e)
		}
		return out
	case Record:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = toValue(e)
		}
		return out
	}
	return nil
}

// MarshalJSON encodes a Raw value as JSON.
func MarshalJSON(r Raw) ([]byte, error) {
	return json.Marshal(toValue(r))
}

// DisplayString coerces a raw value into text for display. Records and lists
// are dumped as indented JSON; scalars are converted directly.
func DisplayString(r Raw) string {
	switch t := r.(type) {
	case Text:
		return string(t)
	case Number:
		return string(t)
	case Bool:
		return strconv.FormatBool(bool(t))
	case nil, Null:
		return "null"
	}
	// PLC text is full of comparisons, so <, > and & stay literal.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toValue(r)); err != nil {
		return fmt.Sprint(toValue(r))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// truthy reports whether a raw value counts as present: non-empty text,
// non-zero numbers, true, and any list or record.
func truthy(r Raw) bool {
	switch t := r.(type) {
	case Text:
		return t != ""
	case Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return t != ""
		}
		return f != 0 && !math.IsNaN(f)
	case Bool:
		return bool(t)
	case List, Record:
		return true
	}
	return false
}
