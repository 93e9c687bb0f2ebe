package content

// BlockType identifies the kind of payload a response block carries.
type BlockType string

const (
	TypeText    BlockType = "text"
	TypeLadder  BlockType = "ladder"
	TypePLCCode BlockType = "plc-code"
)

// Status is the validation verdict attached to ladder and PLC code blocks.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
	StatusUnknown Status = "unknown"
)

// Validation describes whether a generated diagram or program is expected to
// run on a common IEC 61131-3 runtime.
type Validation struct {
	Status     Status   `json:"status" yaml:"status"`
	Executable bool     `json:"executable" yaml:"executable"`
	Reason     string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Warnings   []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Block is one self-contained unit of assistant output.
type Block struct {
	Type       BlockType   `json:"type" yaml:"type"`
	Content    string      `json:"content" yaml:"content"`
	Validation *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// blockFromRaw builds a block from one element of a block list. Records map
// field by field; any other element becomes a text block of its display form.
func blockFromRaw(r Raw) Block {
	rec, ok := r.(Record)
	if !ok {
		return Block{Type: TypeText, Content: DisplayString(r)}
	}
	return Block{
		Type:       BlockType(fieldString(rec, "type")),
		Content:    fieldString(rec, "content"),
		Validation: validationFromRaw(rec["validation"]),
	}
}

func validationFromRaw(r Raw) *Validation {
	rec, ok := r.(Record)
	if !ok {
		return nil
	}
	v := &Validation{
		Status: Status(fieldString(rec, "status")),
		Reason: fieldString(rec, "reason"),
	}
	if b, ok := rec["executable"].(Bool); ok {
		v.Executable = bool(b)
	}
	if list, ok := rec["warnings"].(List); ok && len(list) > 0 {
		v.Warnings = make([]string, len(list))
		for i, w := range list {
			v.Warnings[i] = DisplayString(w)
		}
	}
	return v
}

// fieldString reads a record field as text. Missing and null fields are empty.
func fieldString(rec Record, key string) string {
	switch v := rec[key].(type) {
	case nil, Null:
		return ""
	case Text:
		return string(v)
	default:
		return DisplayString(v)
	}
}

// raw is the inverse of blockFromRaw for blocks that came from records.
func (b Block) raw() Raw {
	rec := Record{
		"type":    Text(b.Type),
		"content": Text(b.Content),
	}
	if b.Validation != nil {
		rec["validation"] = b.Validation.raw()
	}
	return rec
}

func (v *Validation) raw() Raw {
	rec := Record{
		"status":     Text(v.Status),
		"executable": Bool(v.Executable),
	}
	if v.Reason != "" {
		rec["reason"] = Text(v.Reason)
	}
	if len(v.Warnings) > 0 {
		list := make(List, len(v.Warnings))
		for i, w := range v.Warnings {
			list[i] = Text(w)
		}
		rec["warnings"] = list
	}
	return rec
}
