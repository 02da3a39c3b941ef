package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AdviceKind tags which variant an Advice holds.
type AdviceKind string

const (
	AdviceText       AdviceKind = "text"
	AdviceStructured AdviceKind = "structured"
)

// Advice is either free text (usually markdown) or a structured JSON
// document. The variant is decided where the value is decoded, from the JSON
// token type or the stored kind column, never by inspecting text content.
type Advice struct {
	Kind     AdviceKind
	Text     string
	Document json.RawMessage
}

// PlainText builds a text Advice.
func PlainText(s string) Advice {
	return Advice{Kind: AdviceText, Text: s}
}

// Structured builds a document Advice. doc must be a JSON object or array.
func Structured(doc json.RawMessage) Advice {
	return Advice{Kind: AdviceStructured, Document: append(json.RawMessage(nil), doc...)}
}

// IsStructured reports whether a holds a JSON document.
func (a Advice) IsStructured() bool {
	return a.Kind == AdviceStructured
}

// KindOrDefault returns the kind, treating the zero value as text.
func (a Advice) KindOrDefault() AdviceKind {
	if a.Kind == "" {
		return AdviceText
	}
	return a.Kind
}

// Raw returns the value persisted in the advice column.
func (a Advice) Raw() string {
	if a.IsStructured() {
		return string(a.Document)
	}
	return a.Text
}

// Clone returns a copy that shares no memory with a.
func (a Advice) Clone() Advice {
	out := a
	if a.Document != nil {
		out.Document = append(json.RawMessage(nil), a.Document...)
	}
	return out
}

// AdviceFromColumns rebuilds an Advice from its stored kind and raw value.
func AdviceFromColumns(kind, raw string) (Advice, error) {
	switch AdviceKind(kind) {
	case AdviceText, "":
		return PlainText(raw), nil
	case AdviceStructured:
		if !json.Valid([]byte(raw)) {
			return Advice{}, fmt.Errorf("stored structured advice is not valid JSON")
		}
		return Structured(json.RawMessage(raw)), nil
	default:
		return Advice{}, fmt.Errorf("unknown advice kind %q", kind)
	}
}

func (a Advice) MarshalJSON() ([]byte, error) {
	if a.IsStructured() {
		if len(a.Document) == 0 {
			return []byte("null"), nil
		}
		return a.Document, nil
	}
	return json.Marshal(a.Text)
}

func (a *Advice) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = PlainText("")
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = PlainText(s)
	case '{', '[':
		if !json.Valid(b) {
			return fmt.Errorf("advice: invalid JSON document")
		}
		*a = Structured(json.RawMessage(b))
	default:
		return fmt.Errorf("advice: unsupported JSON value %s", b)
	}
	return nil
}

// Markdown renders the advice for display. Structured documents are shown as
// an indented JSON block.
func (a Advice) Markdown() string {
	if !a.IsStructured() {
		return a.Text
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, a.Document, "", "  "); err != nil {
		buf.Reset()
		buf.Write(a.Document)
	}
	var sb strings.Builder
	sb.WriteString("```json\n")
	sb.WriteString(buf.String())
	sb.WriteString("\n```\n")
	return sb.String()
}
