package codegen

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// BodyKind says how a request body should be embedded in generated code
type BodyKind int

const (
	// BodyNone means the request has no body
	BodyNone BodyKind = iota
	// BodyJSON means the body parsed as JSON; Value holds the decoded tree
	BodyJSON
	// BodyText means the body is embedded as an escaped string
	BodyText
)

// Body is the classified request body. Every generator consumes the same
// classification.
type Body struct {
	Kind  BodyKind
	Raw   string
	Value any
}

// object is a decoded JSON object that remembers key order
type object struct {
	keys   []string
	values map[string]any
}

// ClassifyBody decides once whether body is JSON or plain text
func ClassifyBody(body string) Body {
	if body == "" {
		return Body{Kind: BodyNone}
	}

	value, err := decodeOrdered(body)
	if err != nil {
		return Body{Kind: BodyText, Raw: body}
	}
	return Body{Kind: BodyJSON, Raw: body, Value: value}
}

// Compact returns the JSON body without insignificant whitespace
func (b Body) Compact() string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(b.Raw)); err != nil {
		return b.Raw
	}
	return buf.String()
}

func decodeOrdered(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &object{values: make(map[string]any)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				if _, seen := obj.values[key]; !seen {
					obj.keys = append(obj.keys, key)
				}
				obj.values[key] = val
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, errors.New("unexpected delimiter")
	default:
		return t, nil
	}
}

// dialect describes how one language writes JSON-shaped literals
type dialect struct {
	null, yes, no     string
	emptyObject       string
	objOpen, objClose string
	arrOpen, arrClose string
	keySep            string
	indent            string
	quote             func(string) string
}

var (
	jsDialect = dialect{
		null:        "null",
		yes:         "true",
		no:          "false",
		emptyObject: "{}",
		objOpen:     "{",
		objClose:    "}",
		arrOpen:     "[",
		arrClose:    "]",
		keySep:      ": ",
		indent:      "  ",
		quote:       jsonQuote,
	}

	pythonDialect = dialect{
		null:        "None",
		yes:         "True",
		no:          "False",
		emptyObject: "{}",
		objOpen:     "{",
		objClose:    "}",
		arrOpen:     "[",
		arrClose:    "]",
		keySep:      ": ",
		indent:      "    ",
		quote:       jsonQuote,
	}

	phpDialect = dialect{
		null:        "null",
		yes:         "true",
		no:          "false",
		emptyObject: "(object) []",
		objOpen:     "[",
		objClose:    "]",
		arrOpen:     "[",
		arrClose:    "]",
		keySep:      " => ",
		indent:      "    ",
		quote:       phpQuote,
	}
)

// literal renders v; continuation lines are prefixed with prefix
func (d dialect) literal(v any, prefix string) string {
	inner := prefix + d.indent

	switch v := v.(type) {
	case nil:
		return d.null
	case bool:
		if v {
			return d.yes
		}
		return d.no
	case json.Number:
		return v.String()
	case string:
		return d.quote(v)
	case []any:
		if len(v) == 0 {
			return d.arrOpen + d.arrClose
		}
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = inner + d.literal(item, inner)
		}
		return d.arrOpen + "\n" + strings.Join(parts, ",\n") + "\n" + prefix + d.arrClose
	case *object:
		if len(v.keys) == 0 {
			return d.emptyObject
		}
		parts := make([]string, len(v.keys))
		for i, k := range v.keys {
			parts[i] = inner + d.quote(k) + d.keySep + d.literal(v.values[k], inner)
		}
		return d.objOpen + "\n" + strings.Join(parts, ",\n") + "\n" + prefix + d.objClose
	}
	return d.null
}

func jsonQuote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// phpQuote writes a single-quoted PHP string
func phpQuote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

// shellQuote writes a single-quoted POSIX shell word
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
