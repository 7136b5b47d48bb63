// Package postman converts between saved requests and Postman Collection
// v2.1 documents.
package postman

import (
	"bytes"
	"encoding/json"
)

// SchemaURL is the schema declared by every exported document
const SchemaURL = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// Collection is the exported document. Export never nests folders, so items
// are always request leaves.
type Collection struct {
	Info Info   `json:"info"`
	Item []Item `json:"item"`
}

// Info contains collection metadata
type Info struct {
	PostmanID   string `json:"_postman_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Schema      string `json:"schema"`
}

// Item is one exported request leaf
type Item struct {
	Name    string  `json:"name"`
	Request Request `json:"request"`
}

// Request is the Postman request object
type Request struct {
	Method      string   `json:"method"`
	Header      []Header `json:"header"`
	Body        *Body    `json:"body,omitempty"`
	URL         URL      `json:"url"`
	Description string   `json:"description,omitempty"`
}

// URL is the structured Postman URL. Raw always carries the original string.
type URL struct {
	Raw      string   `json:"raw"`
	Protocol string   `json:"protocol"`
	Host     []string `json:"host"`
	Port     string   `json:"port,omitempty"`
	Path     []string `json:"path"`
	Query    []Query  `json:"query,omitempty"`
}

// Query is one query-string parameter
type Query struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Header is one request header
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Body is a raw-mode request body
type Body struct {
	Mode    string       `json:"mode"`
	Raw     string       `json:"raw"`
	Options *BodyOptions `json:"options,omitempty"`
}

// BodyOptions declares the raw body language
type BodyOptions struct {
	Raw RawOptions `json:"raw"`
}

// RawOptions names the raw body language
type RawOptions struct {
	Language string `json:"language"`
}

// Import-side shapes. Postman files in the wild vary, so these decode
// leniently: scalar fields accept strings, numbers and booleans, and a field
// of the wrong shape is treated as absent instead of failing its parent.

type rawDocument struct {
	Info json.RawMessage `json:"info"`
	Item json.RawMessage `json:"item"`
}

type rawInfo struct {
	Name        Scalar      `json:"name"`
	Description Description `json:"description"`
}

type rawNode struct {
	Name        Scalar          `json:"name"`
	Description Description     `json:"description"`
	Item        json.RawMessage `json:"item"`
	Request     json.RawMessage `json:"request"`
}

type rawRequest struct {
	Method      Scalar          `json:"method"`
	Header      json.RawMessage `json:"header"`
	Body        json.RawMessage `json:"body"`
	URL         json.RawMessage `json:"url"`
	Description Description     `json:"description"`
}

type rawHeader struct {
	Key      Scalar `json:"key"`
	Value    Scalar `json:"value"`
	Type     Scalar `json:"type"`
	Disabled Flag   `json:"disabled"`
}

type rawURL struct {
	Raw      Scalar          `json:"raw"`
	Protocol Scalar          `json:"protocol"`
	Host     StringList      `json:"host"`
	Port     Scalar          `json:"port"`
	Path     StringList      `json:"path"`
	Query    json.RawMessage `json:"query"`
}

type rawQuery struct {
	Key      Scalar `json:"key"`
	Value    Scalar `json:"value"`
	Disabled Flag   `json:"disabled"`
}

type rawBody struct {
	Mode       Scalar          `json:"mode"`
	Raw        Scalar          `json:"raw"`
	FormData   json.RawMessage `json:"formdata"`
	URLEncoded json.RawMessage `json:"urlencoded"`
}

type rawField struct {
	Key      Scalar `json:"key"`
	Value    Scalar `json:"value"`
	Type     Scalar `json:"type"`
	Disabled Flag   `json:"disabled"`
}

// Scalar is a string-valued field that also accepts a JSON number or boolean,
// keeping its literal text. Set is false when the field is absent, null or
// not a scalar.
type Scalar struct {
	Value string
	Set   bool
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	*s = Scalar{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	switch c := trimmed[0]; {
	case c == '"':
		var v string
		if err := json.Unmarshal(trimmed, &v); err == nil {
			*s = Scalar{Value: v, Set: true}
		}
	case c == 't' || c == 'f' || c == '-' || (c >= '0' && c <= '9'):
		*s = Scalar{Value: string(trimmed), Set: true}
	}
	return nil
}

// String returns the value, or "" when unset
func (s Scalar) String() string { return s.Value }

// Flag is a boolean that also accepts "true"/"false" strings. Anything else is false.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var sc Scalar
	_ = sc.UnmarshalJSON(data)
	*f = Flag(sc.Value == "true")
	return nil
}

// decodeList decodes a JSON array element by element. A malformed element is
// skipped without affecting its siblings; a non-array yields nil.
func decodeList[T any](raw json.RawMessage) []T {
	if jsonKind(raw) != '[' {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if jsonKind(item) != '{' {
			continue
		}
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Description accepts either a plain string or a {"content": "..."} object.
// Any other shape decodes as empty.
type Description string

func (d *Description) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = Description(s)
		return nil
	}

	var obj struct {
		Content Scalar `json:"content"`
	}
	if jsonKind(data) == '{' {
		if err := json.Unmarshal(data, &obj); err == nil {
			*d = Description(obj.Content.Value)
			return nil
		}
	}

	*d = ""
	return nil
}

// StringList accepts a JSON scalar or an array of scalars. Numbers and
// booleans keep their literal text; other elements are dropped.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var one Scalar
	_ = one.UnmarshalJSON(data)
	if one.Set {
		*l = StringList{one.Value}
		return nil
	}

	var items []json.RawMessage
	if jsonKind(data) != '[' || json.Unmarshal(data, &items) != nil {
		*l = nil
		return nil
	}

	out := make(StringList, 0, len(items))
	for _, item := range items {
		var sc Scalar
		_ = sc.UnmarshalJSON(item)
		if sc.Set {
			out = append(out, sc.Value)
		}
	}
	*l = out
	return nil
}

// jsonKind reports the first significant byte of a JSON value: '{', '[',
// '"', or 0 for anything else (including absent or null).
func jsonKind(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	switch trimmed[0] {
	case '{', '[', '"':
		return trimmed[0]
	}
	return 0
}
