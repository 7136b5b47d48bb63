package postman

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/vedsharma/apiplay/internal/logging"
	"github.com/vedsharma/apiplay/internal/model"
	"github.com/vedsharma/apiplay/internal/storage"
)

// Defaults applied to imported metadata
const (
	DefaultCollectionName        = "Imported Collection"
	DefaultCollectionDescription = "Imported from Postman"
)

// ErrInvalidFormat is returned when a document lacks info or item
var ErrInvalidFormat = errors.New("invalid Postman collection format")

// ParseError reports input that is not valid JSON
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WriteError reports a failure inside the per-request write loop. Written
// requests were added before the failure; Cleanup is the error from
// deleting the partial collection, nil when the cleanup succeeded.
type WriteError struct {
	CollectionID string
	Written      int
	Err          error
	Cleanup      error
}

func (e *WriteError) Error() string {
	if e.Cleanup != nil {
		return fmt.Sprintf("import failed after %d requests: %v (cleanup of collection %s failed: %v)",
			e.Written, e.Err, e.CollectionID, e.Cleanup)
	}
	return fmt.Sprintf("import failed after %d requests: %v (partial collection removed)", e.Written, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Document is a parsed Postman collection, classified into a node tree
type Document struct {
	Name        string
	Description string
	Nodes       []Node
}

// Parse decodes and validates a Postman document. It fails with *ParseError
// for malformed JSON and ErrInvalidFormat when info or item is missing.
func Parse(data []byte) (*Document, error) {
	if !json.Valid(data) {
		var v any
		return nil, &ParseError{Err: json.Unmarshal(data, &v)}
	}

	if jsonKind(data) != '{' {
		return nil, ErrInvalidFormat
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}

	if isAbsent(raw.Info) || jsonKind(raw.Item) != '[' {
		return nil, ErrInvalidFormat
	}

	// info of any other shape counts as present with default metadata
	var info rawInfo
	if jsonKind(raw.Info) == '{' {
		_ = json.Unmarshal(raw.Info, &info)
	}

	doc := &Document{
		Name:        info.Name.Value,
		Description: string(info.Description),
		Nodes:       classifyItems(raw.Item),
	}
	if doc.Name == "" {
		doc.Name = DefaultCollectionName
	}
	if doc.Description == "" {
		doc.Description = DefaultCollectionDescription
	}
	return doc, nil
}

// Requests flattens the tree into requests, depth-first in document order.
// Folder structure is not kept.
func (d *Document) Requests() []model.Request {
	var out []model.Request
	walk(d.Nodes, func(leaf *Leaf) {
		out = append(out, leaf.toRequest())
	})
	return out
}

func (l *Leaf) toRequest() model.Request {
	req := model.Request{
		Name:        l.Name,
		Method:      l.request.Method.Value,
		URL:         importURL(l.request.URL),
		Headers:     importHeaders(l.request.Header),
		Body:        importBody(l.request.Body),
		Description: l.Description,
	}
	if req.Name == "" {
		req.Name = model.DefaultRequestName
	}
	if req.Method == "" {
		req.Method = "GET"
	}
	return req
}

// importHeaders skips disabled entries and entries without key or value
func importHeaders(raw json.RawMessage) map[string]string {
	headers := make(map[string]string)
	if jsonKind(raw) != '[' {
		return headers
	}

	for _, h := range decodeList[rawHeader](raw) {
		if h.Type.Value == "disabled" || bool(h.Disabled) || h.Key.Value == "" || !h.Value.Set {
			continue
		}
		headers[h.Key.Value] = h.Value.Value
	}
	return headers
}

// importURL prefers the raw string and otherwise rebuilds
// protocol://host/path?query from the structured parts
func importURL(raw json.RawMessage) string {
	switch jsonKind(raw) {
	case '"':
		var s string
		_ = json.Unmarshal(raw, &s)
		return s
	case '{':
	default:
		return ""
	}

	var u rawURL
	if err := json.Unmarshal(raw, &u); err != nil {
		return ""
	}
	if u.Raw.Value != "" {
		return u.Raw.Value
	}

	protocol := u.Protocol.Value
	if protocol == "" {
		protocol = "https"
	}

	var b strings.Builder
	b.WriteString(protocol)
	b.WriteString("://")
	b.WriteString(strings.Join(u.Host, "."))
	if u.Port.Value != "" {
		b.WriteString(":")
		b.WriteString(u.Port.Value)
	}
	b.WriteString("/")
	b.WriteString(strings.Join(u.Path, "/"))

	var pairs []string
	for _, q := range decodeList[rawQuery](u.Query) {
		if bool(q.Disabled) || q.Key.Value == "" || !q.Value.Set {
			continue
		}
		pairs = append(pairs, encodeURIComponent(q.Key.Value)+"="+encodeURIComponent(q.Value.Value))
	}
	if len(pairs) > 0 {
		b.WriteString("?")
		b.WriteString(strings.Join(pairs, "&"))
	}

	return b.String()
}

// encodeURIComponent leaves A-Z a-z 0-9 - _ . ! ~ * ' ( ) unescaped
func encodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	return strings.NewReplacer(
		"+", "%20",
		"%21", "!",
		"%27", "'",
		"%28", "(",
		"%29", ")",
		"%2A", "*",
	).Replace(escaped)
}

// importBody collapses every supported body mode into one raw string
func importBody(raw json.RawMessage) string {
	if jsonKind(raw) != '{' {
		return ""
	}

	var body rawBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	switch body.Mode.Value {
	case "raw":
		return body.Raw.Value
	case "formdata":
		return flattenFields(decodeList[rawField](body.FormData), true)
	case "urlencoded":
		return flattenFields(decodeList[rawField](body.URLEncoded), false)
	default:
		return ""
	}
}

// flattenFields renders key/value fields as a 2-space indented JSON object.
// A repeated key keeps its first position and takes the last value.
func flattenFields(fields []rawField, skipFiles bool) string {
	var keys []string
	values := make(map[string]string)

	for _, f := range fields {
		if bool(f.Disabled) || f.Key.Value == "" || !f.Value.Set {
			continue
		}
		if skipFiles && f.Type.Value == "file" {
			continue
		}
		if _, seen := values[f.Key.Value]; !seen {
			keys = append(keys, f.Key.Value)
		}
		values[f.Key.Value] = f.Value.Value
	}

	if len(keys) == 0 {
		return "{}"
	}

	var b strings.Builder
	b.WriteString("{\n")
	for i, k := range keys {
		b.WriteString("  ")
		b.WriteString(jsonString(k))
		b.WriteString(": ")
		b.WriteString(jsonString(values[k]))
		if i < len(keys)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// isAbsent reports a missing or null JSON value
func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

func jsonString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// Result is what an import produced
type Result struct {
	Collection *model.Collection
	Requests   []model.Request
}

// Importer writes parsed documents through a collection store
type Importer struct {
	store  storage.CollectionStore
	logger *slog.Logger
}

// NewImporter creates an Importer. A nil logger discards output.
func NewImporter(store storage.CollectionStore, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Importer{store: store, logger: logger}
}

// Import parses data and stores it as a new collection. Nothing is written
// unless the whole document parses.
func (i *Importer) Import(data []byte) (*Result, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return i.ImportDocument(doc)
}

// ImportDocument creates the collection, adds each request one at a time in
// traversal order and makes the new collection active. If a write fails the
// partial collection is deleted and a *WriteError returned.
func (i *Importer) ImportDocument(doc *Document) (*Result, error) {
	requests := doc.Requests()

	col, err := i.store.CreateCollection(doc.Name, doc.Description, "")
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	result := &Result{Collection: col, Requests: make([]model.Request, 0, len(requests))}
	for _, req := range requests {
		stored, err := i.store.AddRequestToCollection(col.ID, req)
		if err != nil {
			return nil, i.abort(col.ID, len(result.Requests), err)
		}
		result.Requests = append(result.Requests, *stored)
	}
	col.Requests = result.Requests

	if err := i.store.SetActiveCollectionID(col.ID); err != nil {
		return nil, i.abort(col.ID, len(result.Requests), fmt.Errorf("set active collection: %w", err))
	}

	i.logger.Info("postman collection imported", "collection", col.ID, "name", col.Name, "requests", len(result.Requests))
	return result, nil
}

func (i *Importer) abort(collectionID string, written int, cause error) error {
	werr := &WriteError{CollectionID: collectionID, Written: written, Err: cause}
	if err := i.store.DeleteCollection(collectionID); err != nil {
		werr.Cleanup = err
		i.logger.Error("partial import left behind", "collection", collectionID, "written", written, "error", err)
	} else {
		i.logger.Warn("partial import rolled back", "collection", collectionID, "written", written, "error", cause)
	}
	return werr
}
