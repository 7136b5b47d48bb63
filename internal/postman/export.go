package postman

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/vedsharma/apiplay/internal/model"
)

// ExportName names single-request exports
const ExportName = "API Playground Export"

// ExportRequest wraps one request in a single-item collection
func ExportRequest(req model.Request) *Collection {
	return &Collection{
		Info: newInfo(ExportName, ""),
		Item: []Item{exportItem(req)},
	}
}

// ExportCollection exports every request of col as a flat item list, in
// stored order
func ExportCollection(col *model.Collection) *Collection {
	items := make([]Item, 0, len(col.Requests))
	for _, req := range col.Requests {
		items = append(items, exportItem(req))
	}

	name := col.Name
	if name == "" {
		name = ExportName
	}

	return &Collection{
		Info: newInfo(name, col.Description),
		Item: items,
	}
}

func newInfo(name, description string) Info {
	return Info{
		PostmanID:   uuid.New().String(),
		Name:        name,
		Description: description,
		Schema:      SchemaURL,
	}
}

func exportItem(req model.Request) Item {
	out := Request{
		Method:      req.Method,
		Header:      exportHeaders(req.Headers),
		URL:         exportURL(req.URL),
		Description: req.Description,
	}

	if req.Body != "" {
		out.Body = &Body{
			Mode:    "raw",
			Raw:     req.Body,
			Options: &BodyOptions{Raw: RawOptions{Language: "json"}},
		}
	}

	return Item{Name: req.DisplayName(), Request: out}
}

// exportHeaders emits headers sorted by key so output is stable
func exportHeaders(headers map[string]string) []Header {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Header, 0, len(keys))
	for _, k := range keys {
		out = append(out, Header{Key: k, Value: headers[k], Type: "text"})
	}
	return out
}

// exportURL decomposes an absolute URL. Anything that is not an absolute
// URL with a host (relative paths, unresolved {{var}} prefixes) falls back
// to https://localhost with no path; Raw is kept either way.
func exportURL(raw string) URL {
	out := URL{
		Raw:      raw,
		Protocol: "https",
		Host:     []string{"localhost"},
		Path:     []string{},
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return out
	}

	out.Protocol = parsed.Scheme
	out.Host = strings.Split(parsed.Hostname(), ".")
	out.Port = parsed.Port()

	for _, seg := range strings.Split(parsed.EscapedPath(), "/") {
		if seg != "" {
			out.Path = append(out.Path, seg)
		}
	}

	out.Query = splitQuery(parsed.RawQuery)
	return out
}

// splitQuery keeps parameters in query-string order, decoded
func splitQuery(rawQuery string) []Query {
	var out []Query
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		out = append(out, Query{Key: unescapeQuery(key), Value: unescapeQuery(value)})
	}
	return out
}

func unescapeQuery(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// Marshal renders a document as 2-space indented JSON without HTML escaping
func Marshal(c *Collection) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9]+`)

// FileName suggests a download name such as "users-api.postman_collection.json"
func FileName(name string) string {
	slug := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "collection"
	}
	return slug + ".postman_collection.json"
}
