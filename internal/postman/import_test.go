package postman

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedsharma/apiplay/internal/model"
	"github.com/vedsharma/apiplay/internal/storage"
)

func parseRequests(t *testing.T, data string) []model.Request {
	t.Helper()
	doc, err := Parse([]byte(data))
	require.NoError(t, err)
	return doc.Requests()
}

func TestParseRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"empty object", `{}`, ErrInvalidFormat},
		{"missing item", `{"info": {"name": "x"}}`, ErrInvalidFormat},
		{"missing info", `{"item": []}`, ErrInvalidFormat},
		{"null info", `{"info": null, "item": []}`, ErrInvalidFormat},
		{"item not array", `{"info": {}, "item": {}}`, ErrInvalidFormat},
		{"top-level array", `[]`, ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseErrorOnMalformedJSON(t *testing.T) {
	for _, data := range []string{"", "{", `{"info": }`, "not json"} {
		_, err := Parse([]byte(data))
		var perr *ParseError
		require.True(t, errors.As(err, &perr), "input %q", data)
		assert.NotErrorIs(t, err, ErrInvalidFormat)
	}
}

func TestParseMetadataDefaults(t *testing.T) {
	doc, err := Parse([]byte(`{"info": {}, "item": []}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultCollectionName, doc.Name)
	assert.Equal(t, DefaultCollectionDescription, doc.Description)
	assert.Empty(t, doc.Requests())

	doc, err = Parse([]byte(`{"info": {"name": "Shop", "description": {"content": "shop api"}}, "item": []}`))
	require.NoError(t, err)
	assert.Equal(t, "Shop", doc.Name)
	assert.Equal(t, "shop api", doc.Description)
}

func TestImportFolderFlattening(t *testing.T) {
	reqs := parseRequests(t, `{
		"info": {"name": "nested"},
		"item": [
			{"name": "folder", "item": [
				{"name": "A", "request": {"method": "GET", "url": "https://example.com/a"}},
				{"name": "inner", "item": [
					{"name": "A2", "request": {"method": "GET", "url": "https://example.com/a2"}}
				]}
			]},
			{"name": "B", "request": {"method": "POST", "url": "https://example.com/b"}},
			{"name": "neither"},
			{"name": "string request", "request": "https://example.com/ignored"}
		]
	}`)

	require.Len(t, reqs, 3)
	assert.Equal(t, "A", reqs[0].Name)
	assert.Equal(t, "A2", reqs[1].Name)
	assert.Equal(t, "B", reqs[2].Name)
	assert.Equal(t, "POST", reqs[2].Method)
}

func TestImportLeafDefaults(t *testing.T) {
	reqs := parseRequests(t, `{"info": {}, "item": [{"request": {}}]}`)
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.Equal(t, model.DefaultRequestName, req.Name)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "", req.URL)
	assert.Equal(t, map[string]string{}, req.Headers)
	assert.Equal(t, "", req.Body)
	assert.Equal(t, "", req.Description)
}

func TestImportHeaders(t *testing.T) {
	reqs := parseRequests(t, `{"info": {}, "item": [{"request": {
		"method": "GET",
		"url": "https://example.com",
		"header": [
			{"key": "Accept", "value": "application/json", "type": "text"},
			{"key": "X-Off", "value": "1", "type": "disabled"},
			{"key": "X-Also-Off", "value": "1", "disabled": true},
			{"key": "X-No-Value"},
			{"value": "no key"},
			{"key": "X-Empty", "value": ""}
		]
	}}]}`)

	assert.Equal(t, map[string]string{"Accept": "application/json", "X-Empty": ""}, reqs[0].Headers)
}

func TestImportURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain string", `"{{base}}/users"`, "{{base}}/users"},
		{"raw preferred", `{"raw": "https://raw.example.com/x", "host": ["other"], "path": ["y"]}`, "https://raw.example.com/x"},
		{
			"reconstructed",
			`{"protocol": "http", "host": ["api", "example", "com"], "path": ["v1", "users"],
			  "query": [
				{"key": "q", "value": "a b&c"},
				{"key": "off", "value": "1", "disabled": true},
				{"key": "nokey"},
				{"key": "star", "value": "it's(*)!"}
			  ]}`,
			"http://api.example.com/v1/users?q=a%20b%26c&star=it's(*)!",
		},
		{"string host and path", `{"host": "example.com", "path": "items", "port": "8443"}`, "https://example.com:8443/items"},
		{"no path", `{"protocol": "https", "host": ["example", "com"]}`, "https://example.com/"},
		{"absent", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs := parseRequests(t, `{"info": {}, "item": [{"request": {"url": `+tt.url+`}}]}`)
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.want, reqs[0].URL)
		})
	}
}

func TestImportBodyModes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"raw", `{"mode": "raw", "raw": "{\"a\": 1}"}`, `{"a": 1}`},
		{
			"formdata drops files",
			`{"mode": "formdata", "formdata": [{"key": "x", "value": "1", "type": "text"}, {"key": "f", "type": "file", "src": "/tmp/a"}]}`,
			"{\n  \"x\": \"1\"\n}",
		},
		{
			"formdata file with value",
			`{"mode": "formdata", "formdata": [{"key": "f", "value": "a.png", "type": "file"}]}`,
			"{}",
		},
		{
			"urlencoded",
			`{"mode": "urlencoded", "urlencoded": [{"key": "a", "value": "1"}, {"key": "b", "value": "<2>"}, {"key": "a", "value": "3"}, {"key": "off", "value": "x", "disabled": true}]}`,
			"{\n  \"a\": \"3\",\n  \"b\": \"<2>\"\n}",
		},
		{"graphql unsupported", `{"mode": "graphql", "graphql": {"query": "{ a }"}}`, ""},
		{"missing mode", `{"raw": "ignored"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs := parseRequests(t, `{"info": {}, "item": [{"request": {"method": "POST", "body": `+tt.body+`}}]}`)
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.want, reqs[0].Body)
		})
	}
}

func TestImportDescriptionFallback(t *testing.T) {
	reqs := parseRequests(t, `{"info": {}, "item": [
		{"name": "a", "description": "from item", "request": {}},
		{"name": "b", "description": "from item", "request": {"description": {"content": "from request"}}}
	]}`)

	assert.Equal(t, "from item", reqs[0].Description)
	assert.Equal(t, "from request", reqs[1].Description)
}

func TestRoundTrip(t *testing.T) {
	original := model.Request{
		Name:   "Create user",
		Method: "PATCH",
		URL:    "{{baseUrl}}/users/{{id}}?expand=true",
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer {{token}}",
		},
		Body:        "{\n  \"name\": \"Ada\",\n  \"tags\": [\"x\"]\n}",
		Description: "updates a user",
	}

	data, err := Marshal(ExportRequest(original))
	require.NoError(t, err)

	reqs := parseRequests(t, string(data))
	require.Len(t, reqs, 1)

	got := reqs[0]
	assert.Equal(t, original.Method, got.Method)
	assert.Equal(t, original.Headers, got.Headers)
	assert.Equal(t, original.Body, got.Body)
	assert.Equal(t, original.URL, got.URL)
	assert.Equal(t, original.Name, got.Name)
	assert.Equal(t, original.Description, got.Description)
}

func TestImporterWritesInOrder(t *testing.T) {
	store := storage.NewMemoryStorage(storage.Options{})
	importer := NewImporter(store, nil)

	result, err := importer.Import([]byte(`{
		"info": {"name": "Shop"},
		"item": [
			{"item": [{"name": "A", "request": {"method": "GET", "url": "https://example.com/a"}}]},
			{"name": "B", "request": {"method": "GET", "url": "https://example.com/b"}}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Shop", result.Collection.Name)
	require.Len(t, result.Requests, 2)

	col, err := store.GetCollection(result.Collection.ID)
	require.NoError(t, err)
	require.Len(t, col.Requests, 2)
	assert.Equal(t, "A", col.Requests[0].Name)
	assert.Equal(t, 0, col.Requests[0].Position)
	assert.Equal(t, "B", col.Requests[1].Name)
	assert.Equal(t, 1, col.Requests[1].Position)

	all, err := store.GetCollections()
	require.NoError(t, err)
	assert.Len(t, all, 1, "folders create no collections")

	active, err := store.ActiveCollectionID()
	require.NoError(t, err)
	assert.Equal(t, result.Collection.ID, active)
}

// countingStore records writes and can fail the nth AddRequestToCollection
type countingStore struct {
	*storage.MemoryStorage
	creates int
	adds    int
	failAt  int
}

func (s *countingStore) CreateCollection(name, description, color string) (*model.Collection, error) {
	s.creates++
	return s.MemoryStorage.CreateCollection(name, description, color)
}

func (s *countingStore) AddRequestToCollection(id string, req model.Request) (*model.Request, error) {
	s.adds++
	if s.failAt > 0 && s.adds == s.failAt {
		return nil, errors.New("backend unavailable")
	}
	return s.MemoryStorage.AddRequestToCollection(id, req)
}

func TestImporterInvalidDocumentWritesNothing(t *testing.T) {
	store := &countingStore{MemoryStorage: storage.NewMemoryStorage(storage.Options{})}
	importer := NewImporter(store, nil)

	_, err := importer.Import([]byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = importer.Import([]byte(`{"info":`))
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)

	assert.Zero(t, store.creates)
	assert.Zero(t, store.adds)
}

func TestImporterRemovesPartialCollection(t *testing.T) {
	store := &countingStore{MemoryStorage: storage.NewMemoryStorage(storage.Options{}), failAt: 2}
	importer := NewImporter(store, nil)

	_, err := importer.Import([]byte(`{"info": {}, "item": [
		{"request": {"url": "https://example.com/1"}},
		{"request": {"url": "https://example.com/2"}},
		{"request": {"url": "https://example.com/3"}}
	]}`))

	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, 1, werr.Written)
	assert.NoError(t, werr.Cleanup)
	assert.Equal(t, 2, store.adds, "the walk stops at the first failure")

	all, err := store.GetCollections()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImportCoercesScalarFields(t *testing.T) {
	reqs := parseRequests(t, `{"info": {"name": 7}, "item": [
		{"name": 42, "request": {
			"method": "POST",
			"url": {"host": ["example", "com"], "path": ["v", 2], "query": [{"key": "page", "value": 1}, {"key": "all", "value": true}, "junk"]},
			"header": [{"key": "X-Count", "value": 3}, {"key": "Accept", "value": "*/*"}, {"key": "X-Off", "value": "1", "disabled": "true"}],
			"body": {"mode": "urlencoded", "urlencoded": [{"key": "n", "value": 5}, {"key": "s", "value": "x"}]}
		}}
	]}`)
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.Equal(t, "42", req.Name)
	assert.Equal(t, "https://example.com/v/2?page=1&all=true", req.URL)
	assert.Equal(t, map[string]string{"X-Count": "3", "Accept": "*/*"}, req.Headers)
	assert.Equal(t, "{\n  \"n\": \"5\",\n  \"s\": \"x\"\n}", req.Body)
}

func TestImportKeepsRawURLWithOddQuery(t *testing.T) {
	reqs := parseRequests(t, `{"info": {}, "item": [{"request": {"url": {
		"raw": "https://example.com/items?page=1",
		"query": [{"key": "page", "value": 1}]
	}}}]}`)
	require.Len(t, reqs, 1)
	assert.Equal(t, "https://example.com/items?page=1", reqs[0].URL)
}

func TestParseNonObjectInfoUsesDefaults(t *testing.T) {
	doc, err := Parse([]byte(`{"info": "x", "item": []}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultCollectionName, doc.Name)
	assert.Equal(t, DefaultCollectionDescription, doc.Description)

	doc, err = Parse([]byte(`{"info": {"name": 7}, "item": []}`))
	require.NoError(t, err)
	assert.Equal(t, "7", doc.Name)
}
