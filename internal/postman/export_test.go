package postman

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedsharma/apiplay/internal/model"
)

func TestExportURLDecomposition(t *testing.T) {
	doc := ExportRequest(model.Request{Method: "GET", URL: "https://api.example.com/v1/users?active=true"})
	require.Len(t, doc.Item, 1)

	u := doc.Item[0].Request.URL
	assert.Equal(t, "https://api.example.com/v1/users?active=true", u.Raw)
	assert.Equal(t, "https", u.Protocol)
	assert.Equal(t, []string{"api", "example", "com"}, u.Host)
	assert.Equal(t, []string{"v1", "users"}, u.Path)
	assert.Equal(t, []Query{{Key: "active", Value: "true"}}, u.Query)
	assert.Empty(t, u.Port)
}

func TestExportURLFallback(t *testing.T) {
	tests := []string{
		"{{baseUrl}}/users",
		"/relative/path",
		"https://{{host}}/users",
		"not a url at all",
		"",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			u := exportURL(raw)
			assert.Equal(t, raw, u.Raw)
			assert.Equal(t, "https", u.Protocol)
			assert.Equal(t, []string{"localhost"}, u.Host)
			assert.Equal(t, []string{}, u.Path)
			assert.Empty(t, u.Query)
		})
	}
}

func TestExportURLDetails(t *testing.T) {
	u := exportURL("http://localhost:8080//a//b%20c/?q=hello+world&empty=&flag&x=1&x=2")
	assert.Equal(t, "http", u.Protocol)
	assert.Equal(t, []string{"localhost"}, u.Host)
	assert.Equal(t, "8080", u.Port)
	assert.Equal(t, []string{"a", "b%20c"}, u.Path)
	assert.Equal(t, []Query{
		{Key: "q", Value: "hello world"},
		{Key: "empty", Value: ""},
		{Key: "flag", Value: ""},
		{Key: "x", Value: "1"},
		{Key: "x", Value: "2"},
	}, u.Query)
}

func TestExportRequest(t *testing.T) {
	req := model.Request{
		Name:        "Create user",
		Method:      "POST",
		URL:         "https://api.example.com/users",
		Headers:     map[string]string{"X-Trace": "1", "Content-Type": "application/json"},
		Body:        `{"name":"Ada"}`,
		Description: "creates a user",
	}

	doc := ExportRequest(req)
	assert.Equal(t, ExportName, doc.Info.Name)
	assert.Equal(t, SchemaURL, doc.Info.Schema)
	assert.NotEmpty(t, doc.Info.PostmanID)

	item := doc.Item[0]
	assert.Equal(t, "Create user", item.Name)
	assert.Equal(t, "POST", item.Request.Method)
	assert.Equal(t, "creates a user", item.Request.Description)
	assert.Equal(t, []Header{
		{Key: "Content-Type", Value: "application/json", Type: "text"},
		{Key: "X-Trace", Value: "1", Type: "text"},
	}, item.Request.Header)

	require.NotNil(t, item.Request.Body)
	assert.Equal(t, "raw", item.Request.Body.Mode)
	assert.Equal(t, `{"name":"Ada"}`, item.Request.Body.Raw)
	assert.Equal(t, "json", item.Request.Body.Options.Raw.Language)

	other := ExportRequest(req)
	assert.NotEqual(t, doc.Info.PostmanID, other.Info.PostmanID)
}

func TestExportOmitsEmptyBody(t *testing.T) {
	doc := ExportRequest(model.Request{Method: "GET", URL: "https://example.com"})
	assert.Nil(t, doc.Item[0].Request.Body)
	assert.Equal(t, model.DefaultRequestName, doc.Item[0].Name)

	data, err := Marshal(doc)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	request := generic["item"].([]any)[0].(map[string]any)["request"].(map[string]any)
	assert.NotContains(t, request, "body")
	assert.Equal(t, []any{}, request["header"])
}

func TestMarshalIndentation(t *testing.T) {
	doc := ExportRequest(model.Request{Method: "GET", URL: "https://example.com/?a=<b>"})
	data, err := Marshal(doc)
	require.NoError(t, err)

	s := string(data)
	assert.True(t, strings.HasPrefix(s, "{\n  \"info\": {\n    \"_postman_id\": "))
	assert.Contains(t, s, `"raw": "https://example.com/?a=<b>"`)
	assert.False(t, strings.HasSuffix(s, "\n"))
}

func TestExportCollectionIsFlat(t *testing.T) {
	col := &model.Collection{
		Name:        "Users API",
		Description: "all user calls",
		Requests: []model.Request{
			{Name: "one", Method: "GET", URL: "https://example.com/1"},
			{Name: "two", Method: "DELETE", URL: "https://example.com/2"},
		},
	}

	doc := ExportCollection(col)
	assert.Equal(t, "Users API", doc.Info.Name)
	assert.Equal(t, "all user calls", doc.Info.Description)
	require.Len(t, doc.Item, 2)
	assert.Equal(t, "one", doc.Item[0].Name)
	assert.Equal(t, "two", doc.Item[1].Name)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "api-playground-export.postman_collection.json", FileName(ExportName))
	assert.Equal(t, "collection.postman_collection.json", FileName("!!!"))
}
