package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vedsharma/apiplay/internal/model"
)

func TestSubstitute(t *testing.T) {
	variables := map[string]string{"a": "1", "b": "2", "host": "api.example.com", "nested": "{{a}}", "a}b": "X"}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"resolved and unresolved", "{{a}}-{{b}}-{{c}}", "1-2-{{c}}"},
		{"trimmed name", "{{ a }}", "1"},
		{"unresolved keeps whitespace", "{{ missing }}", "{{ missing }}"},
		{"no placeholders", "plain text", "plain text"},
		{"single pass only", "{{nested}}", "{{a}}"},
		{"embedded in url", "https://{{host}}/v1", "https://api.example.com/v1"},
		{"empty braces untouched", "{{}}", "{{}}"},
		{"unterminated", "{{a", "{{a"},
		{"name with a single brace", "{{a}b}}", "X"},
		{"brace after placeholder", `{"id": {{a}}}`, `{"id": 1}`},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.text, variables))
		})
	}
}

func TestSubstituteEmptyVariablesIsIdentity(t *testing.T) {
	for _, text := range []string{"", "abc", "{{a}}", "{{ a }}-{{b}}", "{{", "}}{{x}}"} {
		assert.Equal(t, text, Substitute(text, map[string]string{}))
		assert.Equal(t, text, Substitute(text, nil))
	}
}

func TestResolve(t *testing.T) {
	req := model.Request{
		ID:     "r1",
		Name:   "{{a}} name",
		Method: "{{a}}",
		URL:    "{{base}}/users",
		Headers: map[string]string{
			"{{hdr}}":      "{{token}}",
			"Content-Type": "application/json",
			"X-Unresolved": "{{nope}}",
		},
		Body: `{"id": {{a}}}`,
	}
	variables := map[string]string{
		"a":     "1",
		"base":  "https://api.example.com",
		"hdr":   "Authorization",
		"token": "Bearer abc",
	}

	got := Resolve(req, variables)

	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, "{{a}} name", got.Name)
	assert.Equal(t, "{{a}}", got.Method)
	assert.Equal(t, "https://api.example.com/users", got.URL)
	assert.Equal(t, `{"id": 1}`, got.Body)
	assert.Equal(t, map[string]string{
		"Authorization": "Bearer abc",
		"Content-Type":  "application/json",
		"X-Unresolved":  "{{nope}}",
	}, got.Headers)

	// the original keeps its placeholders
	assert.Equal(t, "{{base}}/users", req.URL)
	assert.Contains(t, req.Headers, "{{hdr}}")
}

func TestResolveKeysAndValuesIndependent(t *testing.T) {
	req := model.Request{Headers: map[string]string{"{{x}}": "{{x}}"}}
	got := Resolve(req, map[string]string{"x": "X-Name"})
	assert.Equal(t, map[string]string{"X-Name": "X-Name"}, got.Headers)
}

func TestUnresolved(t *testing.T) {
	assert.Equal(t, []string{"c", "d"}, Unresolved("1-{{c}}-{{ d }}-{{c}}"))
	assert.Equal(t, []string{"x}y"}, Unresolved("{{x}y}}"))
	assert.Empty(t, Unresolved("nothing here"))

	req := model.Request{
		URL:     "{{base}}/x",
		Headers: map[string]string{"X-Key": "{{key}}"},
		Body:    "{{base}}",
	}
	assert.Equal(t, []string{"base", "key"}, UnresolvedInRequest(req))
}
