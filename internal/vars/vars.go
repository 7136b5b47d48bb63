// Package vars resolves {{name}} placeholders against an environment's variables.
package vars

import (
	"regexp"
	"sort"
	"strings"

	"github.com/vedsharma/apiplay/internal/model"
)

// placeholder matches {{name}}; the name runs up to the first "}}" and may
// itself contain a single "}"
var placeholder = regexp.MustCompile(`\{\{(.+?)\}\}`)

// Substitute replaces every {{name}} in text with variables[name]. Names are
// trimmed before lookup. Unknown names are left verbatim and replacement
// values are never expanded again.
func Substitute(text string, variables map[string]string) string {
	if len(variables) == 0 || !strings.Contains(text, "{{") {
		return text
	}

	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if val, ok := variables[name]; ok {
			return val
		}
		return match
	})
}

// Resolve returns a copy of req with URL, header keys, header values and body
// substituted. ID, Name and Method pass through unchanged.
//
// Two header keys that resolve to the same name collapse into one entry; the
// value from the lexically greater original key wins.
func Resolve(req model.Request, variables map[string]string) model.Request {
	out := req.Clone()
	out.URL = Substitute(req.URL, variables)
	out.Body = Substitute(req.Body, variables)

	if req.Headers != nil {
		keys := make([]string, 0, len(req.Headers))
		for k := range req.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out.Headers = make(map[string]string, len(req.Headers))
		for _, k := range keys {
			out.Headers[Substitute(k, variables)] = Substitute(req.Headers[k], variables)
		}
	}

	return out
}

// Unresolved lists the distinct placeholder names still present in text,
// in order of first appearance.
func Unresolved(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// UnresolvedInRequest lists placeholder names left anywhere in a resolved request
func UnresolvedInRequest(req model.Request) []string {
	parts := []string{req.URL, req.Body}

	keys := make([]string, 0, len(req.Headers))
	for k := range req.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k, req.Headers[k])
	}

	return Unresolved(strings.Join(parts, "\n"))
}
