// Package codegen renders a resolved request as runnable source in several
// languages.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vedsharma/apiplay/internal/model"
)

// Generator renders one language. The body is classified by the caller.
type Generator func(req model.Request, body Body) string

// Language is one supported target
type Language struct {
	Name     string
	Label    string
	Generate Generator
}

// Languages lists every target in display order
var Languages = []Language{
	{Name: "curl", Label: "cURL", Generate: Curl},
	{Name: "fetch", Label: "JavaScript (fetch)", Generate: Fetch},
	{Name: "python", Label: "Python (requests)", Generate: Python},
	{Name: "axios", Label: "Node.js (axios)", Generate: Axios},
	{Name: "php", Label: "PHP (cURL)", Generate: PHP},
}

// Snippet is generated source for one language
type Snippet struct {
	Language Language
	Source   string
}

// Lookup finds a language by name
func Lookup(name string) (Language, bool) {
	for _, lang := range Languages {
		if lang.Name == strings.ToLower(name) {
			return lang, true
		}
	}
	return Language{}, false
}

// Names returns the supported language names
func Names() []string {
	names := make([]string, len(Languages))
	for i, lang := range Languages {
		names[i] = lang.Name
	}
	return names
}

// Generate renders req in one language. req should already be resolved.
func Generate(name string, req model.Request) (string, error) {
	lang, ok := Lookup(name)
	if !ok {
		return "", fmt.Errorf("unknown language %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return lang.Generate(req, ClassifyBody(req.Body)), nil
}

// GenerateAll renders req in every language, classifying the body once
func GenerateAll(req model.Request) []Snippet {
	body := ClassifyBody(req.Body)

	snippets := make([]Snippet, len(Languages))
	for i, lang := range Languages {
		snippets[i] = Snippet{Language: lang, Source: lang.Generate(req, body)}
	}
	return snippets
}

func sortedHeaderKeys(headers map[string]string) []string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func method(req model.Request) string {
	if req.Method == "" {
		return "GET"
	}
	return strings.ToUpper(req.Method)
}

// Curl renders a curl command line
func Curl(req model.Request, body Body) string {
	lines := []string{fmt.Sprintf("curl -X %s %s", method(req), shellQuote(req.URL))}

	for _, k := range sortedHeaderKeys(req.Headers) {
		lines = append(lines, "  -H "+shellQuote(k+": "+req.Headers[k]))
	}

	switch body.Kind {
	case BodyJSON:
		lines = append(lines, "  --data-raw "+shellQuote(body.Compact()))
	case BodyText:
		lines = append(lines, "  --data-raw "+shellQuote(body.Raw))
	}

	return strings.Join(lines, " \\\n")
}

// jsHeaders renders a JS object literal of headers at the given prefix
func jsHeaders(headers map[string]string, prefix string) string {
	inner := prefix + "  "
	parts := make([]string, 0, len(headers))
	for _, k := range sortedHeaderKeys(headers) {
		parts = append(parts, inner+jsonQuote(k)+": "+jsonQuote(headers[k]))
	}
	return "{\n" + strings.Join(parts, ",\n") + "\n" + prefix + "}"
}

// Fetch renders a browser/Node fetch call
func Fetch(req model.Request, body Body) string {
	opts := []string{"  method: " + jsonQuote(method(req))}
	if len(req.Headers) > 0 {
		opts = append(opts, "  headers: "+jsHeaders(req.Headers, "  "))
	}

	switch body.Kind {
	case BodyJSON:
		opts = append(opts, "  body: JSON.stringify("+jsDialect.literal(body.Value, "  ")+")")
	case BodyText:
		opts = append(opts, "  body: "+jsonQuote(body.Raw))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "fetch(%s, {\n", jsonQuote(req.URL))
	b.WriteString(strings.Join(opts, ",\n"))
	b.WriteString("\n})\n")
	b.WriteString("  .then((response) => response.text())\n")
	b.WriteString("  .then((result) => console.log(result))\n")
	b.WriteString("  .catch((error) => console.error(error));")
	return b.String()
}

// Axios renders a Node.js axios call
func Axios(req model.Request, body Body) string {
	opts := []string{
		"  method: " + jsonQuote(strings.ToLower(method(req))),
		"  url: " + jsonQuote(req.URL),
	}
	if len(req.Headers) > 0 {
		opts = append(opts, "  headers: "+jsHeaders(req.Headers, "  "))
	}

	switch body.Kind {
	case BodyJSON:
		opts = append(opts, "  data: "+jsDialect.literal(body.Value, "  "))
	case BodyText:
		opts = append(opts, "  data: "+jsonQuote(body.Raw))
	}

	var b strings.Builder
	b.WriteString("const axios = require(\"axios\");\n\n")
	b.WriteString("axios({\n")
	b.WriteString(strings.Join(opts, ",\n"))
	b.WriteString("\n})\n")
	b.WriteString("  .then((response) => console.log(response.data))\n")
	b.WriteString("  .catch((error) => console.error(error));")
	return b.String()
}

// Python renders a requests call
func Python(req model.Request, body Body) string {
	var b strings.Builder
	b.WriteString("import requests\n\n")
	fmt.Fprintf(&b, "url = %s\n", jsonQuote(req.URL))

	args := []string{jsonQuote(method(req)), "url"}

	if len(req.Headers) > 0 {
		b.WriteString("headers = {\n")
		for _, k := range sortedHeaderKeys(req.Headers) {
			fmt.Fprintf(&b, "    %s: %s,\n", jsonQuote(k), jsonQuote(req.Headers[k]))
		}
		b.WriteString("}\n")
		args = append(args, "headers=headers")
	}

	switch body.Kind {
	case BodyJSON:
		fmt.Fprintf(&b, "payload = %s\n", pythonDialect.literal(body.Value, ""))
		args = append(args, "json=payload")
	case BodyText:
		fmt.Fprintf(&b, "payload = %s\n", jsonQuote(body.Raw))
		args = append(args, "data=payload")
	}

	fmt.Fprintf(&b, "\nresponse = requests.request(%s)\n\n", strings.Join(args, ", "))
	b.WriteString("print(response.status_code)\n")
	b.WriteString("print(response.text)")
	return b.String()
}

// PHP renders a PHP cURL script
func PHP(req model.Request, body Body) string {
	opts := []string{
		"    CURLOPT_URL => " + phpQuote(req.URL),
		"    CURLOPT_RETURNTRANSFER => true",
		"    CURLOPT_CUSTOMREQUEST => " + phpQuote(method(req)),
	}

	if len(req.Headers) > 0 {
		lines := make([]string, 0, len(req.Headers))
		for _, k := range sortedHeaderKeys(req.Headers) {
			lines = append(lines, "        "+phpQuote(k+": "+req.Headers[k]))
		}
		opts = append(opts, "    CURLOPT_HTTPHEADER => [\n"+strings.Join(lines, ",\n")+",\n    ]")
	}

	switch body.Kind {
	case BodyJSON:
		opts = append(opts, "    CURLOPT_POSTFIELDS => json_encode("+phpDialect.literal(body.Value, "    ")+")")
	case BodyText:
		opts = append(opts, "    CURLOPT_POSTFIELDS => "+phpQuote(body.Raw))
	}

	var b strings.Builder
	b.WriteString("<?php\n\n")
	b.WriteString("$curl = curl_init();\n\n")
	b.WriteString("curl_setopt_array($curl, [\n")
	b.WriteString(strings.Join(opts, ",\n"))
	b.WriteString(",\n]);\n\n")
	b.WriteString("$response = curl_exec($curl);\n")
	b.WriteString("curl_close($curl);\n\n")
	b.WriteString("echo $response;")
	return b.String()
}
