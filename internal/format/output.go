// Package format prints colored, terminal-safe command output.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/fatih/color"

	"github.com/vedsharma/apiplay/internal/model"
)

// Out receives all printer output
var Out io.Writer = color.Output

// sanitizeOutput removes or escapes potentially dangerous control characters
// that could manipulate terminal display or execute commands
func sanitizeOutput(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			result.WriteRune(r)
		case r == '\x1b':
			result.WriteString("\\x1b")
		case unicode.IsControl(r) && r < 0x20:
			fmt.Fprintf(&result, "\\x%02x", r)
		case r == 0x7F:
			result.WriteString("\\x7f")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

var (
	successColor   = color.New(color.FgGreen, color.Bold)
	redirectColor  = color.New(color.FgYellow, color.Bold)
	clientErrColor = color.New(color.FgRed, color.Bold)
	serverErrColor = color.New(color.FgRed, color.Bold, color.BgWhite)
	warnColor      = color.New(color.FgYellow)
	headerKeyColor = color.New(color.FgCyan)
	methodColor    = color.New(color.FgMagenta, color.Bold)
	urlColor       = color.New(color.FgBlue)
	dimColor       = color.New(color.Faint)
)

// PrintResponse prints a formatted HTTP response
func PrintResponse(resp *model.Response, showHeaders bool) {
	printStatusLine(resp)
	dimColor.Fprintf(Out, "  Time: %dms\n\n", resp.DurationMs)

	if showHeaders {
		printHeaders(resp.Headers)
	}

	printBody(resp.Body)
}

func printStatusLine(resp *model.Response) {
	getStatusColor(resp.StatusCode).Fprintf(Out, "%s\n", sanitizeOutput(resp.Status))
}

func getStatusColor(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return successColor
	case code >= 300 && code < 400:
		return redirectColor
	case code >= 400 && code < 500:
		return clientErrColor
	default:
		return serverErrColor
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printHeaders(headers map[string]string) {
	if len(headers) == 0 {
		return
	}

	fmt.Fprintln(Out, "Headers:")
	for _, key := range sortedKeys(headers) {
		headerKeyColor.Fprintf(Out, "  %s: ", sanitizeOutput(key))
		fmt.Fprintln(Out, sanitizeOutput(headers[key]))
	}
	fmt.Fprintln(Out)
}

func printBody(body string) {
	if body == "" {
		dimColor.Fprintln(Out, "(empty body)")
		return
	}
	fmt.Fprintln(Out, sanitizeOutput(prettyJSON(body)))
}

func prettyJSON(s string) string {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(s), "", "  "); err != nil {
		return s
	}
	return out.String()
}

func printRequestLine(method, url string) {
	methodColor.Fprintf(Out, "%s ", method)
	urlColor.Fprintln(Out, sanitizeOutput(url))
}

// PrintHistoryDetail prints full request/response details
func PrintHistoryDetail(entry *model.HistoryEntry) {
	fmt.Fprintln(Out, "Request:")
	fmt.Fprintln(Out, strings.Repeat("-", 40))
	printRequestLine(entry.Method, entry.URL)
	dimColor.Fprintf(Out, "ID: %s\n", entry.ID)
	dimColor.Fprintf(Out, "Time: %s\n\n", entry.Timestamp.Format("2006-01-02 15:04:05"))

	printHeaders(entry.Headers)

	if entry.Body != "" {
		fmt.Fprintln(Out, "Body:")
		fmt.Fprintln(Out, sanitizeOutput(prettyJSON(entry.Body)))
		fmt.Fprintln(Out)
	}

	if entry.Response != nil {
		fmt.Fprintln(Out, "\nResponse:")
		fmt.Fprintln(Out, strings.Repeat("-", 40))
		PrintResponse(entry.Response, true)
	}
}

// PrintHistoryList prints history entries in a compact format
func PrintHistoryList(entries []model.HistoryEntry, limit int) {
	if len(entries) == 0 {
		dimColor.Fprintln(Out, "No requests in history")
		return
	}

	count := len(entries)
	if limit > 0 && limit < count {
		count = limit
	}

	for i := 0; i < count; i++ {
		entry := entries[i]
		dimColor.Fprintf(Out, "[%d] ", i+1)
		methodColor.Fprintf(Out, "%-7s ", entry.Method)

		url := entry.URL
		if len(url) > 60 {
			url = url[:57] + "..."
		}
		urlColor.Fprintf(Out, "%-60s ", sanitizeOutput(url))

		if entry.Response != nil {
			getStatusColor(entry.Response.StatusCode).Fprintf(Out, "%d ", entry.Response.StatusCode)
			dimColor.Fprintf(Out, "(%dms)", entry.Response.DurationMs)
		}
		fmt.Fprintln(Out)
	}

	if limit > 0 && len(entries) > limit {
		dimColor.Fprintf(Out, "\n... and %d more requests\n", len(entries)-limit)
	}
}

// PrintCollectionList prints collections sorted by name, marking the active one
func PrintCollectionList(collections map[string]*model.Collection, active string) {
	if len(collections) == 0 {
		dimColor.Fprintln(Out, "No collections found")
		return
	}

	list := make([]*model.Collection, 0, len(collections))
	for _, col := range collections {
		list = append(list, col)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})

	fmt.Fprintln(Out, "Collections:")
	for _, col := range list {
		marker := "  "
		if col.ID == active {
			marker = "* "
		}
		fmt.Fprint(Out, marker)
		headerKeyColor.Fprintf(Out, "%s ", sanitizeOutput(col.Name))
		dimColor.Fprintf(Out, "(%d requests) %s\n", len(col.Requests), col.ID)
	}
}

// PrintCollectionRequests prints requests in a collection
func PrintCollectionRequests(col *model.Collection) {
	if len(col.Requests) == 0 {
		dimColor.Fprintf(Out, "Collection '%s' is empty\n", sanitizeOutput(col.Name))
		return
	}

	headerKeyColor.Fprintf(Out, "Collection: %s\n", sanitizeOutput(col.Name))
	if col.Description != "" {
		dimColor.Fprintln(Out, sanitizeOutput(col.Description))
	}
	fmt.Fprintln(Out, strings.Repeat("-", 40))

	for i, req := range col.Requests {
		dimColor.Fprintf(Out, "[%d] ", i+1)
		fmt.Fprintf(Out, "%s: ", sanitizeOutput(req.DisplayName()))
		printRequestLine(req.Method, req.URL)
		dimColor.Fprintf(Out, "    ID: %s\n", req.ID)
	}
}

// PrintRequestDetail prints a saved request without executing it
func PrintRequestDetail(req *model.Request) {
	headerKeyColor.Fprintln(Out, sanitizeOutput(req.DisplayName()))
	printRequestLine(req.Method, req.URL)
	dimColor.Fprintf(Out, "ID: %s\n", req.ID)
	if req.Description != "" {
		dimColor.Fprintln(Out, sanitizeOutput(req.Description))
	}
	fmt.Fprintln(Out)

	printHeaders(req.Headers)
	if req.Body != "" {
		fmt.Fprintln(Out, "Body:")
		fmt.Fprintln(Out, sanitizeOutput(prettyJSON(req.Body)))
	}
}

// PrintEnvironmentList prints environments, marking the active one
func PrintEnvironmentList(envs []*model.Environment, active string) {
	if len(envs) == 0 {
		dimColor.Fprintln(Out, "No environments found")
		return
	}

	fmt.Fprintln(Out, "Environments:")
	for _, env := range envs {
		marker := "  "
		if env.ID == active {
			marker = "* "
		}
		fmt.Fprint(Out, marker)
		headerKeyColor.Fprintf(Out, "%s ", sanitizeOutput(env.ID))
		dimColor.Fprintf(Out, "%s (%d variables)\n", sanitizeOutput(env.Name), len(env.Variables))
	}
}

// PrintEnvironment prints one environment's variables in key order
func PrintEnvironment(env *model.Environment, active bool) {
	headerKeyColor.Fprintf(Out, "%s ", sanitizeOutput(env.Name))
	dimColor.Fprintf(Out, "(%s)", env.ID)
	if active {
		successColor.Fprint(Out, " active")
	}
	fmt.Fprintln(Out)

	if len(env.Variables) == 0 {
		dimColor.Fprintln(Out, "  (no variables)")
		return
	}
	for _, key := range sortedKeys(env.Variables) {
		headerKeyColor.Fprintf(Out, "  %s", sanitizeOutput(key))
		dimColor.Fprint(Out, " = ")
		fmt.Fprintln(Out, sanitizeOutput(env.Variables[key]))
	}
}

// PrintSnippet prints generated source under a heading
func PrintSnippet(label, source string) {
	headerKeyColor.Fprintf(Out, "# %s\n", label)
	fmt.Fprintln(Out, sanitizeOutput(source))
}

// PrintUnresolved warns about placeholders with no value in the environment
func PrintUnresolved(names []string) {
	if len(names) == 0 {
		return
	}
	PrintWarning(fmt.Sprintf("Unresolved variables: %s", strings.Join(names, ", ")))
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	successColor.Fprintf(Out, "✓ %s\n", msg)
}

// PrintWarning prints a warning message
func PrintWarning(msg string) {
	warnColor.Fprintf(Out, "! %s\n", msg)
}

// PrintError prints an error message
func PrintError(msg string) {
	clientErrColor.Fprintf(Out, "✗ %s\n", msg)
}
