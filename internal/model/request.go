package model

import (
	"time"
)

// DefaultRequestName is shown for requests saved without a name
const DefaultRequestName = "Untitled Request"

// Request is the canonical in-memory form of a saved request.
// URL, header keys/values and Body may contain unresolved {{name}} placeholders.
type Request struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers"`
	Body        string            `json:"body"`
	Description string            `json:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Position    int               `json:"position"`
}

// DisplayName returns the request name, or the fallback for unnamed requests
func (r Request) DisplayName() string {
	if r.Name == "" {
		return DefaultRequestName
	}
	return r.Name
}

// Clone returns a deep copy of the request
func (r Request) Clone() Request {
	out := r
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	return out
}

// Response represents an HTTP response
type Response struct {
	StatusCode int               `json:"status_code"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	DurationMs int64             `json:"duration_ms"`
}

// HistoryEntry is an executed (resolved) request together with its response
type HistoryEntry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	Body      string            `json:"body"`
	Response  *Response         `json:"response,omitempty"`
}

// History represents the request history storage
type History struct {
	Entries []HistoryEntry `json:"entries"`
}

// Collection represents a named, ordered group of saved requests
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color,omitempty"`
	Requests    []Request `json:"requests"`
}

// Request looks up a request by ID
func (c *Collection) Request(id string) (*Request, bool) {
	for i := range c.Requests {
		if c.Requests[i].ID == id {
			return &c.Requests[i], true
		}
	}
	return nil, false
}

// Collections represents all collections storage
type Collections struct {
	Active      string                 `json:"active,omitempty"`
	Collections map[string]*Collection `json:"collections"`
}
