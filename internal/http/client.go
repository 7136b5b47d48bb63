// Package http executes resolved requests.
package http

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vedsharma/apiplay/internal/logging"
	"github.com/vedsharma/apiplay/internal/model"
)

const (
	// MaxResponseSize limits response body to 50MB to prevent memory exhaustion
	MaxResponseSize = 50 * 1024 * 1024

	// DefaultTimeout applies when no timeout is configured
	DefaultTimeout = 30 * time.Second
)

// Client sends requests and captures responses
type Client struct {
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a client with the given timeout (DefaultTimeout if zero)
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Execute sends a resolved request
func (c *Client) Execute(req model.Request) (*model.Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	return c.Do(method, req.URL, req.Headers, req.Body)
}

// Do executes an HTTP request and returns the response
func (c *Client) Do(method, reqURL string, headers map[string]string, body string) (*model.Response, error) {
	if err := c.validateURL(reqURL); err != nil {
		return nil, err
	}

	if strings.HasPrefix(strings.ToLower(reqURL), "http://") {
		c.logger.Warn("using insecure HTTP connection; data is transmitted unencrypted", "url", reqURL)
	}

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, reqURL, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	// Default Content-Type for requests with body
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("sending request", "method", method, "url", reqURL)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	respBody, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, err
	}

	if int64(len(respBody)) > MaxResponseSize {
		respBody = respBody[:MaxResponseSize]
		c.logger.Warn("response body truncated", "limit_bytes", MaxResponseSize)
	}

	respHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			respHeaders[key] = values[0]
		}
	}

	c.logger.Debug("received response", "status", resp.StatusCode, "duration_ms", duration.Milliseconds())

	return &model.Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    respHeaders,
		Body:       string(respBody),
		DurationMs: duration.Milliseconds(),
	}, nil
}

// validateURL checks the URL for potential SSRF vulnerabilities
func (c *Client) validateURL(rawURL string) error {
	if strings.Contains(rawURL, "{{") {
		return fmt.Errorf("URL contains unresolved variables: %s", rawURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https are allowed)", parsed.Scheme)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL must have a hostname")
	}

	if isCloudMetadataEndpoint(hostname) {
		return fmt.Errorf("blocked request to cloud metadata endpoint: %s", hostname)
	}

	if isLoopback(hostname) {
		c.logger.Warn("request targets a loopback address", "host", hostname)
	} else if isPrivateHost(hostname) {
		c.logger.Warn("request targets a private or link-local address", "host", hostname)
	}

	return nil
}

func isLoopback(hostname string) bool {
	if strings.EqualFold(hostname, "localhost") {
		return true
	}
	ip := net.ParseIP(hostname)
	return ip != nil && ip.IsLoopback()
}

// isPrivateHost reports whether hostname is a literal private, link-local
// or unspecified IP
func isPrivateHost(hostname string) bool {
	ip := net.ParseIP(hostname)
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}

// isCloudMetadataEndpoint checks if the hostname is a cloud metadata service
func isCloudMetadataEndpoint(hostname string) bool {
	metadataHosts := map[string]bool{
		"169.254.169.254":          true, // AWS, GCP, Azure
		"metadata.google.internal": true,
		"metadata.goog":            true,
		"100.100.100.200":          true, // Alibaba Cloud
		"169.254.170.2":            true, // AWS ECS task metadata
	}

	return metadataHosts[strings.ToLower(hostname)]
}
