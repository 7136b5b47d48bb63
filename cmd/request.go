package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vedsharma/apiplay/internal/format"
	httpclient "github.com/vedsharma/apiplay/internal/http"
	"github.com/vedsharma/apiplay/internal/model"
	"github.com/vedsharma/apiplay/internal/storage"
	"github.com/vedsharma/apiplay/internal/vars"
)

// sensitiveHeaders is a list of headers that should be redacted before storing in history
var sensitiveHeaders = map[string]bool{
	// Standard authentication headers
	"authorization":       true,
	"proxy-authorization": true,
	"www-authenticate":    true,

	// Session and token headers
	"cookie":       true,
	"set-cookie":   true,
	"x-api-key":    true,
	"api-key":      true,
	"x-auth-token": true,
	"x-csrf-token": true,
	"x-xsrf-token": true,

	// Cloud provider credentials
	"x-amz-security-token":     true,
	"x-amz-credential":         true,
	"x-amz-signature":          true,
	"x-goog-iap-jwt-assertion": true,
	"x-ms-token-aad-id-token":  true,

	"x-access-token":  true,
	"x-refresh-token": true,
	"x-session-token": true,
	"x-secret-key":    true,
	"x-private-key":   true,
}

var (
	headers          []string
	data             string
	noHistory        bool
	saveToCollection string
	requestName      string
	envID            string
)

func init() {
	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"} {
		cmd := &cobra.Command{
			Use:   strings.ToLower(method) + " <url>",
			Short: fmt.Sprintf("Send a %s request", method),
			Args:  cobra.ExactArgs(1),
			Run:   runRequest(method),
		}
		addRequestFlags(cmd)
		rootCmd.AddCommand(cmd)
	}

	sendCmd := &cobra.Command{
		Use:   "send [collection] <request>",
		Short: "Send a saved request",
		Long: `Send a request saved in a collection, resolving {{variables}} from the
active environment (or --env).

The request is matched by ID, 1-based position or name. When the collection
is omitted, the active collection is used.

Example:
  apiplay send my-api "Get Users" --env staging`,
		Args: cobra.RangeArgs(1, 2),
		Run:  runSend,
	}
	sendCmd.Flags().BoolVar(&noHistory, "no-history", false, "Don't save to history")
	sendCmd.Flags().StringVarP(&envID, "env", "e", "", "Environment to resolve variables from (default: active)")
	rootCmd.AddCommand(sendCmd)
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Add header (can be used multiple times)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "Request body (JSON string or @filename)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Don't save to history")
	cmd.Flags().StringVarP(&saveToCollection, "collection", "c", "", "Save to collection (created if missing)")
	cmd.Flags().StringVarP(&requestName, "name", "n", "", "Name for the saved request")
	cmd.Flags().StringVarP(&envID, "env", "e", "", "Environment to resolve variables from (default: active)")
}

func runRequest(method string) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")

		body := data
		if strings.HasPrefix(body, "@") {
			content, err := readBodyFromFile(strings.TrimPrefix(body, "@"))
			if err != nil {
				exitOnError("Failed to read file", err)
			}
			body = content
		}

		req := model.Request{
			Name:    requestName,
			Method:  method,
			URL:     args[0],
			Headers: parseHeaders(headers),
			Body:    body,
		}

		store := openStore()
		defer store.Close()

		execute(store, req, verbose)

		if saveToCollection != "" {
			saveRequestToCollection(store, saveToCollection, req)
		}
	}
}

func runSend(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	collectionRef, requestRef := "", args[0]
	if len(args) == 2 {
		collectionRef, requestRef = args[0], args[1]
	}

	store := openStore()
	defer store.Close()

	col, err := findCollection(store, collectionRef)
	if err != nil {
		exitOnError("Failed to load collection", err)
	}
	req, err := findRequest(col, requestRef)
	if err != nil {
		exitOnError("Failed to load request", err)
	}

	execute(store, *req, verbose)
}

// execute resolves req against the selected environment, sends it and
// records the resolved form in history
func execute(store storage.Store, req model.Request, verbose bool) {
	resolved := resolveRequest(store, req)

	if !noHistory {
		warnIfSensitiveBody(resolved.Body)
	}

	client := httpclient.NewClient(cfg.Timeout, logger)
	resp, err := client.Execute(resolved)
	if err != nil {
		exitOnError("Request failed", err)
	}

	format.PrintResponse(resp, verbose)

	if !noHistory {
		saveToHistory(store, resolved, resp)
	}
}

// resolveRequest substitutes variables from the --env environment, or the
// active one, and warns about placeholders left unresolved
func resolveRequest(store storage.Store, req model.Request) model.Request {
	variables, err := openEnvironments(store).Variables(envID)
	if err != nil {
		exitOnError("Failed to load environment", err)
	}

	resolved := vars.Resolve(req, variables)
	format.PrintUnresolved(vars.UnresolvedInRequest(resolved))
	return resolved
}

func parseHeaders(headerStrings []string) map[string]string {
	result := make(map[string]string)
	for _, h := range headerStrings {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

func saveToHistory(store storage.HistoryStore, req model.Request, resp *model.Response) {
	var filteredResp *model.Response
	if resp != nil {
		filteredResp = &model.Response{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Headers:    filterSensitiveHeaders(resp.Headers),
			Body:       resp.Body,
			DurationMs: resp.DurationMs,
		}
	}

	entry := model.HistoryEntry{
		ID:        uuid.New().String()[:8],
		Timestamp: time.Now(),
		Method:    req.Method,
		URL:       req.URL,
		Headers:   filterSensitiveHeaders(req.Headers),
		Body:      req.Body,
		Response:  filteredResp,
	}

	// History is best effort; a failure must not interrupt the user
	if err := store.AddToHistory(entry); err != nil {
		logger.Warn("failed to record history", "error", err)
	}
}

// saveRequestToCollection stores the unresolved request so its
// placeholders survive for later environments
func saveRequestToCollection(store storage.CollectionStore, ref string, req model.Request) {
	col, err := findCollection(store, ref)
	if errors.Is(err, storage.ErrCollectionNotFound) {
		col, err = store.CreateCollection(ref, "", "")
	}
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to save to collection: %v", err))
		return
	}

	if _, err := store.AddRequestToCollection(col.ID, req); err != nil {
		format.PrintError(fmt.Sprintf("Failed to save to collection: %v", err))
		return
	}

	format.PrintSuccess(fmt.Sprintf("Saved to collection '%s'", col.Name))
}

// readBodyFromFile reads file content with path validation to prevent directory traversal
func readBodyFromFile(filename string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}
	cleanPath := filepath.Clean(absPath)

	if !withinDir(cleanPath, wd) {
		return "", fmt.Errorf("access denied: file must be within current directory")
	}

	realPath, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
		realPath = cleanPath
	} else if !withinDir(realPath, wd) {
		return "", fmt.Errorf("access denied: symlink target must be within current directory")
	}

	content, err := os.ReadFile(realPath)
	if err != nil {
		return "", err
	}

	return string(content), nil
}

func withinDir(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

// filterSensitiveHeaders returns a copy of headers with sensitive values redacted
func filterSensitiveHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}

	filtered := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}

// sensitiveBodyPatterns contains patterns that suggest sensitive data in request bodies
var sensitiveBodyPatterns = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"private_key", "privatekey",
	"credit_card", "creditcard", "card_number",
	"ssn", "social_security",
	"client_secret", "auth",
}

// hasSensitiveBody reports whether the body looks like it carries secrets
func hasSensitiveBody(body string) bool {
	lowerBody := strings.ToLower(body)
	for _, pattern := range sensitiveBodyPatterns {
		if strings.Contains(lowerBody, pattern) {
			return true
		}
	}
	return false
}

func warnIfSensitiveBody(body string) {
	if body == "" || !hasSensitiveBody(body) {
		return
	}
	format.PrintWarning("Request body may contain sensitive data (e.g., passwords, tokens). It will be stored in history.")
	format.PrintWarning("Use --no-history to skip storing this request.")
}
