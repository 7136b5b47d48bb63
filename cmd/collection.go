package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vedsharma/apiplay/internal/format"
	httpclient "github.com/vedsharma/apiplay/internal/http"
	"github.com/vedsharma/apiplay/internal/model"
	"github.com/vedsharma/apiplay/internal/storage"
	"github.com/vedsharma/apiplay/internal/vars"
)

var (
	description string
	colColor    string
	newMethod   string
	newURL      string
)

func init() {
	collectionCmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"col"},
		Short:   "Manage request collections",
		Long: `Manage request collections.

Collections are referenced by ID or name. Requests inside a collection are
referenced by ID, 1-based position or name.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all collections",
		Run:   runCollectionList,
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new collection",
		Args:  cobra.ExactArgs(1),
		Run:   runCollectionCreate,
	}
	createCmd.Flags().StringVar(&description, "description", "", "Collection description")
	createCmd.Flags().StringVar(&colColor, "color", "", "Display color")

	showCmd := &cobra.Command{
		Use:   "show [collection] [request]",
		Short: "Show requests in a collection, or one request in detail",
		Args:  cobra.MaximumNArgs(2),
		Run:   runCollectionShow,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <collection>",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		Run:   runCollectionDelete,
	}

	useCmd := &cobra.Command{
		Use:   "use <collection>",
		Short: "Set the active collection",
		Args:  cobra.ExactArgs(1),
		Run:   runCollectionUse,
	}

	addCmd := &cobra.Command{
		Use:   "add <collection> <name> <method> <url>",
		Short: "Add a request to a collection",
		Long: `Add a request to a collection. The URL, headers and body may contain
{{variables}}; they are resolved when the request is sent.

Example:
  apiplay collection add my-api "Get Users" GET '{{baseUrl}}/users'`,
		Args: cobra.ExactArgs(4),
		Run:  runCollectionAdd,
	}
	addCmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Add header")
	addCmd.Flags().StringVarP(&data, "data", "d", "", "Request body")
	addCmd.Flags().StringVar(&description, "description", "", "Request description")

	updateCmd := &cobra.Command{
		Use:   "update <collection> <request>",
		Short: "Update a saved request in place",
		Args:  cobra.ExactArgs(2),
		Run:   runCollectionUpdate,
	}
	updateCmd.Flags().StringVarP(&requestName, "name", "n", "", "New name")
	updateCmd.Flags().StringVarP(&newMethod, "method", "X", "", "New method")
	updateCmd.Flags().StringVar(&newURL, "url", "", "New URL")
	updateCmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Set header (replaces an existing header with the same key)")
	updateCmd.Flags().StringVarP(&data, "data", "d", "", "New body")
	updateCmd.Flags().StringVar(&description, "description", "", "New description")

	rmRequestCmd := &cobra.Command{
		Use:   "rm-request <collection> <request>",
		Short: "Remove a request from a collection",
		Args:  cobra.ExactArgs(2),
		Run:   runCollectionRemoveRequest,
	}

	runCmd := &cobra.Command{
		Use:   "run [collection]",
		Short: "Run all requests in a collection",
		Args:  cobra.MaximumNArgs(1),
		Run:   runCollectionRun,
	}
	runCmd.Flags().StringVarP(&envID, "env", "e", "", "Environment to resolve variables from (default: active)")
	runCmd.Flags().BoolVar(&noHistory, "no-history", false, "Don't save to history")

	collectionCmd.AddCommand(listCmd, createCmd, showCmd, deleteCmd, useCmd, addCmd, updateCmd, rmRequestCmd, runCmd)
	rootCmd.AddCommand(collectionCmd)
}

// findCollection looks a collection up by ID, then by name. An empty ref
// selects the active collection.
func findCollection(store storage.CollectionStore, ref string) (*model.Collection, error) {
	if ref == "" {
		active, err := store.ActiveCollectionID()
		if err != nil {
			return nil, err
		}
		if active == "" {
			return nil, fmt.Errorf("no active collection; pass a collection or run 'collection use'")
		}
		ref = active
	}

	col, err := store.GetCollection(ref)
	if err == nil || !errors.Is(err, storage.ErrCollectionNotFound) {
		return col, err
	}

	all, err := store.GetCollections()
	if err != nil {
		return nil, err
	}

	var match *model.Collection
	for _, c := range all {
		if !strings.EqualFold(c.Name, ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("more than one collection is named %q; use its ID", ref)
		}
		match = c
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, ref)
	}
	return match, nil
}

// findRequest looks a request up by ID, 1-based position, then name
func findRequest(col *model.Collection, ref string) (*model.Request, error) {
	if req, ok := col.Request(ref); ok {
		return req, nil
	}

	if index, err := strconv.Atoi(ref); err == nil && index > 0 && index <= len(col.Requests) {
		return &col.Requests[index-1], nil
	}

	for i := range col.Requests {
		if strings.EqualFold(col.Requests[i].Name, ref) {
			return &col.Requests[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s in collection '%s'", storage.ErrRequestNotFound, ref, col.Name)
}

func runCollectionList(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	collections, err := store.GetCollections()
	if err != nil {
		exitOnError("Failed to load collections", err)
	}
	active, err := store.ActiveCollectionID()
	if err != nil {
		exitOnError("Failed to load collections", err)
	}

	format.PrintCollectionList(collections, active)
}

func runCollectionCreate(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	col, err := store.CreateCollection(args[0], description, colColor)
	if err != nil {
		exitOnError("Failed to create collection", err)
	}

	format.PrintSuccess(fmt.Sprintf("Collection '%s' created (%s)", col.Name, col.ID))
}

func runCollectionShow(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	ref := ""
	if len(args) > 0 {
		ref = args[0]
	}

	col, err := findCollection(store, ref)
	if err != nil {
		exitOnError("Failed to load collection", err)
	}

	if len(args) == 2 {
		req, err := findRequest(col, args[1])
		if err != nil {
			exitOnError("Failed to load request", err)
		}
		format.PrintRequestDetail(req)
		return
	}

	format.PrintCollectionRequests(col)
}

func runCollectionDelete(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	col, err := findCollection(store, args[0])
	if err != nil {
		exitOnError("Failed to delete collection", err)
	}

	if err := store.DeleteCollection(col.ID); err != nil {
		exitOnError("Failed to delete collection", err)
	}

	format.PrintSuccess(fmt.Sprintf("Collection '%s' deleted", col.Name))
}

func runCollectionUse(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	col, err := findCollection(store, args[0])
	if err != nil {
		exitOnError("Failed to select collection", err)
	}

	if err := store.SetActiveCollectionID(col.ID); err != nil {
		exitOnError("Failed to select collection", err)
	}

	format.PrintSuccess(fmt.Sprintf("Active collection is now '%s'", col.Name))
}

func runCollectionAdd(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	col, err := findCollection(store, args[0])
	if err != nil {
		exitOnError("Failed to add request", err)
	}

	req := model.Request{
		Name:        args[1],
		Method:      strings.ToUpper(args[2]),
		URL:         args[3],
		Headers:     parseHeaders(headers),
		Body:        data,
		Description: description,
	}

	saved, err := store.AddRequestToCollection(col.ID, req)
	if err != nil {
		exitOnError("Failed to add request", err)
	}

	format.PrintSuccess(fmt.Sprintf("Request '%s' added to collection '%s' (%s)", saved.DisplayName(), col.Name, saved.ID))
}

func runCollectionUpdate(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	col, err := findCollection(store, args[0])
	if err != nil {
		exitOnError("Failed to update request", err)
	}
	existing, err := findRequest(col, args[1])
	if err != nil {
		exitOnError("Failed to update request", err)
	}

	req := existing.Clone()
	flags := cmd.Flags()
	if flags.Changed("name") {
		req.Name = requestName
	}
	if flags.Changed("method") {
		req.Method = strings.ToUpper(newMethod)
	}
	if flags.Changed("url") {
		req.URL = newURL
	}
	if flags.Changed("data") {
		req.Body = data
	}
	if flags.Changed("description") {
		req.Description = description
	}
	if len(headers) > 0 {
		if req.Headers == nil {
			req.Headers = make(map[string]string)
		}
		for k, v := range parseHeaders(headers) {
			req.Headers[k] = v
		}
	}

	if err := store.UpdateRequest(col.ID, req); err != nil {
		exitOnError("Failed to update request", err)
	}

	format.PrintSuccess(fmt.Sprintf("Request '%s' updated", req.DisplayName()))
}

func runCollectionRemoveRequest(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	col, err := findCollection(store, args[0])
	if err != nil {
		exitOnError("Failed to remove request", err)
	}
	req, err := findRequest(col, args[1])
	if err != nil {
		exitOnError("Failed to remove request", err)
	}

	if err := store.DeleteRequest(col.ID, req.ID); err != nil {
		exitOnError("Failed to remove request", err)
	}

	format.PrintSuccess(fmt.Sprintf("Request '%s' removed from collection '%s'", req.DisplayName(), col.Name))
}

func runCollectionRun(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	store := openStore()
	defer store.Close()

	ref := ""
	if len(args) > 0 {
		ref = args[0]
	}

	col, err := findCollection(store, ref)
	if err != nil {
		exitOnError("Failed to load collection", err)
	}

	if len(col.Requests) == 0 {
		format.PrintError(fmt.Sprintf("Collection '%s' is empty", col.Name))
		return
	}

	variables, err := openEnvironments(store).Variables(envID)
	if err != nil {
		exitOnError("Failed to load environment", err)
	}

	client := httpclient.NewClient(cfg.Timeout, logger)

	fmt.Fprintf(format.Out, "Running %d requests from collection '%s'\n\n", len(col.Requests), col.Name)

	failed := 0
	for i, req := range col.Requests {
		resolved := vars.Resolve(req, variables)
		fmt.Fprintf(format.Out, "[%d/%d] %s\n", i+1, len(col.Requests), req.DisplayName())
		format.PrintUnresolved(vars.UnresolvedInRequest(resolved))

		resp, err := client.Execute(resolved)
		if err != nil {
			format.PrintError(fmt.Sprintf("Request failed: %v", err))
			failed++
			continue
		}

		format.PrintResponse(resp, verbose)
		if !noHistory {
			saveToHistory(store, resolved, resp)
		}
		fmt.Fprintln(format.Out)
	}

	if failed > 0 {
		format.PrintWarning(fmt.Sprintf("%d of %d requests failed", failed, len(col.Requests)))
		return
	}
	format.PrintSuccess(fmt.Sprintf("Completed running collection '%s'", col.Name))
}
