package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vedsharma/apiplay/internal/format"
	"github.com/vedsharma/apiplay/internal/model"
	"github.com/vedsharma/apiplay/internal/postman"
	"github.com/vedsharma/apiplay/internal/vars"
)

var (
	outputFile string
	keepVars   bool
)

func init() {
	exportCmd := &cobra.Command{
		Use:   "export [collection] [request]",
		Short: "Export a collection or a single request as Postman v2.1",
		Long: `Export a collection, or one request from it, as a Postman v2.1 collection.
Variables are resolved from the active environment (or --env) unless
--keep-vars is given.

With -o the document is written to a file; "-o ." writes
<name>.postman_collection.json in the current directory. Without -o it is
printed to stdout.

Example:
  apiplay export my-api -o .
  apiplay export my-api "Get Users" --keep-vars`,
		Args: cobra.MaximumNArgs(2),
		Run:  runExport,
	}
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file")
	exportCmd.Flags().BoolVar(&keepVars, "keep-vars", false, "Keep {{variables}} instead of resolving them")
	exportCmd.Flags().StringVarP(&envID, "env", "e", "", "Environment to resolve variables from (default: active)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	ref := ""
	if len(args) > 0 {
		ref = args[0]
	}
	col, err := findCollection(store, ref)
	if err != nil {
		exitOnError("Failed to export", err)
	}

	var variables map[string]string
	if !keepVars {
		if variables, err = openEnvironments(store).Variables(envID); err != nil {
			exitOnError("Failed to load environment", err)
		}
	}

	var doc *postman.Collection
	if len(args) == 2 {
		req, err := findRequest(col, args[1])
		if err != nil {
			exitOnError("Failed to export", err)
		}
		doc = postman.ExportRequest(vars.Resolve(*req, variables))
	} else {
		resolved := *col
		resolved.Requests = make([]model.Request, len(col.Requests))
		for i, req := range col.Requests {
			resolved.Requests[i] = vars.Resolve(req, variables)
		}
		doc = postman.ExportCollection(&resolved)
	}

	out, err := postman.Marshal(doc)
	if err != nil {
		exitOnError("Failed to export", err)
	}

	if outputFile == "" {
		fmt.Fprintln(os.Stdout, string(out))
		return
	}

	path := outputFile
	if path == "." {
		path = postman.FileName(doc.Info.Name)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		exitOnError("Failed to export", err)
	}
	format.PrintSuccess(fmt.Sprintf("Exported %d requests to %s", len(doc.Item), path))
}
