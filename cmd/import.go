package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vedsharma/apiplay/internal/format"
	"github.com/vedsharma/apiplay/internal/postman"
)

func init() {
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a Postman v2.1 collection",
		Long: `Import a Postman v2.1 collection file as a new collection. Folders are
flattened in document order. Use "-" to read from stdin.

The imported collection becomes the active collection.

Example:
  apiplay import shop.postman_collection.json`,
		Args: cobra.ExactArgs(1),
		Run:  runImport,
	}
	rootCmd.AddCommand(importCmd)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func runImport(cmd *cobra.Command, args []string) {
	content, err := readInput(args[0])
	if err != nil {
		exitOnError("Failed to import collection", err)
	}

	store := openStore()
	defer store.Close()

	importer := postman.NewImporter(store, logger.With(slog.String("component", "import")))
	result, err := importer.Import(content)
	if err != nil {
		exitOnError("Failed to import collection", err)
	}

	format.PrintSuccess(fmt.Sprintf("Imported '%s' with %d requests (%s)",
		result.Collection.Name, len(result.Requests), result.Collection.ID))
}
