package cmd

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/vedsharma/apiplay/internal/codegen"
	"github.com/vedsharma/apiplay/internal/format"
)

var (
	codeLang   string
	codeAll    bool
	codeCopy   bool
	codeRawOut bool
)

func init() {
	codeCmd := &cobra.Command{
		Use:   "code [collection] <request>",
		Short: "Generate a code sample for a saved request",
		Long: fmt.Sprintf(`Generate runnable source for a saved request after resolving its
variables from the active environment (or --env).

Languages: %s

Example:
  apiplay code my-api "Create user" --lang python
  apiplay code my-api 1 --all`, strings.Join(codegen.Names(), ", ")),
		Args: cobra.RangeArgs(1, 2),
		Run:  runCode,
	}
	codeCmd.Flags().StringVarP(&codeLang, "lang", "l", "curl", "Target language")
	codeCmd.Flags().BoolVarP(&codeAll, "all", "a", false, "Generate every language")
	codeCmd.Flags().BoolVar(&codeCopy, "copy", false, "Copy the snippet to the clipboard")
	codeCmd.Flags().BoolVar(&codeRawOut, "raw", false, "Print only the source, without a heading")
	codeCmd.Flags().StringVarP(&envID, "env", "e", "", "Environment to resolve variables from (default: active)")
	rootCmd.AddCommand(codeCmd)
}

func runCode(cmd *cobra.Command, args []string) {
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

	resolved := resolveRequest(store, *req)

	var snippets []codegen.Snippet
	if codeAll {
		snippets = codegen.GenerateAll(resolved)
	} else {
		source, err := codegen.Generate(codeLang, resolved)
		if err != nil {
			exitOnError("Failed to generate code", err)
		}
		lang, _ := codegen.Lookup(codeLang)
		snippets = []codegen.Snippet{{Language: lang, Source: source}}
	}

	for i, s := range snippets {
		if i > 0 {
			fmt.Fprintln(format.Out)
		}
		if codeRawOut {
			fmt.Fprintln(format.Out, s.Source)
		} else {
			format.PrintSnippet(s.Language.Label, s.Source)
		}
	}

	if codeCopy {
		if len(snippets) != 1 {
			format.PrintWarning("--copy needs a single language; nothing copied")
			return
		}
		if err := clipboard.WriteAll(snippets[0].Source); err != nil {
			exitOnError("Failed to copy to clipboard", err)
		}
		format.PrintSuccess("Copied to clipboard")
	}
}
