package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/casemap/internal/pipeline"
	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		mode  string
		root  string
		query string
		index int
	)
	c := &cobra.Command{
		Use:   "inspect FILE|DIR",
		Short: "Print the parsed cases or outline as JSON",
		Long: `Print what casemap reads from a document, without writing an export.

Output is indented on a terminal and compact otherwise. --query applies a
jq expression, for example:

  casemap inspect cases.md --query '.records[] | select(.priority == 1) | .title'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pipeline.ParseMode(mode)
			if err != nil {
				return err
			}
			in, err := resolveInput(args[0], index)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(in)
			if err != nil {
				return err
			}
			result, err := a.conv.Inspect(pipeline.Request{Mode: m, Filename: in, Data: data, Root: root})
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			w := cmd.OutOrStdout()
			return printJSON(w, result, query, isTerminal(w))
		},
	}
	c.Flags().StringVar(&mode, "mode", "cases", "Grammar to read the document with (cases|outline)")
	c.Flags().StringVar(&root, "root", "", "Root label override")
	c.Flags().StringVar(&query, "query", "", "jq expression to filter the output")
	c.Flags().IntVar(&index, "md-index", 0, "Markdown file to use when the argument is a directory")
	return c
}

// printJSON encodes v, or every result of query run against v.
func printJSON(w io.Writer, v any, query string, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if query == "" {
		return enc.Encode(v)
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return fmt.Errorf("invalid --query: %w", err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return fmt.Errorf("invalid --query: %w", err)
	}

	// gojq works on plain maps and slices.
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}

	iter := code.Run(data)
	for {
		out, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := out.(error); isErr {
			return fmt.Errorf("query error: %w", err)
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
}
