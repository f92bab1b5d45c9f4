package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/casemap/internal/naming"
	"github.com/dgallion1/casemap/internal/pipeline"
	"github.com/spf13/cobra"
)

type convertOpts struct {
	root  string
	story string
	out   string
	index int
}

func newCasesCmd(a *app) *cobra.Command {
	var opts convertOpts
	c := &cobra.Command{
		Use:   "cases FILE|DIR...",
		Short: "Convert test case markup and merge it into an XMind export",
		Long: `Convert test case markup to XMind.

The cases are placed under the --root path ("产品/V1.2/迭代3" or
"产品-V1.2"), replacing only the subtree at that path when the export
already exists. Without --out the export goes to output/xmind when the
input lives in output/test_cases, next to the input otherwise.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, pipeline.ModeCases, args, opts)
		},
	}
	c.Flags().StringVar(&opts.root, "root", "", "Root path of the cases, segments separated by / or -")
	c.Flags().StringVar(&opts.story, "story", "", "Label for the topic receiving the cases")
	c.Flags().StringVarP(&opts.out, "out", "o", "", "Export file (.xmind) or directory")
	c.Flags().IntVar(&opts.index, "md-index", 0, "Markdown file to use when an argument is a directory, 0-based in name order")
	return c
}

func newOutlineCmd(a *app) *cobra.Command {
	var opts convertOpts
	c := &cobra.Command{
		Use:   "outline FILE|DIR...",
		Short: "Convert a heading and list outline to an XMind mind map",
		Long: `Convert a document outline to XMind.

Headings and list items become topics nested by level and indentation.
Without --out the export is written next to the input as
<name>_完整版.xmind, replacing any earlier one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, pipeline.ModeOutline, args, opts)
		},
	}
	c.Flags().StringVar(&opts.root, "root", "", "Root topic title")
	c.Flags().StringVarP(&opts.out, "out", "o", "", "Export file (.xmind) or directory")
	c.Flags().IntVar(&opts.index, "md-index", 0, "Markdown file to use when an argument is a directory, 0-based in name order")
	return c
}

func (a *app) runConvert(cmd *cobra.Command, mode pipeline.Mode, args []string, opts convertOpts) error {
	toFile := strings.EqualFold(filepath.Ext(opts.out), ".xmind")
	if toFile && len(args) > 1 {
		return fmt.Errorf("--out names a single export, got %d inputs", len(args))
	}

	var errs []error
	for _, arg := range args {
		in, err := resolveInput(arg, opts.index)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		data, err := os.ReadFile(in)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		req := pipeline.Request{Mode: mode, Filename: in, Data: data, Root: opts.root, Story: opts.story}
		switch {
		case toFile:
			req.Target = opts.out
		case opts.out != "":
			req.TargetDir = opts.out
		case mode == pipeline.ModeCases:
			req.TargetDir = naming.OutputDir(in)
		default:
			req.TargetDir = filepath.Dir(in)
		}

		out, err := a.conv.Convert(cmd.Context(), req, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", in, err))
			continue
		}
		printConversion(cmd.OutOrStdout(), in, out)
	}
	return errors.Join(errs...)
}

// resolveInput returns path itself, or for a directory its index-th
// Markdown file in name order.
func resolveInput(path string, index int) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	if len(files) == 0 {
		return "", fmt.Errorf("no .md file in %s", path)
	}
	if index < 0 || index >= len(files) {
		return "", fmt.Errorf("--md-index %d out of range (%d .md files in %s)", index, len(files), path)
	}
	return filepath.Join(path, files[index]), nil
}
