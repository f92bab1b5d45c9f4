package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/casemap/internal/naming"
	"github.com/dgallion1/casemap/internal/parser"
	"github.com/spf13/cobra"
)

type docx2mdOpts struct {
	docType string
	out     string
	images  string
	noMedia bool
}

func newDocx2mdCmd(a *app) *cobra.Command {
	var opts docx2mdOpts
	c := &cobra.Command{
		Use:   "docx2md FILE...",
		Short: "Convert Word, HTML, PDF or CSV documents to Markdown",
		Long: `Convert documents to Markdown for review or for "cases"/"outline".

Without --out the Markdown is written to the project's PRD or design
directory, picked by --doc-type, or to output/prdmd and
output/codedesignmd under the working directory when there is no project.
Images embedded in .docx files are copied to <name>_images next to the
Markdown unless --images names another directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.docType != "prd" && opts.docType != "design" {
				return fmt.Errorf("--doc-type must be prd or design, got %q", opts.docType)
			}
			toFile := strings.EqualFold(filepath.Ext(opts.out), ".md")
			if toFile && len(args) > 1 {
				return fmt.Errorf("--out names a single file, got %d inputs", len(args))
			}
			dir, err := a.markdownDir(opts)
			if err != nil {
				return err
			}

			var errs []error
			for _, in := range args {
				dst := filepath.Join(dir, naming.Stem(in)+".md")
				if toFile {
					dst = opts.out
				}
				if err := a.toMarkdown(cmd, in, dst, opts); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", in, err))
				}
			}
			return errors.Join(errs...)
		},
	}
	c.Flags().StringVar(&opts.docType, "doc-type", "prd", "Document type, selects the default output directory (prd|design)")
	c.Flags().StringVarP(&opts.out, "out", "o", "", "Markdown file (.md) or directory")
	c.Flags().StringVar(&opts.images, "images", "", "Directory for extracted images")
	c.Flags().BoolVar(&opts.noMedia, "no-images", false, "Do not extract images")
	return c
}

func (a *app) markdownDir(opts docx2mdOpts) (string, error) {
	if opts.out != "" && !strings.EqualFold(filepath.Ext(opts.out), ".md") {
		return opts.out, nil
	}
	p, ok, err := a.project()
	if err != nil {
		return "", err
	}
	if ok {
		if opts.docType == "design" {
			return p.Path(p.Output.DesignMDDir), nil
		}
		return p.Path(p.Output.PRDMDDir), nil
	}
	sub := "prdmd"
	if opts.docType == "design" {
		sub = "codedesignmd"
	}
	return filepath.Join("output", sub), nil
}

func (a *app) toMarkdown(cmd *cobra.Command, in, dst string, opts docx2mdOpts) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	doc, err := a.conv.Extract(in, data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, []byte(doc.Text), 0o644); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	st := newStyles(w)
	fmt.Fprintln(w, st.title.Render("转换完成"))
	fmt.Fprintf(w, "   %s %s\n", st.label.Render("输入:"), in)
	fmt.Fprintf(w, "   %s %s\n", st.label.Render("输出:"), st.value.Render(dst))

	if doc.Format != "docx" || opts.noMedia {
		return nil
	}
	imgDir := opts.images
	if imgDir == "" {
		imgDir = filepath.Join(filepath.Dir(dst), naming.Stem(dst)+"_images")
	}
	images, err := parser.ExtractMedia(data, imgDir)
	if err != nil {
		return err
	}
	if len(images) > 0 {
		fmt.Fprintf(w, "   %s %s (%d)\n", st.label.Render("图片:"), imgDir, len(images))
	}
	a.log.Debug("extracted media", "file", in, "dir", imgDir, "count", len(images))
	return nil
}
