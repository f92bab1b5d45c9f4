// Package cmd implements the casemap command line.
package cmd

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgallion1/casemap/internal/config"
	"github.com/dgallion1/casemap/internal/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// version is set at build time.
var version = "dev"

// app carries the state shared by every command of one invocation.
type app struct {
	debug       bool
	plain       bool
	noPDFTool   bool
	projectFile string

	cfg  config.Config
	log  *slog.Logger
	conv *pipeline.Converter
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "casemap",
		Short: "Convert Markdown outlines and test cases to XMind mind maps",
		Long: `casemap turns Markdown documents into XMind workbooks.

"cases" reads test case markup (## module, ### feature, #### category,
##### case) and merges the cases into an existing export. "outline" turns
any heading and list hierarchy into a mind map.

Environment Variables:
  CASEMAP_PLAIN_TITLES    Strip inline Markdown from topic titles
  PDF_FALLBACK_PDFTOTEXT  Retry PDF extraction with pdftotext
  CASEMAP_CONFIG          Project layout file (.testgen/config.json)
  CASEMAP_DEBUG           Enable debug logging`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.setup(cmd)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&a.debug, "debug", false, "Enable debug logging (env: CASEMAP_DEBUG)")
	flags.BoolVar(&a.plain, "plain", false, "Strip inline Markdown from topic titles (env: CASEMAP_PLAIN_TITLES)")
	flags.BoolVar(&a.noPDFTool, "no-pdftotext", false, "Never fall back to pdftotext for PDF input")
	flags.StringVar(&a.projectFile, "config", "", "Project layout file (default: nearest .testgen/config.json)")

	root.AddCommand(
		newCasesCmd(a),
		newOutlineCmd(a),
		newInspectCmd(a),
		newDocx2mdCmd(a),
		newBatchCmd(a),
		newInitCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("Error:", err)
		return err
	}
	return nil
}

func (a *app) setup(cmd *cobra.Command) {
	a.cfg = config.Load()
	if cmd.Flags().Changed("debug") {
		a.cfg.Debug = a.debug
	}
	if cmd.Flags().Changed("plain") {
		a.cfg.PlainTitles = a.plain
	}
	if a.noPDFTool {
		a.cfg.PDFFallbackPdftotext = false
	}
	if a.projectFile != "" {
		a.cfg.ProjectFile = a.projectFile
	}

	a.log = newLogger(cmd.ErrOrStderr(), a.cfg.Debug)
	a.conv = pipeline.NewConverter(pipeline.ConverterOptions{
		PDFFallback: a.cfg.PDFFallbackPdftotext,
		PlainTitles: a.cfg.PlainTitles,
	}, a.log)
}

// newLogger returns a slog logger backed by charm's handler.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	h := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})
	return slog.New(h)
}

// project returns the workspace layout, from --config or CASEMAP_CONFIG when
// set and by searching upwards from the working directory otherwise. ok is
// false when there is none.
func (a *app) project() (config.Project, bool, error) {
	if a.cfg.ProjectFile != "" {
		p, err := config.LoadProject(a.cfg.ProjectFile)
		return p, err == nil, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Project{}, false, err
	}
	p, err := config.FindProject(wd)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return config.Project{}, false, nil
	case err != nil:
		return config.Project{}, false, err
	}
	return p, true, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
