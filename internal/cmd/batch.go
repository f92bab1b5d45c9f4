package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/casemap/internal/naming"
	"github.com/dgallion1/casemap/internal/parser"
	"github.com/dgallion1/casemap/internal/pipeline"
	"github.com/spf13/cobra"
)

type batchOpts struct {
	mode    string
	root    string
	story   string
	out     string
	workers int
	combine bool
}

func newBatchCmd(a *app) *cobra.Command {
	var opts batchOpts
	c := &cobra.Command{
		Use:   "batch DIR",
		Short: "Convert every supported document under a directory",
		Long: `Convert every supported document under DIR on a pool of workers.

Each document gets its own export, named and placed as "cases" or
"outline" would. With --combine (cases only) all documents are merged into
one export named after the directory, such as 支付V1.2测试用例.xmind for
支付/V1.2, with one branch per document under the root.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args[0], opts)
		},
	}
	c.Flags().StringVar(&opts.mode, "mode", "cases", "Grammar to read the documents with (cases|outline)")
	c.Flags().StringVar(&opts.root, "root", "", "Root path; with --combine the document name is appended")
	c.Flags().StringVar(&opts.story, "story", "", "Label for the topics receiving the cases")
	c.Flags().StringVarP(&opts.out, "out", "o", "", "Export directory")
	c.Flags().IntVar(&opts.workers, "workers", 0, "Parallel conversions (default: WORKER_COUNT)")
	c.Flags().BoolVar(&opts.combine, "combine", false, "Merge all documents into one export")
	return c
}

func (a *app) runBatch(cmd *cobra.Command, dir string, opts batchOpts) error {
	mode, err := pipeline.ParseMode(opts.mode)
	if err != nil {
		return err
	}
	if opts.combine && mode != pipeline.ModeCases {
		return fmt.Errorf("--combine needs --mode cases")
	}
	files, err := collectInputs(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported documents under %s", dir)
	}

	cfg := a.cfg
	cfg.MaxQueueSize = len(files)
	if opts.workers > 0 {
		cfg.WorkerCount = opts.workers
	}
	orch := pipeline.NewOrchestrator(cfg, a.conv, a.log)
	orch.Start(cmd.Context())
	defer orch.Stop()

	combined := ""
	if opts.combine {
		outDir := opts.out
		if outDir == "" {
			outDir = naming.OutputDir(filepath.Join(dir, "_"))
		}
		combined = filepath.Join(outDir, naming.DirFileName(dir))
	}

	jobs := make([]*pipeline.Job, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		req := pipeline.Request{Mode: mode, Filename: f, Data: data, Root: opts.root, Story: opts.story}
		switch {
		case combined != "":
			req.Target = combined
			req.Root = combinedRoot(opts.root, combined, f)
		case opts.out != "":
			req.TargetDir = opts.out
		case mode == pipeline.ModeCases:
			req.TargetDir = naming.OutputDir(f)
		default:
			req.TargetDir = filepath.Dir(f)
		}
		job := pipeline.NewJob(req)
		if err := orch.Submit(job); err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	w := cmd.OutOrStdout()
	st := newStyles(w)
	failed := 0
	for _, job := range jobs {
		snap, err := orch.Wait(cmd.Context(), job)
		if err != nil {
			return err
		}
		if snap.Status != pipeline.StatusCompleted {
			failed++
			fmt.Fprintf(w, "%s %s: %s\n", st.warn.Render("✗"), snap.Filename, strings.Join(snap.Errors, "; "))
			continue
		}
		fmt.Fprintf(w, "%s %s → %s (%d)\n", st.value.Render("✓"), snap.Filename, snap.Output.Written, snap.Output.Topics)
	}
	fmt.Fprintf(w, "%s %d/%d\n", st.label.Render("完成:"), len(jobs)-failed, len(jobs))
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(jobs))
	}
	return nil
}

// combinedRoot is the root path of one document inside a combined export:
// the explicit root, or the export's own name, followed by the document name.
func combinedRoot(root, export, file string) string {
	if root == "" {
		root = strings.TrimSuffix(filepath.Base(export), filepath.Ext(export))
	}
	return strings.TrimRight(root, "/") + "/" + naming.Stem(file)
}

// collectInputs lists the supported documents under dir in walk order,
// skipping hidden directories.
func collectInputs(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if parser.IsSupportedExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
