package cmd

import (
	"fmt"
	"os"

	"github.com/dgallion1/casemap/internal/config"
	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	var dir string
	c := &cobra.Command{
		Use:   "init [NAME]",
		Short: "Create a test case workspace layout",
		Long: `Create the input and output directories of a test case workspace and
record them in .testgen/config.json. NAME defaults to ` + config.DefaultProjectName + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = wd
			}
			p := config.NewProject(dir, name)
			path, err := p.Init()
			if err != nil {
				return err
			}
			a.log.Debug("project initialized", "root", dir, "base_dir", p.BaseDir)

			w := cmd.OutOrStdout()
			st := newStyles(w)
			fmt.Fprintln(w, st.title.Render("初始化完成"))
			fmt.Fprintf(w, "   %s %s\n", st.label.Render("配置:"), path)
			for _, d := range p.Dirs() {
				fmt.Fprintf(w, "   %s\n", st.dim.Render(d))
			}
			return nil
		},
	}
	c.Flags().StringVar(&dir, "dir", "", "Workspace root (default: working directory)")
	return c
}
