package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgallion1/casemap/internal/cases"
	"github.com/dgallion1/casemap/internal/pipeline"
)

var priorityNames = [4]string{"P1 高", "P2 中", "P3 低", "P4 可选"}

type styles struct {
	title, label, value, warn, dim lipgloss.Style
}

// newStyles binds the report styles to w, so colors are only emitted when
// w is a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		label: r.NewStyle().Foreground(lipgloss.Color("241")),
		value: r.NewStyle().Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("214")),
		dim:   r.NewStyle().Faint(true),
	}
}

func printConversion(w io.Writer, input string, out *pipeline.Output) {
	st := newStyles(w)
	fmt.Fprintln(w, st.title.Render("转换完成"))
	fmt.Fprintf(w, "   %s %s\n", st.label.Render("输入:"), input)
	dest := out.Written
	if dest == "" {
		dest = out.FileName
	}
	fmt.Fprintf(w, "   %s %s\n", st.label.Render("输出:"), st.value.Render(dest))
	fmt.Fprintf(w, "   %s %s  %s %d\n", st.label.Render("根节点:"), out.Root, st.label.Render("节点数:"), out.Topics)

	if out.Result != nil {
		if out.Result.Replaced {
			fmt.Fprintf(w, "   %s\n", st.warn.Render("已替换同路径下的旧用例: "+strings.Join(out.Result.Target, "/")))
		}
		if out.Result.Dropped > 0 {
			fmt.Fprintf(w, "   %s\n", st.warn.Render(fmt.Sprintf("跳过 %d 条缺少模块或功能的用例", out.Result.Dropped)))
		}
	}
	if out.Summary != nil {
		fmt.Fprintln(w)
		printSummary(w, *out.Summary)
	}
}

// printSummary writes the per module/feature counts and the priority
// distribution. P4 is listed only when present.
func printSummary(w io.Writer, s cases.Summary) {
	st := newStyles(w)
	fmt.Fprintln(w, st.title.Render("测试用例统计"))
	for _, g := range s.Groups {
		fmt.Fprintf(w, "   %s > %s: %d 条\n", g.Module, g.Feature, g.Count)
	}
	fmt.Fprintf(w, "   %s\n", st.dim.Render(strings.Repeat("─", 40)))
	fmt.Fprintf(w, "   %s %s\n", st.label.Render("总计:"), st.value.Render(fmt.Sprintf("%d 条", s.Total)))

	if s.Total == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.title.Render("优先级分布:"))
	for i, name := range priorityNames {
		n := s.ByPriority[i]
		if i == 3 && n == 0 {
			continue
		}
		fmt.Fprintf(w, "   %s: %d 条 (%.1f%%)\n", name, n, s.Percent(i+1))
	}
}
