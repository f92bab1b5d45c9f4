package cases

import (
	"testing"

	"github.com/dgallion1/casemap/internal/doctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleCaseScenario(t *testing.T) {
	input := "## 模块A\n### 功能B\n##### C01 用例标题\n- 操作：\n1. 步骤一\n- 预期：\n1. 结果一\n- 优先级：P1\n"

	records, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "模块A-功能B-用例标题", r.Path())
	assert.Equal(t, 1, r.Priority)
	assert.Equal(t, []string{"步骤一"}, r.Steps)
	assert.Equal(t, []string{"结果一"}, r.Expected)
	assert.Equal(t, []Pair{{Step: "步骤一", Expected: "结果一"}}, r.Pairs())
	assert.Equal(t, "C01", r.ID)
	assert.Equal(t, "用例标题", r.Title)
}

func TestParse_FullHierarchy(t *testing.T) {
	input := `# 额度服务测试用例

## 变更额度页面
### 计算额度小工具
#### 正常场景
##### R1-B01 验证默认额度
- 前置：用户已登录
- 操作：
1. 打开页面
2. 点击计算
- 预期：
1. 页面展示
- 优先级：P2

---

##### R1-B02 验证最大额度
- 优先级: 3
#### 异常场景
##### R1-B03 验证非法输入
### 历史记录
##### R2-A01 验证列表
`
	records, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, records, 4)

	first := records[0]
	assert.Equal(t, "R1-B01", first.ID)
	assert.Equal(t, "验证默认额度", first.Title)
	assert.Equal(t, "变更额度页面", first.Module)
	assert.Equal(t, "计算额度小工具", first.Feature)
	assert.Equal(t, "正常场景", first.Category)
	assert.Equal(t, "用户已登录", first.Precondition)
	assert.Equal(t, []string{"打开页面", "点击计算"}, first.Steps)
	assert.Equal(t, []string{"页面展示"}, first.Expected)
	assert.Equal(t, []Pair{{Step: "打开页面", Expected: "页面展示"}, {Step: "点击计算"}}, first.Pairs())

	assert.Equal(t, 3, records[1].Priority)
	assert.Equal(t, "正常场景", records[1].Category)

	assert.Equal(t, "异常场景", records[2].Category)

	// A level-3 heading resets the category.
	assert.Equal(t, "历史记录", records[3].Feature)
	assert.Equal(t, "", records[3].Category)
	assert.Equal(t, "变更额度页面-历史记录-验证列表", records[3].Path())
}

func TestParse_ModuleResetsDeeperSegments(t *testing.T) {
	input := "## M1\n### F1\n#### C1\n##### a\n## M2\n##### b\n"
	records, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "M1-F1-C1-a", records[0].Path())
	assert.Equal(t, "M2-b", records[1].Path())
}

func TestParse_UnlabeledBulletEndsCapture(t *testing.T) {
	input := "## M\n##### case\n- 操作：\n1. one\n- 备注：note\n2. leaked\n"
	records, err := Parse(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, records[0].Steps)
}

func TestParse_NumberedLinesWithoutCaptureIgnored(t *testing.T) {
	input := "## M\n##### case\n1. stray\n- 前置：ready\n2. also stray\n"
	records, err := Parse(input)
	require.NoError(t, err)
	assert.Empty(t, records[0].Steps)
	assert.Empty(t, records[0].Expected)
	assert.Equal(t, "ready", records[0].Precondition)
}

func TestParse_IndentedNumberedLines(t *testing.T) {
	input := "## M\n##### case\n- 操作：\n    1. indented\n\t2. tabbed\n"
	records, err := Parse(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"indented", "tabbed"}, records[0].Steps)
}

func TestParse_HeadingEndsCapture(t *testing.T) {
	input := "## M\n##### a\n- 操作：\n1. s\n###### note\n2. not a step\n"
	records, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"s"}, records[0].Steps)
}

func TestParse_LevelOneHeadingClosesEverything(t *testing.T) {
	input := "## M\n##### a\n# Next doc\n##### b\n"
	records, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "M-a", records[0].Path())
	assert.Equal(t, "b", records[1].Path())
}

func TestParse_FieldsBeforeAnyCaseIgnored(t *testing.T) {
	input := "## M\n- 优先级：P1\n1. nothing\n##### a\n"
	records, err := Parse(input)
	require.NoError(t, err)
	assert.Equal(t, DefaultPriority, records[0].Priority)
}

func TestParse_NoCases(t *testing.T) {
	_, err := Parse("## 模块\n### 功能\n- 普通条目\n")
	assert.ErrorIs(t, err, doctree.ErrNoContent)

	_, err = Parse("")
	assert.ErrorIs(t, err, doctree.ErrNoContent)
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"P1", 1}, {"P2", 2}, {"P3", 3}, {"P4", 4},
		{"1", 1}, {"2", 2}, {"3", 3}, {"4", 4},
		{"p3", 3},
		{" P4 ", 4},
		{"P3（低）", 3},
		{"高", DefaultPriority},
		{"", DefaultPriority},
		{"P9", DefaultPriority},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePriority(tt.in), "ParsePriority(%q)", tt.in)
	}
}

func TestSplitCaseHeading(t *testing.T) {
	tests := []struct {
		in, id, title string
	}{
		{"R1-B01 验证xxx", "R1-B01", "验证xxx"},
		{"A12-Z3   spaced", "A12-Z3", "spaced"},
		{"C01 用例标题", "C01", "用例标题"},
		{"r1-b01 lower", "", "r1-b01 lower"},
		{"R1-B01", "", "R1-B01"},
		{"RB-01 bad", "", "RB-01 bad"},
		{"plain title", "", "plain title"},
	}
	for _, tt := range tests {
		id, title := SplitCaseHeading(tt.in)
		assert.Equal(t, tt.id, id, "id of %q", tt.in)
		assert.Equal(t, tt.title, title, "title of %q", tt.in)
	}
}

func TestClassifyField(t *testing.T) {
	tests := []struct {
		in    string
		field Field
		value string
		ok    bool
	}{
		{"- 前置：已登录", FieldPrecondition, "已登录", true},
		{"- 前置: 已登录", FieldPrecondition, "已登录", true},
		{"- 操作：", FieldSteps, "", true},
		{"- 预期:", FieldExpected, "", true},
		{"- 优先级：P1", FieldPriority, "P1", true},
		{"- 前置条件：x", FieldNone, "", false},
		{"- 备注：x", FieldNone, "", false},
		{"* 前置：x", FieldNone, "", false},
		{"前置：x", FieldNone, "", false},
	}
	for _, tt := range tests {
		f, v, ok := ClassifyField(tt.in)
		assert.Equal(t, tt.field, f, "field of %q", tt.in)
		assert.Equal(t, tt.value, v, "value of %q", tt.in)
		assert.Equal(t, tt.ok, ok, "ok of %q", tt.in)
	}
}

func TestRecordSegments(t *testing.T) {
	r := Record{Module: "M", Category: "C", Title: "T"}
	assert.Equal(t, "M-C-T", r.Path())
	assert.Equal(t, []string{"M", "C", "T"}, r.Segments())

	assert.Equal(t, []string{"a", "b"}, SplitPath(" a - -b- "))
}

func TestSummarize(t *testing.T) {
	records := []Record{
		{Module: "M", Feature: "F", Priority: 1},
		{Module: "M", Feature: "F", Priority: 2},
		{Module: "M", Feature: "G", Priority: 3},
		{Priority: 4},
		{Module: "M", Feature: "F", Priority: 2},
	}
	s := Summarize(records)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, []GroupCount{
		{Module: "M", Feature: "F", Count: 3},
		{Module: "M", Feature: "G", Count: 1},
		{Module: Uncategorized, Feature: Uncategorized, Count: 1},
	}, s.Groups)
	assert.Equal(t, [4]int{1, 2, 1, 1}, s.ByPriority)
	assert.InDelta(t, 40.0, s.Percent(2), 0.001)
	assert.Zero(t, Summary{}.Percent(1))
}
