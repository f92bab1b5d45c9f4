package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectDir and ProjectFileName locate the project layout file relative to
// the workspace root.
const (
	ProjectDir      = ".testgen"
	ProjectFileName = "config.json"

	DefaultProjectName = "testcasegen"
)

// Project is the directory layout of a test case workspace. Paths are
// relative to Root, the directory that holds ProjectDir.
type Project struct {
	Root string `yaml:"-" json:"-"`

	BaseDir string        `yaml:"base_dir" json:"base_dir"`
	Input   ProjectInput  `yaml:"input" json:"input"`
	Output  ProjectOutput `yaml:"output" json:"output"`
}

type ProjectInput struct {
	PRDDocxDir       string `yaml:"prd_docx_dir" json:"prd_docx_dir"`
	KnowledgeDir     string `yaml:"knowledge_dir" json:"knowledge_dir"`
	DesignDocxDir    string `yaml:"design_docx_dir" json:"design_docx_dir"`
	BaselineCasesDir string `yaml:"baseline_cases_dir" json:"baseline_cases_dir"`
}

type ProjectOutput struct {
	PRDMDDir               string `yaml:"prd_md_dir" json:"prd_md_dir"`
	DesignMDDir            string `yaml:"design_md_dir" json:"design_md_dir"`
	RequirementAnalysisDir string `yaml:"requirement_analysis_dir" json:"requirement_analysis_dir"`
	TestOutlineDir         string `yaml:"test_outline_dir" json:"test_outline_dir"`
	TestCasesDir           string `yaml:"test_cases_dir" json:"test_cases_dir"`
	XMindDir               string `yaml:"xmind_dir" json:"xmind_dir"`
}

// LoadProject reads a layout file. The file is JSON in practice; it is
// decoded as YAML, which accepts JSON as well as hand-written YAML.
func LoadProject(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, err
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("parse %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Project{}, err
	}
	p.Root = filepath.Dir(filepath.Dir(abs))
	return p, nil
}

// FindProject looks for ProjectDir/ProjectFileName in dir and its parents.
// It returns fs.ErrNotExist when no layout file is found.
func FindProject(dir string) (Project, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return Project{}, err
	}
	for {
		p, err := LoadProject(filepath.Join(dir, ProjectDir, ProjectFileName))
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return p, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Project{}, fs.ErrNotExist
		}
		dir = parent
	}
}

// Path resolves a layout path against the workspace root.
func (p Project) Path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// Dirs lists every directory of the layout.
func (p Project) Dirs() []string {
	return []string{
		p.Input.PRDDocxDir, p.Input.KnowledgeDir, p.Input.DesignDocxDir, p.Input.BaselineCasesDir,
		p.Output.PRDMDDir, p.Output.DesignMDDir, p.Output.RequirementAnalysisDir,
		p.Output.TestOutlineDir, p.Output.TestCasesDir, p.Output.XMindDir,
	}
}

var (
	unsafeNameRe = regexp.MustCompile(`[<>:"/\\|?*]+`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// SanitizeProjectName makes name usable as a directory name.
func SanitizeProjectName(name string) string {
	n := strings.TrimSpace(name)
	n = unsafeNameRe.ReplaceAllString(n, "_")
	n = spaceRe.ReplaceAllString(n, "_")
	return strings.TrimRight(n, " .")
}

// NewProject returns the default layout for a project directory named name
// under root.
func NewProject(root, name string) Project {
	if name = SanitizeProjectName(name); name == "" {
		name = DefaultProjectName
	}
	dir := func(parts ...string) string {
		return filepath.ToSlash(filepath.Join(append([]string{name}, parts...)...))
	}
	return Project{
		Root:    root,
		BaseDir: name,
		Input: ProjectInput{
			PRDDocxDir:       dir("input", "prdword"),
			KnowledgeDir:     dir("input", "knowledge"),
			DesignDocxDir:    dir("input", "codedesignword"),
			BaselineCasesDir: dir("input", "baseline_cases"),
		},
		Output: ProjectOutput{
			PRDMDDir:               dir("output", "prdmd"),
			DesignMDDir:            dir("output", "codedesignmd"),
			RequirementAnalysisDir: dir("output", "requirement_analysis"),
			TestOutlineDir:         dir("output", "test_outline"),
			TestCasesDir:           dir("output", "test_cases"),
			XMindDir:               dir("output", "xmind"),
		},
	}
}

// Init creates every layout directory and writes the layout file. It
// returns the path of the written file.
func (p Project) Init() (string, error) {
	for _, d := range p.Dirs() {
		if err := os.MkdirAll(p.Path(d), 0o755); err != nil {
			return "", err
		}
	}
	cfgDir := filepath.Join(p.Root, ProjectDir)
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	path := filepath.Join(cfgDir, ProjectFileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
