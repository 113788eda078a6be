package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/standardbeagle/ila/internal/diag"
	"github.com/standardbeagle/ila/internal/model"
)

const (
	DefaultMaxFileSize     = 2 * 1024 * 1024
	DefaultWatchDebounceMs = 300
	DefaultBaseParameter   = "baseLogger"
)

type Config struct {
	Version     int
	Project     Project
	Logger      Logger
	Fix         Fix
	Rules       map[string]RuleOverride
	Model       Model
	Index       Index
	Performance Performance
	Watch       Watch
	Output      Output
	Include     []string
	Exclude     []string
}

type Project struct {
	Root string
	Name string
}

// Logger selects the logger abstraction the detector looks for.
type Logger struct {
	Namespace string
	Interface string
}

type Fix struct {
	DefaultAction     string // RetypeFix or SplitBaseClassFix
	BaseParameterName string
	RetypeTitle       string
	SplitTitle        string
}

// RuleOverride adjusts one rule, keyed by rule ID or code. Nil fields keep
// the built-in value.
type RuleOverride struct {
	Enabled  *bool
	Severity string
	Message  string
}

type Model struct {
	// ExternTypes are "kind:Namespace.Name`N" entries added to the
	// well-known external types.
	ExternTypes []string
}

type Index struct {
	MaxFileSize      int64
	FollowSymlinks   bool
	RespectGitignore bool
}

type Performance struct {
	MaxGoroutines int // 0 = auto-detect (NumCPU-1)
}

type Watch struct {
	DebounceMs int
}

type Output struct {
	Format string // "text" or "json"
	Color  bool
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot merges ~/.ila.kdl with the project configuration found in
// rootDir. An explicit path replaces the project lookup.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	// Step 1: global base config
	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	// Step 2: project config
	var projectConfig *Config
	var err error
	if path != "" {
		projectConfig, err = LoadFile(path)
	} else {
		projectConfig, err = loadProject(searchDir)
	}
	if err != nil {
		return nil, err
	}

	// Step 3: merge (project overrides base, base exclusions preserved)
	var cfg *Config
	switch {
	case baseConfig != nil && projectConfig != nil:
		cfg = mergeConfigs(baseConfig, projectConfig)
	case projectConfig != nil:
		cfg = projectConfig
	case baseConfig != nil:
		cfg = baseConfig
		cfg.Project.Root = absOrSelf(searchDir)
	default:
		cfg = Default()
		cfg.Project.Root = absOrSelf(searchDir)
	}

	if cfg.Index.RespectGitignore {
		cfg.EnrichExclusionsWithGitignore()
	}
	cfg.EnrichExclusionsWithBuildArtifacts()
	return cfg, nil
}

// LoadFile loads a single .kdl or .toml file.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg *Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		cfg, err = parseTOML(content)
	} else {
		cfg, err = parseKDL(string(content))
	}
	if err != nil {
		return nil, err
	}
	cfg.Project.Root = resolveRoot(filepath.Dir(path), cfg.Project.Root)
	return cfg, nil
}

// loadProject prefers .ila.kdl over .ila.toml.
func loadProject(dir string) (*Config, error) {
	if cfg, err := LoadKDL(dir); cfg != nil || err != nil {
		return cfg, err
	}
	return LoadTOML(dir)
}

func resolveRoot(configDir, root string) string {
	if root == "" || root == "." {
		return absOrSelf(configDir)
	}
	if filepath.IsAbs(root) {
		return filepath.Clean(root)
	}
	return filepath.Clean(filepath.Join(absOrSelf(configDir), root))
}

func absOrSelf(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// Default returns the built-in configuration rooted at the working
// directory.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	return &Config{
		Version: 1,
		Project: Project{Root: cwd},
		Logger: Logger{
			Namespace: "Microsoft.Extensions.Logging",
			Interface: "ILogger",
		},
		Fix: Fix{
			DefaultAction:     "RetypeFix",
			BaseParameterName: DefaultBaseParameter,
		},
		Rules: map[string]RuleOverride{},
		Index: Index{
			MaxFileSize:      DefaultMaxFileSize,
			RespectGitignore: true,
		},
		Performance: Performance{
			MaxGoroutines: runtime.NumCPU(),
		},
		Watch:   Watch{DebounceMs: DefaultWatchDebounceMs},
		Output:  Output{Format: "text", Color: true},
		Include: []string{"**/*.cs"},
		Exclude: getDefaultExclusions(),
	}
}

func getDefaultExclusions() []string {
	return []string{
		"**/.git/**",
		"**/.vs/**",
		"**/.idea/**",
		"**/bin/**",
		"**/obj/**",
		"**/node_modules/**",
		"**/packages/**",
		"**/TestResults/**",
		"**/*.g.cs",
		"**/*.g.i.cs",
		"**/*.designer.cs",
		"**/*.Designer.cs",
		"**/*.AssemblyInfo.cs",
		"**/*.AssemblyAttributes.cs",
	}
}

// mergeConfigs merges a base config with a project config.
// Project config takes precedence, but base exclusions and rule overrides
// the project does not mention are preserved.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		merged.Exclude = DeduplicatePatterns(append(append([]string{}, base.Exclude...), project.Exclude...))
	}

	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	merged.Rules = make(map[string]RuleOverride, len(base.Rules)+len(project.Rules))
	for k, v := range base.Rules {
		merged.Rules[k] = v
	}
	for k, v := range project.Rules {
		merged.Rules[k] = v
	}

	merged.Model.ExternTypes = DeduplicatePatterns(append(append([]string{}, base.Model.ExternTypes...), project.Model.ExternTypes...))
	return &merged
}

// RuleTable applies the rule overrides to the built-in rules.
func (c *Config) RuleTable() (diag.RuleTable, error) {
	rules := diag.DefaultRules()
	for key, o := range c.Rules {
		r, ok := rules.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("unknown rule %q", key)
		}
		if o.Enabled != nil {
			r.Enabled = *o.Enabled
		}
		if o.Severity != "" {
			sev, err := diag.ParseSeverity(o.Severity)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", key, err)
			}
			r.Severity = sev
		}
		if o.Message != "" {
			r.Message = o.Message
		}
		rules[r.ID] = r
	}
	return rules, nil
}

// ExternTypes parses Model.ExternTypes.
func (c *Config) ExternTypes() ([]model.ExternType, error) {
	out := make([]model.ExternType, 0, len(c.Model.ExternTypes))
	for _, s := range c.Model.ExternTypes {
		ext, err := model.ParseExternType(s)
		if err != nil {
			return nil, err
		}
		out = append(out, ext)
	}
	return out, nil
}

// EnrichExclusionsWithBuildArtifacts adds output directories declared by
// project files under the root to the exclusions.
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if c.Project.Root == "" {
		return
	}

	detected := NewBuildArtifactDetector(c.Project.Root).DetectOutputDirectories()
	if len(detected) > 0 {
		c.Exclude = DeduplicatePatterns(append(c.Exclude, detected...))
	}
}

// EnrichExclusionsWithGitignore adds the root .gitignore patterns to the
// exclusions.
func (c *Config) EnrichExclusionsWithGitignore() {
	if c.Project.Root == "" {
		return
	}
	gp := NewGitignoreParser()
	if err := gp.LoadGitignore(c.Project.Root); err != nil {
		return
	}
	if patterns := gp.GetExclusionPatterns(); len(patterns) > 0 {
		c.Exclude = DeduplicatePatterns(append(c.Exclude, patterns...))
	}
}
