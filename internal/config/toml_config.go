package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// TOMLFileName is read when no .ila.kdl exists.
const TOMLFileName = ".ila.toml"

type tomlConfig struct {
	Version int `toml:"version"`
	Project struct {
		Root string `toml:"root"`
		Name string `toml:"name"`
	} `toml:"project"`
	Logger struct {
		Namespace string `toml:"namespace"`
		Interface string `toml:"interface"`
	} `toml:"logger"`
	Fix struct {
		DefaultAction     string `toml:"default_action"`
		BaseParameterName string `toml:"base_parameter_name"`
		RetypeTitle       string `toml:"retype_title"`
		SplitTitle        string `toml:"split_title"`
	} `toml:"fix"`
	Rules map[string]struct {
		Enabled  *bool  `toml:"enabled"`
		Severity string `toml:"severity"`
		Message  string `toml:"message"`
	} `toml:"rules"`
	Model struct {
		ExternTypes []string `toml:"extern_types"`
	} `toml:"model"`
	Index struct {
		MaxFileSize      string `toml:"max_file_size"`
		FollowSymlinks   *bool  `toml:"follow_symlinks"`
		RespectGitignore *bool  `toml:"respect_gitignore"`
	} `toml:"index"`
	Performance struct {
		MaxGoroutines *int `toml:"max_goroutines"`
	} `toml:"performance"`
	Watch struct {
		DebounceMs *int `toml:"debounce_ms"`
	} `toml:"watch"`
	Output struct {
		Format string `toml:"format"`
		Color  *bool  `toml:"color"`
	} `toml:"output"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// LoadTOML loads dir/.ila.toml. It returns nil, nil when the file is absent.
func LoadTOML(dir string) (*Config, error) {
	path := filepath.Join(dir, TOMLFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return LoadFile(path)
}

func parseTOML(content []byte) (*Config, error) {
	var raw tomlConfig
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	cfg := Default()
	cfg.Project.Root = ""
	setInt(&cfg.Version, raw.Version)
	setString(&cfg.Project.Root, raw.Project.Root)
	setString(&cfg.Project.Name, raw.Project.Name)
	setString(&cfg.Logger.Namespace, raw.Logger.Namespace)
	setString(&cfg.Logger.Interface, raw.Logger.Interface)
	setString(&cfg.Fix.DefaultAction, raw.Fix.DefaultAction)
	setString(&cfg.Fix.BaseParameterName, raw.Fix.BaseParameterName)
	setString(&cfg.Fix.RetypeTitle, raw.Fix.RetypeTitle)
	setString(&cfg.Fix.SplitTitle, raw.Fix.SplitTitle)

	for key, r := range raw.Rules {
		cfg.Rules[key] = RuleOverride{Enabled: r.Enabled, Severity: r.Severity, Message: r.Message}
	}
	cfg.Model.ExternTypes = append(cfg.Model.ExternTypes, raw.Model.ExternTypes...)

	if raw.Index.MaxFileSize != "" {
		sz, err := parseSize(raw.Index.MaxFileSize)
		if err != nil {
			return nil, fmt.Errorf("invalid index.max_file_size %q: %w", raw.Index.MaxFileSize, err)
		}
		cfg.Index.MaxFileSize = sz
	}
	setBool(&cfg.Index.FollowSymlinks, raw.Index.FollowSymlinks)
	setBool(&cfg.Index.RespectGitignore, raw.Index.RespectGitignore)
	if raw.Performance.MaxGoroutines != nil {
		cfg.Performance.MaxGoroutines = *raw.Performance.MaxGoroutines
	}
	if raw.Watch.DebounceMs != nil {
		cfg.Watch.DebounceMs = *raw.Watch.DebounceMs
	}
	setString(&cfg.Output.Format, raw.Output.Format)
	setBool(&cfg.Output.Color, raw.Output.Color)

	if len(raw.Include) > 0 {
		cfg.Include = raw.Include
	}
	cfg.Exclude = append(cfg.Exclude, raw.Exclude...)
	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
