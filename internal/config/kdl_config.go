package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// KDLFileName is the primary configuration file.
const KDLFileName = ".ila.kdl"

// LoadKDL loads dir/.ila.kdl. It returns nil, nil when the file is absent.
func LoadKDL(dir string) (*Config, error) {
	kdlPath := filepath.Join(dir, KDLFileName)
	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}
	return LoadFile(kdlPath)
}

// parseKDL reads a configuration document on top of the defaults.
//
//	logger { namespace "Acme.Logging"; interface "ILog"; }
//	fix { default_action "SplitBaseClassFix"; base_parameter_name "parentLogger"; }
//	rules { ILA1002 { enabled false; }; ILA1001 { severity "error"; }; }
//	model { extern_types "interface:Acme.Logging.ILog`1"; }
//	exclude "**/Generated/**" "**/Migrations/**"
func parseKDL(content string) (*Config, error) {
	cfg := Default()
	cfg.Project.Root = ""

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "logger":
			for _, cn := range n.Children {
				assignSimpleString(cn, "namespace", func(v string) { cfg.Logger.Namespace = v })
				assignSimpleString(cn, "interface", func(v string) { cfg.Logger.Interface = v })
			}
		case "fix":
			for _, cn := range n.Children {
				assignSimpleString(cn, "default_action", func(v string) { cfg.Fix.DefaultAction = v })
				assignSimpleString(cn, "base_parameter_name", func(v string) { cfg.Fix.BaseParameterName = v })
				assignSimpleString(cn, "retype_title", func(v string) { cfg.Fix.RetypeTitle = v })
				assignSimpleString(cn, "split_title", func(v string) { cfg.Fix.SplitTitle = v })
			}
		case "rules":
			for _, cn := range n.Children {
				cfg.Rules[nodeName(cn)] = parseRuleOverride(cn)
			}
		case "model":
			for _, cn := range n.Children {
				if nodeName(cn) == "extern_types" {
					cfg.Model.ExternTypes = append(cfg.Model.ExternTypes, collectStringArgs(cn)...)
				}
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxFileSize = int64(v)
					}
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Index.MaxFileSize = sz
						} else {
							log.Printf("WARNING: invalid max_file_size %q in KDL config: %v", s, err)
						}
					}
				case "follow_symlinks":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.FollowSymlinks = b
					}
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.RespectGitignore = b
					}
				}
			}
		case "performance":
			for _, cn := range n.Children {
				if nodeName(cn) == "max_goroutines" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.MaxGoroutines = v
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				if nodeName(cn) == "debounce_ms" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				}
			}
		case "output":
			for _, cn := range n.Children {
				assignSimpleString(cn, "format", func(v string) { cfg.Output.Format = v })
				if nodeName(cn) == "color" {
					if b, ok := firstBoolArg(cn); ok {
						cfg.Output.Color = b
					}
				}
			}
		case "include":
			cfg.Include = collectStringArgs(n)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		}
	}

	return cfg, nil
}

func parseRuleOverride(n *document.Node) RuleOverride {
	var o RuleOverride
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "enabled":
			if b, ok := firstBoolArg(cn); ok {
				o.Enabled = &b
			}
		case "severity":
			if s, ok := firstStringArg(cn); ok {
				o.Severity = s
			}
		case "message":
			if s, ok := firstStringArg(cn); ok {
				o.Message = s
			}
		}
	}
	return o
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	log.Printf("WARNING: invalid bool value for '%s' in KDL config, got %T", nodeName(n), n.Arguments[0].Value)
	return false, false
}

// collectStringArgs reads inline arguments, or the children of a block
// such as exclude { "pattern" }.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}
