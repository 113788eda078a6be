package config

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"

	ilaerrors "github.com/standardbeagle/ila/internal/errors"
)

// MaxFileSizeLimit caps Index.MaxFileSize.
const MaxFileSizeLimit = 100 * 1024 * 1024

var validActions = map[string]bool{"RetypeFix": true, "SplitBaseClassFix": true}

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateLoggerConfig(&cfg.Logger); err != nil {
		return ilaerrors.NewConfigError("logger", "", err)
	}

	if err := v.validateFixConfig(&cfg.Fix); err != nil {
		return ilaerrors.NewConfigError("fix", "", err)
	}

	if _, err := cfg.RuleTable(); err != nil {
		return ilaerrors.NewConfigError("rules", "", err)
	}

	if _, err := cfg.ExternTypes(); err != nil {
		return ilaerrors.NewConfigError("model.extern_types", "", err)
	}

	if err := v.validateIndexConfig(&cfg.Index); err != nil {
		return ilaerrors.NewConfigError("index", "", err)
	}

	if cfg.Performance.MaxGoroutines < 0 {
		return ilaerrors.NewConfigError("performance.max_goroutines", strconv.Itoa(cfg.Performance.MaxGoroutines),
			errors.New("cannot be negative"))
	}

	if cfg.Watch.DebounceMs < 0 {
		return ilaerrors.NewConfigError("watch.debounce_ms", strconv.Itoa(cfg.Watch.DebounceMs),
			errors.New("cannot be negative"))
	}

	switch cfg.Output.Format {
	case "text", "tree", "json":
	default:
		return ilaerrors.NewConfigError("output.format", cfg.Output.Format, errors.New(`must be "text", "tree" or "json"`))
	}

	for _, list := range [][]string{cfg.Include, cfg.Exclude} {
		for _, p := range list {
			if !doublestar.ValidatePattern(p) {
				return ilaerrors.NewConfigError("include/exclude", p, errors.New("invalid glob pattern"))
			}
		}
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateLoggerConfig(l *Logger) error {
	if l.Interface == "" {
		return errors.New("logger interface cannot be empty")
	}
	if !isIdentifier(l.Interface) {
		return fmt.Errorf("logger interface %q is not an identifier", l.Interface)
	}
	if l.Namespace == "" {
		return errors.New("logger namespace cannot be empty")
	}
	return nil
}

func (v *Validator) validateFixConfig(f *Fix) error {
	if f.DefaultAction != "" && !validActions[f.DefaultAction] {
		return fmt.Errorf("unknown default action %q", f.DefaultAction)
	}
	if f.BaseParameterName != "" && !isIdentifier(f.BaseParameterName) {
		return fmt.Errorf("base parameter name %q is not an identifier", f.BaseParameterName)
	}
	return nil
}

func (v *Validator) validateIndexConfig(index *Index) error {
	if index.MaxFileSize <= 0 {
		return fmt.Errorf("MaxFileSize must be positive, got %d", index.MaxFileSize)
	}
	if index.MaxFileSize > MaxFileSizeLimit {
		return fmt.Errorf("MaxFileSize should not exceed 100MB, got %d", index.MaxFileSize)
	}
	return nil
}

// setSmartDefaults applies defaults based on system capabilities
func (v *Validator) setSmartDefaults(cfg *Config) {
	// cores-1 leaves headroom for the editor driving us, minimum of 1
	if cfg.Performance.MaxGoroutines == 0 {
		cfg.Performance.MaxGoroutines = max(1, runtime.NumCPU()-1)
	}
	if cfg.Fix.BaseParameterName == "" {
		cfg.Fix.BaseParameterName = DefaultBaseParameter
	}
	if cfg.Fix.DefaultAction == "" {
		cfg.Fix.DefaultAction = "RetypeFix"
	}
	if cfg.Rules == nil {
		cfg.Rules = map[string]RuleOverride{}
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}

// isIdentifier accepts C# identifiers, including a leading '@'.
func isIdentifier(s string) bool {
	if len(s) > 0 && s[0] == '@' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
