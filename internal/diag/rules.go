package diag

import (
	"sort"
	"strconv"
	"strings"
)

// RuleID identifies a diagnostic kind.
type RuleID string

const (
	// Mismatch: a typed logger field names a type other than its owner.
	Mismatch RuleID = "MISMATCH"
	// MismatchStatic: same, inside a static class; no fix is offered.
	MismatchStatic RuleID = "MISMATCH_STATIC"
)

// Rule is the message template and metadata of one RuleID. Templates use
// positional placeholders {0}, {1}, ...
type Rule struct {
	ID          RuleID
	Code        string
	Title       string
	Message     string
	Description string
	Severity    Severity
	Enabled     bool
}

// RuleTable holds the rules in effect for a run. It is passed explicitly
// to the detector rather than looked up from process state.
type RuleTable map[RuleID]Rule

// DefaultRules returns a fresh copy of the built-in rule table.
func DefaultRules() RuleTable {
	return RuleTable{
		Mismatch: {
			ID:          Mismatch,
			Code:        "ILA1001",
			Title:       "Logger type argument does not match the owning class",
			Message:     "ILogger<{0}> is used in '{1}'; the logger should be typed for the class that owns it",
			Description: "A typed logger attributes log entries to its type argument. Using another class's logger makes entries appear to come from that class.",
			Severity:    SevWarning,
			Enabled:     true,
		},
		MismatchStatic: {
			ID:          MismatchStatic,
			Code:        "ILA1002",
			Title:       "Static class uses a logger typed for another class",
			Message:     "ILogger<{0}> is used in a static class; static classes cannot be logger type arguments, use ILoggerFactory.CreateLogger with an explicit category instead",
			Description: "Static types cannot be used as generic arguments, so the logger cannot be retyped automatically.",
			Severity:    SevWarning,
			Enabled:     true,
		},
	}
}

// Lookup returns the rule for id, accepting either the rule id or its code.
func (t RuleTable) Lookup(idOrCode string) (Rule, bool) {
	if r, ok := t[RuleID(idOrCode)]; ok {
		return r, true
	}
	for _, r := range t {
		if strings.EqualFold(r.Code, idOrCode) {
			return r, true
		}
	}
	return Rule{}, false
}

// Sorted returns the rules ordered by code.
func (t RuleTable) Sorted() []Rule {
	out := make([]Rule, 0, len(t))
	for _, r := range t {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Format renders the rule's message with args.
func (t RuleTable) Format(id RuleID, args ...string) string {
	r, ok := t[id]
	if !ok {
		return string(id) + ": " + strings.Join(args, ", ")
	}
	return FormatTemplate(r.Message, args...)
}

// FormatTemplate substitutes {N} placeholders. Unknown indexes are left as is.
func FormatTemplate(tmpl string, args ...string) string {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] == '{' {
			if end := strings.IndexByte(tmpl[i:], '}'); end > 1 {
				if n, err := strconv.Atoi(tmpl[i+1 : i+end]); err == nil && n >= 0 && n < len(args) {
					b.WriteString(args[n])
					i += end
					continue
				}
			}
		}
		b.WriteByte(tmpl[i])
	}
	return b.String()
}
