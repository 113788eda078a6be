package repair

import (
	"strconv"

	"github.com/standardbeagle/ila/internal/model"
	"github.com/standardbeagle/ila/internal/sites"
)

// freshName returns the configured base parameter name, or the first
// numbered variant of it, that no name visible in ctor already uses. Split
// never renames parameters and adds one per constructor, so the visible
// names already are the final parameter set.
func (e *Engine) freshName(m *model.Model, ctor *sites.ConstructorSite) string {
	used := m.VisibleNames(ctor.Node)

	base := e.opts.BaseParameterName
	if !used[base] {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + strconv.Itoa(i)
		if !used[candidate] {
			return candidate
		}
	}
}
