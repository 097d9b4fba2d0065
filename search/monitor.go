package search

import (
	"github.com/famhp/olrs/core"
	"github.com/famhp/olrs/query"
)

// SearchMonitor provides hooks to observe the search process.
// Hooks are called from the goroutine running Search, in order.
type SearchMonitor interface {
	Start(text, language string, mode core.Mode)
	QueryBuilt(mode core.Mode, q query.Query)
	LanguageSearched(language string, hits int)
	Fallback(from, to core.Mode)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string, _ core.Mode)        {}
func (n *noopMonitor) QueryBuilt(_ core.Mode, _ query.Query) {}
func (n *noopMonitor) LanguageSearched(_ string, _ int)      {}
func (n *noopMonitor) Fallback(_, _ core.Mode)               {}
func (n *noopMonitor) Finish(_ *Result)                      {}
