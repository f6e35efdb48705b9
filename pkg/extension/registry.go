// Package extension lets deployment-specific packs contribute entity types,
// custom extractor functions and ontology category mappings without touching
// the core extraction code. New entity types are configuration, not code
// changes.
package extension

import (
	"context"
	"fmt"
	"sync"

	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/types"
)

// CustomExtractorFunc proposes additional candidates for one pack. The
// registry runs these with panic recovery: a broken pack function is logged
// and skipped, never fatal.
type CustomExtractorFunc func(ctx context.Context, text string) []types.SpanCandidate

// Pack is one named bundle of extraction configuration.
type Pack struct {
	Name       string
	Types      []types.EntityTypeDefinition
	Categories map[string]types.KnowledgeCategory
	Extractors []CustomExtractorFunc
}

// Registry holds registered packs. Safe for concurrent use.
//
// A Registry should be created using NewRegistry or Default.
type Registry struct {
	mu    sync.RWMutex
	packs map[string]Pack
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{packs: make(map[string]Pack)}
}

// Default returns a registry with the built-in packs registered.
func Default() *Registry {
	r := NewRegistry()
	for _, pack := range []Pack{FinancialPack(), LegalPack()} {
		if err := r.Register(pack); err != nil {
			// Built-in packs have fixed, distinct names.
			panic(err)
		}
	}
	return r
}

// Register adds a pack. Pack names are unique; re-registering a name is an
// error rather than a silent replace.
func (r *Registry) Register(pack Pack) error {
	if pack.Name == "" {
		return fmt.Errorf("extension pack has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.packs[pack.Name]; exists {
		return fmt.Errorf("extension pack %q already registered", pack.Name)
	}
	r.packs[pack.Name] = pack
	r.order = append(r.order, pack.Name)
	return nil
}

// Packs returns the registered pack names in registration order.
func (r *Registry) Packs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ActiveTypes returns the entity type definitions contributed by the named
// packs, in registration order. With no names, every registered pack is
// active. Unknown names are logged and skipped.
func (r *Registry) ActiveTypes(enabledPacks ...string) []types.EntityTypeDefinition {
	var defs []types.EntityTypeDefinition
	for _, pack := range r.active(enabledPacks) {
		defs = append(defs, pack.Types...)
	}
	return defs
}

// RunExtractors runs the custom extractor functions of the named packs over
// text and returns their combined candidates with Source forced to Custom.
// A panicking function is logged and contributes nothing.
func (r *Registry) RunExtractors(ctx context.Context, text string, enabledPacks ...string) []types.SpanCandidate {
	var out []types.SpanCandidate
	for _, pack := range r.active(enabledPacks) {
		for i, fn := range pack.Extractors {
			candidates := runExtractor(ctx, pack.Name, i, fn, text)
			for j := range candidates {
				candidates[j].Source = types.SourceCustom
			}
			out = append(out, candidates...)
		}
	}
	return out
}

// CategoryFor resolves the ontology category for an entity type, consulting
// every registered pack and falling back to the core mapping. Unknown types
// map to Information.
func (r *Registry) CategoryFor(typeID string) types.KnowledgeCategory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if cat, ok := r.packs[name].Categories[typeID]; ok {
			return cat
		}
	}
	if cat, ok := coreCategories[typeID]; ok {
		return cat
	}
	return types.CategoryInformation
}

func (r *Registry) active(enabledPacks []string) []Pack {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := enabledPacks
	if len(names) == 0 {
		names = r.order
	}
	out := make([]Pack, 0, len(names))
	for _, name := range names {
		pack, ok := r.packs[name]
		if !ok {
			logger.Warn("[Extension] Unknown pack requested", "pack", name)
			continue
		}
		out = append(out, pack)
	}
	return out
}

func runExtractor(ctx context.Context, pack string, index int, fn CustomExtractorFunc, text string) (out []types.SpanCandidate) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("[Extension] Custom extractor panicked", "pack", pack, "index", index, "panic", r)
			out = nil
		}
	}()
	return fn(ctx, text)
}

// coreCategories maps the built-in entity types onto the seeded upper
// ontology categories.
var coreCategories = map[string]types.KnowledgeCategory{
	"PERSON_NAME":     types.CategoryAgent,
	"COMPANY_NAME":    types.CategoryAgent,
	"EMAIL_ADDRESS":   types.CategoryInformation,
	"PHONE_NUMBER":    types.CategoryInformation,
	"URL":             types.CategoryInformation,
	"MONETARY_AMOUNT": types.CategoryQuality,
	"PERCENTAGE":      types.CategoryQuality,
	"DATE":            types.CategoryAbstract,
}
