// Package pipeline orchestrates extraction per document: the extractors run
// concurrently over the same text, their outputs are resolved and fused,
// an optional generative refinement reviews the result, and the fused graph
// is merged into the ontology and the storage layer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/graphweave/graphweave/pkg/extension"
	"github.com/graphweave/graphweave/pkg/extract"
	"github.com/graphweave/graphweave/pkg/fusion"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/ontology"
	"github.com/graphweave/graphweave/pkg/refine"
	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"

	"golang.org/x/sync/errgroup"
)

// Pipeline wires the extraction stages together. Statistical, refinement,
// ontology and storage stages are optional: a nil field skips that stage.
//
// A Pipeline should be created using New.
type Pipeline struct {
	pattern     *extract.PatternExtractor
	statistical *extract.StatisticalAdapter
	registry    *extension.Registry
	refiner     *refine.Refiner
	ontology    *ontology.Store
	storage     store.GraphStorage

	enabledTypes []string
	enabledPacks []string

	mu             sync.Mutex
	statFailStreak int
}

// Params configures a Pipeline. Pattern defaults to the core type set plus
// the registry's active pack types.
type Params struct {
	Pattern     *extract.PatternExtractor
	Statistical *extract.StatisticalAdapter
	Registry    *extension.Registry
	Refiner     *refine.Refiner
	Ontology    *ontology.Store
	Storage     store.GraphStorage

	EnabledTypes []string
	EnabledPacks []string
}

// New creates a Pipeline.
func New(params Params) *Pipeline {
	registry := params.Registry
	if registry == nil {
		registry = extension.Default()
	}
	pattern := params.Pattern
	if pattern == nil {
		defs := append(extract.CoreTypes(), registry.ActiveTypes(params.EnabledPacks...)...)
		pattern = extract.NewPatternExtractor(defs...)
	}
	return &Pipeline{
		pattern:      pattern,
		statistical:  params.Statistical,
		registry:     registry,
		refiner:      params.Refiner,
		ontology:     params.Ontology,
		storage:      params.Storage,
		enabledTypes: params.EnabledTypes,
		enabledPacks: params.EnabledPacks,
	}
}

// Extract runs the concurrent extraction stages over text and returns the
// per-source resolved candidates. No stage error is fatal; the statistical
// stage degrades to its pattern fallback internally.
func (p *Pipeline) Extract(ctx context.Context, text string) (pattern, statistical []types.SpanCandidate) {
	pattern, statistical, _ = p.extract(ctx, text)
	return pattern, statistical
}

// extract additionally reports whether the statistical stage fell back to
// patterns. The flag must be read off the raw stage output: fallback
// candidates duplicate the pattern ones, so cross-source resolution usually
// removes them again along with their metadata.
func (p *Pipeline) extract(ctx context.Context, text string) (pattern, statistical []types.SpanCandidate, statFellBack bool) {
	var custom []types.SpanCandidate

	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		pattern = p.pattern.Extract(ectx, text, p.enabledTypes)
		return nil
	})
	if p.statistical != nil {
		eg.Go(func() error {
			statistical = p.statistical.Extract(ectx, text, p.enabledTypes)
			return nil
		})
	}
	eg.Go(func() error {
		custom = extract.ResolveOffsets(text, p.registry.RunExtractors(ectx, text, p.enabledPacks...))
		return nil
	})
	// The stage funcs never return errors; Wait only joins them.
	_ = eg.Wait()

	for _, cand := range statistical {
		if cand.Metadata["fallback"] == true {
			statFellBack = true
			break
		}
	}

	pattern = extract.Resolve(pattern)
	statistical = extract.Resolve(append(statistical, custom...))

	// Cross-source duplicates resolve once more over the union, then the
	// survivors split back into their source lists for fusion.
	combined := extract.Resolve(append(append([]types.SpanCandidate{}, pattern...), statistical...))
	pattern = pattern[:0]
	statistical = statistical[:0]
	for _, cand := range combined {
		if cand.Source == types.SourcePattern {
			pattern = append(pattern, cand)
		} else {
			statistical = append(statistical, cand)
		}
	}
	return pattern, statistical, statFellBack
}

// ProcessDocument runs the full pipeline for one document and merges the
// result into the ontology and storage. Recoverable problems are collected
// on the result; the returned error is reserved for storage failures and
// cancellation.
func (p *Pipeline) ProcessDocument(ctx context.Context, name, text string) (*types.DocumentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &types.DocumentResult{Document: name}

	pattern, statistical, statFellBack := p.extract(ctx, text)
	p.trackStatisticalHealth(statFellBack, result)

	var refinement *types.RefinementResult
	if p.refiner != nil {
		preliminary := append(append([]types.SpanCandidate{}, pattern...), statistical...)
		var err error
		refinement, err = p.refiner.Refine(ctx, text, preliminary)
		switch {
		case err == nil:
		case errors.Is(err, refine.ErrMalformedResponse):
			logger.Warn("[Pipeline] Refinement reply malformed, continuing without", "document", name)
			result.Errors = append(result.Errors, "refinement skipped: malformed model reply")
			refinement = nil
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			logger.Warn("[Pipeline] Refinement failed, continuing without", "document", name, "err", err)
			result.Errors = append(result.Errors, fmt.Sprintf("refinement skipped: %v", err))
			refinement = nil
		}
	}

	result.Entities = fusion.Fuse(pattern, statistical, refinement)
	if refinement != nil {
		result.Relationships = refinement.Relationships
		result.Summary = refinement.Summary
	}

	if err := p.mutateOntology(result); err != nil {
		return nil, err
	}
	if err := p.upsertStorage(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// trackStatisticalHealth counts consecutive documents on which the
// statistical stage fell back to patterns. The second consecutive fallback
// becomes a visible (still non-fatal) document error.
func (p *Pipeline) trackStatisticalHealth(fellBack bool, result *types.DocumentResult) {
	if p.statistical == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !fellBack {
		p.statFailStreak = 0
		return
	}
	p.statFailStreak++
	if p.statFailStreak >= 2 {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"statistical extractor unavailable for %d consecutive documents, pattern fallback in use",
			p.statFailStreak,
		))
	}
}

// mutateOntology merges fused entities and relationships into the ontology
// store. Integrity violations surface as document errors, never aborts.
func (p *Pipeline) mutateOntology(result *types.DocumentResult) error {
	if p.ontology == nil {
		return nil
	}

	idsByValue := make(map[string]string, len(result.Entities))
	for _, entity := range result.Entities {
		id, err := p.mergeOntologyEntity(entity)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("entity %q: %v", entity.CanonicalValue, err))
			continue
		}
		idsByValue[types.NormalizeValue(entity.CanonicalValue)] = id

		if _, err := p.ontology.AddKnowledge(ontology.AddKnowledgeParams{
			Type:             "document_mention",
			Title:            entity.CanonicalValue,
			Content:          entityContext(entity),
			Reliability:      entity.Confidence,
			RelatedEntityIDs: []string{id},
			Document:         result.Document,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("knowledge for %q: %v", entity.CanonicalValue, err))
		}
	}

	for _, rel := range result.Relationships {
		sourceID, okSource := idsByValue[types.NormalizeValue(rel.SourceValue)]
		targetID, okTarget := idsByValue[types.NormalizeValue(rel.TargetValue)]
		if !okSource || !okTarget {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"relationship %s -[%s]-> %s skipped: endpoint not in fused result",
				rel.SourceValue, rel.Type, rel.TargetValue,
			))
			continue
		}
		if _, err := p.ontology.AddRelationship(ontology.AddRelationshipParams{
			SourceID:    sourceID,
			TargetID:    targetID,
			Type:        rel.Type,
			Strength:    rel.Strength,
			Description: rel.Description,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("relationship %s: %v", rel.Type, err))
		}
	}
	return nil
}

func (p *Pipeline) mergeOntologyEntity(entity types.CanonicalEntity) (string, error) {
	existing, err := p.ontology.FindEntity(entity.CanonicalValue, entity.Type)
	if err == nil {
		if entity.Confidence > existing.Confidence {
			conf := entity.Confidence
			if _, err := p.ontology.UpdateEntity(existing.ID, ontology.UpdateEntityParams{Confidence: &conf}); err != nil {
				return "", err
			}
		}
		return existing.ID, nil
	}
	if !ontology.IsNotFound(err) {
		return "", err
	}

	added, err := p.ontology.AddEntity(ontology.AddEntityParams{
		Value:      entity.CanonicalValue,
		Type:       entity.Type,
		Category:   p.registry.CategoryFor(entity.Type),
		Confidence: entity.Confidence,
	})
	if err != nil {
		return "", err
	}
	return added.ID, nil
}

func (p *Pipeline) upsertStorage(ctx context.Context, result *types.DocumentResult) error {
	if p.storage == nil {
		return nil
	}

	entities := make([]store.EntityUpsert, 0, len(result.Entities))
	for _, entity := range result.Entities {
		entities = append(entities, store.EntityUpsert{
			Entity:   entity,
			Category: p.registry.CategoryFor(entity.Type),
		})
	}
	if _, err := p.storage.UpsertEntities(ctx, result.Document, entities); err != nil {
		return err
	}

	relationships := make([]store.RelationshipUpsert, 0, len(result.Relationships))
	for _, rel := range result.Relationships {
		relationships = append(relationships, store.RelationshipUpsert{
			SourceValue: rel.SourceValue,
			TargetValue: rel.TargetValue,
			Type:        rel.Type,
			Strength:    rel.Strength,
			Description: rel.Description,
		})
	}
	stats, err := p.storage.UpsertRelationships(ctx, relationships)
	if err != nil {
		return err
	}
	if stats.RelationshipsSkipped > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"%d relationships skipped during upsert: unresolved endpoints",
			stats.RelationshipsSkipped,
		))
	}
	return nil
}

// entityContext picks the first non-empty source context as the knowledge
// element content.
func entityContext(entity types.CanonicalEntity) string {
	for _, detail := range entity.SourceDetails {
		if detail.Candidate != nil && detail.Candidate.Context != "" {
			return detail.Candidate.Context
		}
	}
	return ""
}
