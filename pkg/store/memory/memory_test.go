package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"
)

func sampleEntities() []store.EntityUpsert {
	return []store.EntityUpsert{
		{
			Entity: types.CanonicalEntity{
				CanonicalValue: "Jane Doe",
				Type:           "PERSON_NAME",
				Confidence:     0.85,
				Provenance:     []types.ExtractorSource{types.SourceStatistical},
			},
			Category: types.CategoryAgent,
		},
		{
			Entity: types.CanonicalEntity{
				CanonicalValue: "Acme Corp",
				Type:           "COMPANY_NAME",
				Confidence:     0.75,
				Provenance:     []types.ExtractorSource{types.SourcePattern},
			},
			Category: types.CategoryAgent,
		},
	}
}

func TestUpsertEntitiesIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	stats, err := s.UpsertEntities(ctx, "email-1.txt", sampleEntities())
	if err != nil {
		t.Fatal(err)
	}
	if stats.EntitiesCreated != 2 {
		t.Fatalf("first run created %d, want 2", stats.EntitiesCreated)
	}

	// Re-ingesting the identical document yields zero net new rows and no
	// updates either, since nothing about the entities changed.
	stats, err = s.UpsertEntities(ctx, "email-1.txt", sampleEntities())
	if err != nil {
		t.Fatal(err)
	}
	if stats.EntitiesCreated != 0 || stats.EntitiesUpdated != 0 {
		t.Errorf("second run stats = %+v, want all zero", stats)
	}

	all, err := s.ListEntities(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("stored entities = %d, want 2", len(all))
	}
}

func TestUpsertEntitiesMerges(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	if _, err := s.UpsertEntities(ctx, "email-1.txt", sampleEntities()); err != nil {
		t.Fatal(err)
	}

	// The same person from a second document, seen by a different source
	// with higher confidence.
	merged := []store.EntityUpsert{{
		Entity: types.CanonicalEntity{
			CanonicalValue: "JANE  DOE",
			Type:           "PERSON_NAME",
			Confidence:     0.95,
			Provenance:     []types.ExtractorSource{types.SourceGenerative},
		},
		Category: types.CategoryAgent,
	}}
	stats, err := s.UpsertEntities(ctx, "email-2.txt", merged)
	if err != nil {
		t.Fatal(err)
	}
	if stats.EntitiesCreated != 0 || stats.EntitiesUpdated != 1 {
		t.Fatalf("stats = %+v, want one update", stats)
	}

	entity, err := s.FindEntity(ctx, "jane doe", "PERSON_NAME")
	if err != nil {
		t.Fatal(err)
	}
	if entity.Confidence != 0.95 {
		t.Errorf("confidence = %v, want raised to 0.95", entity.Confidence)
	}
	if len(entity.Provenance) != 2 {
		t.Errorf("provenance = %v, want union of both sources", entity.Provenance)
	}
	if len(entity.Documents) != 2 {
		t.Errorf("documents = %v, want both", entity.Documents)
	}
}

func TestUpsertRelationships(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	if _, err := s.UpsertEntities(ctx, "email-1.txt", sampleEntities()); err != nil {
		t.Fatal(err)
	}

	rels := []store.RelationshipUpsert{
		{SourceValue: "Jane Doe", TargetValue: "Acme Corp", Type: "WORKS_AT", Strength: 0.8},
		{SourceValue: "Jane Doe", TargetValue: "Globex", Type: "WORKS_AT", Strength: 0.8},
	}
	stats, err := s.UpsertRelationships(ctx, rels)
	if err != nil {
		t.Fatal(err)
	}
	if stats.RelationshipsCreated != 1 {
		t.Errorf("created = %d, want 1", stats.RelationshipsCreated)
	}
	if stats.RelationshipsSkipped != 1 {
		t.Errorf("skipped = %d, want 1 (unknown endpoint)", stats.RelationshipsSkipped)
	}

	// Idempotent under the (source, target, type) key.
	stats, err = s.UpsertRelationships(ctx, rels[:1])
	if err != nil {
		t.Fatal(err)
	}
	if stats.RelationshipsCreated != 0 {
		t.Errorf("re-upsert created %d, want 0", stats.RelationshipsCreated)
	}

	jane, err := s.FindEntity(ctx, "Jane Doe", "PERSON_NAME")
	if err != nil {
		t.Fatal(err)
	}
	edges, err := s.ListRelationships(ctx, jane.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Errorf("edges = %d, want 1", len(edges))
	}
}

func TestDeleteEntityDetachesEdges(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	if _, err := s.UpsertEntities(ctx, "email-1.txt", sampleEntities()); err != nil {
		t.Fatal(err)
	}
	rels := []store.RelationshipUpsert{
		{SourceValue: "Jane Doe", TargetValue: "Acme Corp", Type: "WORKS_AT", Strength: 0.8},
	}
	if _, err := s.UpsertRelationships(ctx, rels); err != nil {
		t.Fatal(err)
	}

	jane, err := s.FindEntity(ctx, "Jane Doe", "PERSON_NAME")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteEntity(ctx, jane.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetEntity(ctx, jane.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	acme, err := s.FindEntity(ctx, "Acme Corp", "COMPANY_NAME")
	if err != nil {
		t.Fatal(err)
	}
	edges, err := s.ListRelationships(ctx, acme.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 0 {
		t.Errorf("edges after delete = %d, want 0", len(edges))
	}

	if err := s.DeleteEntity(ctx, jane.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestGetEntityNotFound(t *testing.T) {
	s := NewStorage()
	_, err := s.GetEntity(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchSimilar(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	if _, err := s.UpsertEntities(ctx, "email-1.txt", sampleEntities()); err != nil {
		t.Fatal(err)
	}

	got, err := s.SearchSimilar(ctx, "acme", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Value != "Acme Corp" {
		t.Errorf("results = %+v, want Acme Corp", got)
	}

	if got, _ := s.SearchSimilar(ctx, "", 10); got != nil {
		t.Errorf("empty query returned %+v", got)
	}
}
