package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/graphweave/graphweave/pkg/extract"
	"github.com/graphweave/graphweave/pkg/nlp"
	"github.com/graphweave/graphweave/pkg/ontology"
	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/store/memory"
	"github.com/graphweave/graphweave/pkg/types"
)

type failingExtractor struct{}

func (failingExtractor) Extract(ctx context.Context, text string) ([]types.SpanCandidate, error) {
	return nil, nlp.ErrUnavailable
}

func TestProcessDocumentEndToEnd(t *testing.T) {
	ctx := context.Background()
	onto := ontology.NewStore()
	storage := memory.NewStorage()
	p := New(Params{Ontology: onto, Storage: storage})

	text := "Contact Jane Doe at jane.doe@example.com or call 555-123-4567."
	result, err := p.ProcessDocument(ctx, "email-1.txt", text)
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	if len(result.Entities) == 0 {
		t.Fatal("no entities extracted")
	}
	var foundEmail bool
	for _, e := range result.Entities {
		if e.Type == extract.TypeEmailAddress && e.CanonicalValue == "jane.doe@example.com" {
			foundEmail = true
		}
	}
	if !foundEmail {
		t.Errorf("email entity missing from %+v", result.Entities)
	}

	stored, err := storage.FindEntity(ctx, "jane.doe@example.com", extract.TypeEmailAddress)
	if err != nil {
		t.Fatalf("entity not persisted: %v", err)
	}
	if len(stored.Documents) != 1 || stored.Documents[0] != "email-1.txt" {
		t.Errorf("documents = %v", stored.Documents)
	}

	ontoEntity, err := onto.FindEntity("jane.doe@example.com", extract.TypeEmailAddress)
	if err != nil {
		t.Fatalf("entity not in ontology: %v", err)
	}
	elements := onto.Knowledge(ontoEntity.ID)
	if len(elements) != 1 {
		t.Fatalf("knowledge elements = %d, want 1", len(elements))
	}
	element := elements[0]
	if element.Document != "email-1.txt" || element.Type != "document_mention" {
		t.Errorf("element = %+v", element)
	}
	if element.Reliability <= 0 || element.Reliability > 1 {
		t.Errorf("reliability = %v, want within (0, 1]", element.Reliability)
	}
	if len(element.RelatedEntityIDs) != 1 || element.RelatedEntityIDs[0] != ontoEntity.ID {
		t.Errorf("related entities = %v, want the extracted entity", element.RelatedEntityIDs)
	}

	activities := onto.Activities(0)
	if len(activities) == 0 {
		t.Fatal("no audit trail recorded")
	}
	for _, activity := range activities {
		if !activity.Success || activity.Status != ontology.ActivityStatusCompleted {
			t.Errorf("activity %+v, want every ingestion mutation completed", activity)
		}
	}
	if ontoEntity.Category != types.CategoryInformation {
		t.Errorf("category = %s, want Information", ontoEntity.Category)
	}
}

func TestProcessDocumentIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStorage()
	p := New(Params{Ontology: ontology.NewStore(), Storage: storage})

	text := "Invoice total $1,234.56 due on 2024-01-15. Contact jane.doe@example.com."
	if _, err := p.ProcessDocument(ctx, "invoice.txt", text); err != nil {
		t.Fatal(err)
	}
	first, err := storage.ListEntities(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.ProcessDocument(ctx, "invoice.txt", text); err != nil {
		t.Fatal(err)
	}
	second, err := storage.ListEntities(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Errorf("re-ingestion changed entity count: %d -> %d", len(first), len(second))
	}
}

func TestStatisticalFallbackStreak(t *testing.T) {
	ctx := context.Background()
	adapter := extract.NewStatisticalAdapter(failingExtractor{}, extract.NewPatternExtractor())
	p := New(Params{Statistical: adapter})

	text := "Contact jane.doe@example.com."
	first, err := p.ProcessDocument(ctx, "doc-1.txt", text)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Errors) != 0 {
		t.Errorf("first fallback already reported: %v", first.Errors)
	}

	second, err := p.ProcessDocument(ctx, "doc-2.txt", text)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Errors) != 1 || !strings.Contains(second.Errors[0], "consecutive") {
		t.Errorf("second consecutive fallback not reported: %v", second.Errors)
	}
}

type failingStorage struct {
	store.GraphStorage
}

func (failingStorage) UpsertEntities(ctx context.Context, document string, entities []store.EntityUpsert) (store.Stats, error) {
	return store.Stats{}, errors.New("connection refused")
}

func TestProcessBatchCollectsErrors(t *testing.T) {
	good := New(Params{Storage: memory.NewStorage()})
	bad := New(Params{Storage: failingStorage{}})

	docs := []Document{
		{Name: "a.txt", Text: "Contact jane.doe@example.com."},
		{Name: "b.txt", Text: "Call 555-123-4567."},
	}

	summary := good.ProcessBatch(context.Background(), docs, 2)
	if summary.TotalDocuments != 2 {
		t.Errorf("documents = %d, want 2", summary.TotalDocuments)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("errors = %v, want none", summary.Errors)
	}
	if summary.TotalEntities == 0 {
		t.Error("no entities counted")
	}

	summary = bad.ProcessBatch(context.Background(), docs, 2)
	if summary.TotalDocuments != 2 {
		t.Errorf("failing storage: documents = %d, want 2 (batch must not abort)", summary.TotalDocuments)
	}
	if len(summary.Errors) != 2 {
		t.Errorf("failing storage: errors = %d, want one per document", len(summary.Errors))
	}
}

func TestProcessBatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Params{Storage: memory.NewStorage()})
	docs := []Document{
		{Name: "a.txt", Text: "Contact jane.doe@example.com."},
		{Name: "b.txt", Text: "Call 555-123-4567."},
	}

	summary := p.ProcessBatch(ctx, docs, 1)
	if summary.TotalDocuments != 0 {
		t.Errorf("documents = %d, want 0 after pre-cancelled context", summary.TotalDocuments)
	}
}
