package pipeline

import (
	"context"
	"sync"

	"github.com/graphweave/graphweave/pkg/logger"
)

const defaultWorkers = 4

// Document is one unit of batch input.
type Document struct {
	Name string
	Text string
}

// DocumentError records why one document of a batch failed or degraded.
type DocumentError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Summary aggregates one batch run. Errors holds both failed documents and
// recoverable per-document problems; a non-empty list never implies the
// batch aborted.
type Summary struct {
	TotalDocuments     int             `json:"total_documents"`
	TotalEntities      int             `json:"total_entities"`
	TotalRelationships int             `json:"total_relationships"`
	Errors             []DocumentError `json:"errors,omitempty"`
}

// ProcessBatch runs the pipeline over documents with a bounded worker pool.
// A failing document is recorded and the batch continues. Cancelling ctx
// stops new documents from starting; documents already in flight finish and
// are counted.
func (p *Pipeline) ProcessBatch(ctx context.Context, documents []Document, workers int) Summary {
	if workers <= 0 {
		workers = defaultWorkers
	}

	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)
	jobs := make(chan Document)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				// Detached from ctx: an in-flight document runs to
				// completion even when the batch is cancelled.
				result, err := p.ProcessDocument(context.WithoutCancel(ctx), doc.Name, doc.Text)

				mu.Lock()
				summary.TotalDocuments++
				if err != nil {
					logger.Warn("[Pipeline] Document failed", "document", doc.Name, "err", err)
					summary.Errors = append(summary.Errors, DocumentError{File: doc.Name, Message: err.Error()})
					mu.Unlock()
					continue
				}
				summary.TotalEntities += len(result.Entities)
				summary.TotalRelationships += len(result.Relationships)
				for _, msg := range result.Errors {
					summary.Errors = append(summary.Errors, DocumentError{File: doc.Name, Message: msg})
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, doc := range documents {
		// Checked before the select: with both a cancelled context and an
		// idle worker ready, select would pick randomly.
		if ctx.Err() != nil {
			logger.Info("[Pipeline] Batch cancelled, not starting remaining documents")
			break
		}
		select {
		case <-ctx.Done():
			logger.Info("[Pipeline] Batch cancelled, not starting remaining documents")
			break feed
		case jobs <- doc:
		}
	}
	close(jobs)
	wg.Wait()

	return summary
}
