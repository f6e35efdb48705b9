package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/extension"
	"github.com/graphweave/graphweave/pkg/extract"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/nlp"
	"github.com/graphweave/graphweave/pkg/pipeline"
	"github.com/graphweave/graphweave/pkg/refine"
	pgxstore "github.com/graphweave/graphweave/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IngestDocument is one document of an ingest batch.
type IngestDocument struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// QueueIngestMsg is the ingest_queue message body.
type QueueIngestMsg struct {
	CorrelationID string           `json:"correlation_id"`
	EnabledTypes  []string         `json:"enabled_types,omitempty"`
	EnabledPacks  []string         `json:"enabled_packs,omitempty"`
	Documents     []IngestDocument `json:"documents"`
}

// ProcessIngestMessage runs the extraction pipeline over the documents of
// one ingest message and upserts the fused graph into Postgres. Documents
// that fail individually are logged; the message only fails (and retries)
// when no document could be processed at all.
func ProcessIngestMessage(
	ctx context.Context,
	aiClient ai.GenerativeClient,
	conn *pgxpool.Pool,
	msgBody string,
) error {
	var msg QueueIngestMsg
	if err := json.Unmarshal([]byte(msgBody), &msg); err != nil {
		return fmt.Errorf("invalid ingest message: %w", err)
	}
	if len(msg.Documents) == 0 {
		logger.Warn("[Queue] Ingest message without documents", "correlation_id", msg.CorrelationID)
		return nil
	}

	p := buildPipeline(aiClient, conn, msg.EnabledTypes, msg.EnabledPacks)

	documents := make([]pipeline.Document, 0, len(msg.Documents))
	for _, doc := range msg.Documents {
		documents = append(documents, pipeline.Document{Name: doc.Name, Text: doc.Text})
	}

	workers := int(util.GetEnvNumeric("PIPELINE_WORKERS", 4))
	summary := p.ProcessBatch(ctx, documents, workers)

	logger.Info(
		"[Queue] Ingest batch processed",
		"correlation_id", msg.CorrelationID,
		"documents", summary.TotalDocuments,
		"entities", summary.TotalEntities,
		"relationships", summary.TotalRelationships,
		"errors", len(summary.Errors),
	)
	for _, docErr := range summary.Errors {
		logger.Warn("[Queue] Document problem", "document", docErr.File, "message", docErr.Message)
	}

	if summary.TotalDocuments > 0 && len(summary.Errors) >= summary.TotalDocuments {
		allFailed := true
		seen := make(map[string]bool)
		for _, docErr := range summary.Errors {
			seen[docErr.File] = true
		}
		for _, doc := range documents {
			if !seen[doc.Name] {
				allFailed = false
				break
			}
		}
		if allFailed {
			return fmt.Errorf("all %d documents of batch %s reported problems", summary.TotalDocuments, msg.CorrelationID)
		}
	}
	return nil
}

func buildPipeline(aiClient ai.GenerativeClient, conn *pgxpool.Pool, enabledTypes, enabledPacks []string) *pipeline.Pipeline {
	registry := extension.Default()
	defs := append(extract.CoreTypes(), registry.ActiveTypes(enabledPacks...)...)
	pattern := extract.NewPatternExtractor(defs...)

	var statistical *extract.StatisticalAdapter
	if nlpURL := util.GetEnv("NLP_URL"); nlpURL != "" {
		client := nlp.NewClient(nlp.ClientParams{
			BaseURL: nlpURL,
			Model:   util.GetEnv("NLP_MODEL"),
		})
		statistical = extract.NewStatisticalAdapter(client, pattern)
	}

	var refiner *refine.Refiner
	if aiClient != nil {
		refiner = refine.New(refine.Params{
			Client:           aiClient,
			Model:            util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			StructuredOutput: util.GetEnvBool("AI_STRUCTURED_OUTPUT", false),
		})
	}

	return pipeline.New(pipeline.Params{
		Pattern:      pattern,
		Statistical:  statistical,
		Registry:     registry,
		Refiner:      refiner,
		Storage:      pgxstore.NewStorageWithConnection(conn, aiClient),
		EnabledTypes: enabledTypes,
		EnabledPacks: enabledPacks,
	})
}
