package main

import (
	"context"
	"encoding/json"
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/ai"
	oai "github.com/graphweave/graphweave/pkg/ai/ollama"
	gai "github.com/graphweave/graphweave/pkg/ai/openai"
	"github.com/graphweave/graphweave/pkg/extension"
	"github.com/graphweave/graphweave/pkg/extract"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/logger/console"
	"github.com/graphweave/graphweave/pkg/nlp"
	"github.com/graphweave/graphweave/pkg/ontology"
	"github.com/graphweave/graphweave/pkg/pipeline"
	"github.com/graphweave/graphweave/pkg/refine"
	"github.com/graphweave/graphweave/pkg/store/memory"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	graphstore "github.com/graphweave/graphweave/pkg/store"
	pgxstore "github.com/graphweave/graphweave/pkg/store/pgx"
)

func main() {
	util.LoadEnv()

	dir := flag.String("dir", ".", "directory of documents to ingest (.txt and .md files)")
	workers := flag.Int("workers", 4, "concurrent documents")
	packs := flag.String("packs", "", "comma-separated extension packs to enable (empty = all)")
	flag.Parse()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	ctx := context.Background()

	aiClient := newAIClient()

	var storage graphstore.GraphStorage = memory.NewStorage()
	if databaseURL := util.GetEnv("DATABASE_URL"); databaseURL != "" && aiClient != nil {
		poolCfg, err := pgxpool.ParseConfig(databaseURL)
		if err != nil {
			logger.Fatal("Invalid database URL", "err", err)
		}
		// Registered before the pool exists; pool.Config() returns a copy.
		poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}
		pgConn, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			logger.Fatal("Unable to connect to database", "err", err)
		}
		defer pgConn.Close()
		storage = pgxstore.NewStorageWithConnection(pgConn, aiClient)
		logger.Info("Using Postgres storage")
	} else {
		logger.Info("Using in-memory storage")
	}

	var enabledPacks []string
	if *packs != "" {
		enabledPacks = strings.Split(*packs, ",")
	}

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

	onto := ontology.NewStore()
	p := pipeline.New(pipeline.Params{
		Pattern:      pattern,
		Statistical:  statistical,
		Registry:     registry,
		Refiner:      refiner,
		Ontology:     onto,
		Storage:      storage,
		EnabledPacks: enabledPacks,
	})

	documents, err := loadDocuments(*dir)
	if err != nil {
		logger.Fatal("Failed to read documents", "dir", *dir, "err", err)
	}
	if len(documents) == 0 {
		logger.Fatal("No .txt or .md documents found", "dir", *dir)
	}
	logger.Info("Ingesting documents", "count", len(documents), "workers", *workers)

	summary := p.ProcessBatch(ctx, documents, *workers)

	logger.Info(
		"Ingestion finished",
		"documents", summary.TotalDocuments,
		"entities", summary.TotalEntities,
		"relationships", summary.TotalRelationships,
		"ontology_entities", onto.EntityCount(),
		"ontology_relationships", onto.RelationshipCount(),
	)

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Fatal("Failed to marshal summary", "err", err)
	}
	os.Stdout.Write(append(out, '\n'))
}

func newAIClient() ai.GenerativeClient {
	if util.GetEnv("AI_CHAT_URL") == "" && util.GetEnv("AI_CHAT_KEY") == "" {
		return nil
	}

	switch util.GetEnv("AI_ADAPTER") {
	case "ollama":
		client, err := oai.NewClient(oai.NewClientParams{
			CompletionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewClient(gai.NewClientParams{
			CompletionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),

			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
		})
	}
}

func loadDocuments(dir string) ([]pipeline.Document, error) {
	var documents []pipeline.Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		documents = append(documents, pipeline.Document{
			Name: rel,
			Text: string(data),
		})
		return nil
	})
	return documents, err
}
