package middleware

import (
	"github.com/graphweave/graphweave/internal/util"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/graphweave/graphweave/pkg/ai"
	oai "github.com/graphweave/graphweave/pkg/ai/ollama"
	gai "github.com/graphweave/graphweave/pkg/ai/openai"
	"github.com/graphweave/graphweave/pkg/logger"
)

type AppUser struct {
	Subject string
	Role    string
}

type App struct {
	DBConn       *pgxpool.Pool
	Queue        *amqp091.Channel
	Key          *keyfunc.Keyfunc
	AiClient     ai.GenerativeClient
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	key *keyfunc.Keyfunc,
	masterAPIKey string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			adapter := util.GetEnv("AI_ADAPTER")
			var aiClient ai.GenerativeClient

			switch adapter {
			case "ollama":
				client, err := oai.NewClient(oai.NewClientParams{
					CompletionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
					EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),

					BaseURL: util.GetEnv("AI_CHAT_URL"),
					ApiKey:  util.GetEnv("AI_CHAT_KEY"),

					MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
				})
				if err != nil {
					logger.Fatal("Failed to create Ollama client", "err", err)
				}
				aiClient = client
			default:
				aiClient = gai.NewClient(gai.NewClientParams{
					CompletionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
					EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),

					ChatURL:      util.GetEnv("AI_CHAT_URL"),
					ChatKey:      util.GetEnv("AI_CHAT_KEY"),
					EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
					EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),

					MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
				})
			}

			app := &App{
				DBConn:       db,
				Queue:        queue,
				Key:          key,
				AiClient:     aiClient,
				MasterAPIKey: masterAPIKey,
			}
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
