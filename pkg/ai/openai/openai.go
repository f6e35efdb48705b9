// Package openai implements ai.GenerativeClient against any
// OpenAI-compatible API.
package openai

import (
	"sync"

	"github.com/graphweave/graphweave/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// Client talks to an OpenAI-compatible endpoint for completions and
// embeddings. Completion and embedding traffic may go to different
// endpoints (e.g. a local embedding server next to a hosted chat model).
//
// A Client should be created using NewClient.
type Client struct {
	completionModel string
	embeddingModel  string

	chatURL string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewClientParams configures a Client. Empty EmbeddingURL/EmbeddingKey fall
// back to the chat endpoint. MaxConcurrentRequests bounds in-flight calls;
// zero means 4.
type NewClientParams struct {
	CompletionModel string
	EmbeddingModel  string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	MaxConcurrentRequests int64
}

// NewClient creates an OpenAI-backed generative client.
func NewClient(params NewClientParams) *Client {
	embeddingURL := params.EmbeddingURL
	embeddingKey := params.EmbeddingKey
	if embeddingKey == "" {
		embeddingURL = params.ChatURL
		embeddingKey = params.ChatKey
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &Client{
		completionModel: params.CompletionModel,
		embeddingModel:  params.EmbeddingModel,

		chatURL: params.ChatURL,

		reqLock: semaphore.NewWeighted(maxConcurrent),

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(embeddingURL, embeddingKey),
	}
}

func newOpenaiClient(baseURL, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)
	return &client
}
