// Package ollama implements ai.GenerativeClient against a local or remote
// Ollama server.
package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/graphweave/graphweave/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// Client implements the generative client against Ollama. Local models
// serve both completion and embedding traffic through one server.
//
// A Client should be created using NewClient.
type Client struct {
	completionModel string
	embeddingModel  string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *api.Client
}

// NewClientParams configures a Client. An empty BaseURL uses the Ollama
// default. MaxConcurrentRequests bounds in-flight calls; zero means 1,
// matching a single local model instance.
type NewClientParams struct {
	CompletionModel string
	EmbeddingModel  string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient creates an Ollama-backed generative client.
func NewClient(params NewClientParams) (*Client, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := http.DefaultClient
	if params.ApiKey != "" {
		httpClient = &http.Client{
			Transport: &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.ApiKey,
				},
				rt: http.DefaultTransport,
			},
		}
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Client{
		completionModel: params.CompletionModel,
		embeddingModel:  params.EmbeddingModel,

		reqLock: semaphore.NewWeighted(maxConcurrent),

		Client: api.NewClient(u, httpClient),
	}, nil
}
