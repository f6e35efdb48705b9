package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/graphweave/graphweave/pkg/types"
)

const defaultTimeout = 30 * time.Second

// Client talks to the statistical NLP sidecar over HTTP.
//
// A Client should be created using NewClient.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// ClientParams configures a Client. Timeout bounds the whole request;
// zero means the default of 30 seconds.
type ClientParams struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a statistical extractor client for the given sidecar URL.
func NewClient(params ClientParams) *Client {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(params.BaseURL, "/"),
		model:   params.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type extractRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type wireEntity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
	Context    string  `json:"context"`
}

type extractResponse struct {
	Success  bool         `json:"success"`
	Entities []wireEntity `json:"entities"`
	Error    string       `json:"error,omitempty"`
}

// Extract sends text to the sidecar and maps its entities to span
// candidates. Returned candidates carry no trusted offsets; callers must
// re-resolve them against the original text.
func (c *Client) Extract(ctx context.Context, text string) ([]types.SpanCandidate, error) {
	body, err := json.Marshal(extractRequest{Text: text, Model: c.model})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, parsed.Error)
	}

	candidates := make([]types.SpanCandidate, 0, len(parsed.Entities))
	for _, e := range parsed.Entities {
		if strings.TrimSpace(e.Value) == "" {
			continue
		}
		cand := types.SpanCandidate{
			Type:       e.Type,
			Value:      e.Value,
			Confidence: e.Confidence,
			Context:    e.Context,
			Source:     types.SourceStatistical,
		}
		if e.Label != "" {
			cand.Metadata = map[string]any{"label": e.Label}
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}
