package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Config holds the annotation service configuration.
type Config struct {
	Endpoint string        `env:"ANNOTATE_API_URL,required"` // completion endpoint of the analysis service
	APIKey   string        `env:"ANNOTATE_API_KEY,required"`
	Timeout  time.Duration `env:"ANNOTATE_TIMEOUT" envDefault:"30s"`
}

// Result is the structured output of one annotation call.
type Result struct {
	AnnotatedText string `json:"annotated_text"`
	Model         string `json:"model,omitempty"`
}

// Annotator is the opaque analysis call behind the annotate endpoint.
type Annotator interface {
	Annotate(ctx context.Context, text string) (*Result, error)
}

// Client is the HTTP implementation of Annotator.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewClient creates an annotation client. Panics on an empty endpoint to
// fail fast during initialization.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		panic("annotate: endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
	}
}

type annotateRequest struct {
	Text string `json:"text"`
}

// Annotate sends the text to the analysis service and returns its
// structured output. Bounded by the client timeout and the caller's context.
func (c *Client) Annotate(ctx context.Context, text string) (*Result, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(annotateRequest{Text: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Join(ErrUnexpectedResponse, err)
	}
	if result.AnnotatedText == "" {
		return nil, fmt.Errorf("%w: empty annotation", ErrUnexpectedResponse)
	}
	return &result, nil
}
