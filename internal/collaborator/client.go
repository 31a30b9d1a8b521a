// Package collaborator wraps the external analytics/AI service. The
// service is an opaque request/response boundary: successful payloads
// are relayed verbatim and every failure mode collapses into a single
// ErrUnavailable so nothing internal to the collaborator leaks out.
package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/linksight/gateway/internal/config"
	"github.com/linksight/gateway/internal/observability"
	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned for any transport failure, timeout,
// non-2xx response or open circuit.
var ErrUnavailable = errors.New("analytics service unavailable")

// Client calls the analytics/AI collaborator over HTTP.
type Client struct {
	baseURL string
	// Aggregation reads are cheap; generative calls get a longer budget.
	readClient *http.Client
	genClient  *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// ClientInterface defines the collaborator operations used by the API layer.
type ClientInterface interface {
	FetchAnalytics(ctx context.Context, urlID int64) (json.RawMessage, error)
	GraphInsight(ctx context.Context, urlID int64, graphType string) (json.RawMessage, error)
	Chat(ctx context.Context, urlID int64, message, chatContext string) (json.RawMessage, error)
	Insight(ctx context.Context, urlID int64) (json.RawMessage, error)
}

// NewClient creates a collaborator client from configuration.
func NewClient(cfg config.CollaboratorConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		readClient: &http.Client{Timeout: cfg.AnalyticsTimeout},
		genClient:  &http.Client{Timeout: cfg.GenerativeTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "collaborator",
		}),
		logger: logger,
	}
}

// FetchAnalytics retrieves the aggregation payload for a URL.
func (c *Client) FetchAnalytics(ctx context.Context, urlID int64) (json.RawMessage, error) {
	return c.do(ctx, c.readClient, "fetch_analytics", http.MethodGet,
		fmt.Sprintf("%s/analytics/%d", c.baseURL, urlID), nil)
}

// GraphInsight asks for a natural-language overview of one graph.
func (c *Client) GraphInsight(ctx context.Context, urlID int64, graphType string) (json.RawMessage, error) {
	payload := map[string]any{"url_id": urlID, "graph_type": graphType}
	return c.do(ctx, c.genClient, "graph_insight", http.MethodPost,
		c.baseURL+"/ai/graph-insight", payload)
}

// Chat forwards one analytics chat turn.
func (c *Client) Chat(ctx context.Context, urlID int64, message, chatContext string) (json.RawMessage, error) {
	if chatContext == "" {
		chatContext = "general"
	}
	payload := map[string]any{"url_id": urlID, "message": message, "context": chatContext}
	return c.do(ctx, c.genClient, "chat", http.MethodPost,
		c.baseURL+"/ai/chat", payload)
}

// Insight asks for the overall AI insight for a URL.
func (c *Client) Insight(ctx context.Context, urlID int64) (json.RawMessage, error) {
	payload := map[string]any{"url_id": urlID}
	return c.do(ctx, c.genClient, "insight", http.MethodPost,
		c.baseURL+"/ai/insight", payload)
}

func (c *Client) do(ctx context.Context, client *http.Client, operation, method, url string, payload any) (json.RawMessage, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var body io.Reader
		if payload != nil {
			b, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			body = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("collaborator returned status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		observability.CollaboratorErrors.WithLabelValues(operation).Inc()
		c.logger.ErrorContext(ctx, "collaborator call failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return nil, ErrUnavailable
	}
	return json.RawMessage(result.([]byte)), nil
}

// Ensure Client implements ClientInterface at compile time
var _ ClientInterface = (*Client)(nil)
