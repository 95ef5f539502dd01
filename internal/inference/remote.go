// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pdiddy/medonboard/internal/httputil"
	"github.com/pdiddy/medonboard/pkg/types"
)

// RemoteModel calls a model server that exposes
//
//	POST /classify  {"text": "..."} -> {"label": "Disease"}
//	POST /entities  {"text": "..."} -> {"entities": [{"text": "flu", "label": "DISEASE"}]}
//
// Rate-limited and warming-up responses are retried; consecutive failures
// open a circuit breaker so a dead server fails fast.
type RemoteModel struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

type textRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Label string `json:"label"`
}

type entitiesResponse struct {
	Entities []struct {
		Text  string `json:"text"`
		Label string `json:"label"`
	} `json:"entities"`
}

// NewRemoteModel returns a client for the server at cfg.Endpoint.
func NewRemoteModel(cfg types.InferenceConfig, logger *logrus.Logger) (*RemoteModel, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote inference requires an endpoint")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	threshold := cfg.BreakerThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        "InferenceServer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &RemoteModel{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
	}, nil
}

// Classify asks the server for the category of text. Labels outside the
// classifier label set are reported as errors.
func (m *RemoteModel) Classify(ctx context.Context, text string) (types.Category, error) {
	var resp classifyResponse
	if err := m.call(ctx, "/classify", text, &resp); err != nil {
		return "", err
	}
	label := types.Category(resp.Label)
	if !label.IsClassifierLabel() {
		return "", fmt.Errorf("server returned unknown label %q", resp.Label)
	}
	return label, nil
}

// Extract asks the server for entity spans. Spans with labels other than
// the three entity kinds are dropped.
func (m *RemoteModel) Extract(ctx context.Context, text string) ([]types.EntitySpan, error) {
	var resp entitiesResponse
	if err := m.call(ctx, "/entities", text, &resp); err != nil {
		return nil, err
	}
	var spans []types.EntitySpan
	for _, e := range resp.Entities {
		kind, ok := types.ParseEntityKind(e.Label)
		if !ok {
			m.logger.WithField("label", e.Label).Debug("Dropping entity with unknown label")
			continue
		}
		spans = append(spans, types.EntitySpan{Text: e.Text, Kind: kind})
	}
	return spans, nil
}

func (m *RemoteModel) call(ctx context.Context, path, text string, out any) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	_, err := m.breaker.Execute(func() (interface{}, error) {
		return nil, m.post(ctx, path, text, out)
	})
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	return nil
}

func (m *RemoteModel) post(ctx context.Context, path, text string, out any) error {
	body, err := json.Marshal(textRequest{Text: text})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, m.client, req, m.maxRetries)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
