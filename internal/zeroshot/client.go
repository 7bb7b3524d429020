// Package zeroshot defines the boundary to an external zero-shot text
// classification model. The pipeline treats the model as a black box that may
// be absent, slow, or broken; callers always fall back to rule-based results
// on error.
package zeroshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrUnavailable is returned when no model is configured.
var ErrUnavailable = errors.New("zero-shot classifier unavailable")

// Request is one classification request against a fixed candidate vocabulary.
type Request struct {
	Text   string            `json:"text"`
	Labels []string          `json:"candidate_labels"`
	Hints  map[string]string `json:"hints,omitempty"`
}

// Prediction is the model's best label with its score in [0,1].
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classifier is the single-method dependency the analysis pipeline takes.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Prediction, error)
}

// Disabled is the no-op classifier used when no model endpoint is configured.
type Disabled struct{}

func (Disabled) Classify(context.Context, Request) (Prediction, error) {
	return Prediction{}, ErrUnavailable
}

// Func adapts a plain function to the Classifier interface, mainly for tests.
type Func func(ctx context.Context, req Request) (Prediction, error)

func (f Func) Classify(ctx context.Context, req Request) (Prediction, error) {
	return f(ctx, req)
}

// HTTPClassifier calls a zero-shot inference endpoint over JSON.
type HTTPClassifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPClassifier creates a client for the given endpoint URL. A nil
// httpClient gets a default with a 30s transport timeout; the per-call bound
// still comes from the caller's context.
func NewHTTPClassifier(url string, httpClient *http.Client, logger *slog.Logger) *HTTPClassifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClassifier{url: url, client: httpClient, logger: logger}
}

// Classify posts the request and decodes a {label, score} response. All
// transport and protocol failures surface as errors for the caller's
// fallback; nothing here panics or retries.
func (c *HTTPClassifier) Classify(ctx context.Context, req Request) (Prediction, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body, err := json.Marshal(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("zeroshot.request",
		"req_id", reqID,
		"url", c.url,
		"text_length", len(req.Text),
	)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Warn("zeroshot.send_error",
			"req_id", reqID,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Prediction{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Prediction{}, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("zeroshot.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return Prediction{}, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}

	var pred Prediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return Prediction{}, fmt.Errorf("decode response: %w", err)
	}
	if pred.Score < 0 || pred.Score > 1 {
		return Prediction{}, fmt.Errorf("score out of range: %f", pred.Score)
	}
	return pred, nil
}
