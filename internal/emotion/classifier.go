// Package emotion talks to the facial-expression classifier and prepares frames for it.
package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"flock/internal/middleware"
	"flock/internal/observability"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrEmptyResult is returned when the classifier answers with no labels.
var ErrEmptyResult = errors.New("classifier returned no emotions")

// Classifier maps an image to label -> confidence. Scores need not sum to 1.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (map[string]float64, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, image []byte) (map[string]float64, error)

func (f ClassifierFunc) Classify(ctx context.Context, image []byte) (map[string]float64, error) {
	return f(ctx, image)
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// HTTPClassifier posts JPEG frames to a classification endpoint that answers
// with [{"label": ..., "score": ...}]. Calls go through a circuit breaker and
// are never retried.
type HTTPClassifier struct {
	url     string
	client  *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[map[string]float64]
}

// NewHTTPClassifier builds a classifier client. The breaker opens after five
// consecutive failures and probes again after thirty seconds.
func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	observability.ClassifierBreakerState.Set(0)

	return &HTTPClassifier{
		url:     url,
		client:  &http.Client{},
		timeout: timeout,
		breaker: gobreaker.NewCircuitBreaker[map[string]float64](gobreaker.Settings{
			Name:        "emotion-classifier",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				observability.ClassifierBreakerState.Set(float64(to))
				middleware.Logger.Warn("circuit breaker state change",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			},
		}),
	}
}

// Classify sends one frame. An open breaker fails immediately.
func (c *HTTPClassifier) Classify(ctx context.Context, image []byte) (map[string]float64, error) {
	start := time.Now()
	result, err := c.breaker.Execute(func() (map[string]float64, error) {
		return c.do(ctx, image)
	})

	label := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		label = "rejected"
	case err != nil:
		label = "error"
	}
	observability.ClassifierLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return result, nil
}

func (c *HTTPClassifier) do(ctx context.Context, image []byte) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var scores []labelScore
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	if len(scores) == 0 {
		return nil, ErrEmptyResult
	}

	out := make(map[string]float64, len(scores))
	for _, s := range scores {
		label := strings.ToLower(strings.TrimSpace(s.Label))
		if label == "" {
			continue
		}
		out[label] = s.Score
	}
	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}

// Dominant returns the highest-scoring label. Ties go to the label that sorts first.
func Dominant(emotions map[string]float64) (string, float64, bool) {
	var (
		best  string
		score float64
		found bool
	)
	for label, s := range emotions {
		if !found || s > score || (s == score && label < best) {
			best, score, found = label, s, true
		}
	}
	return best, score, found
}
