// Package collector delivers telemetry records to an HTTP log collector, the
// REST ingestion endpoint exposed by LLM observability platforms.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/ragloop/pkg/telemetry"
)

const (
	sinkName = "collector"

	// RecordsPath is appended to the target URL.
	RecordsPath = "/v1/records"

	// StreamHeader names the log stream records are written to.
	StreamHeader = "X-Log-Stream"

	// DefaultStream is used when no stream is configured.
	DefaultStream = "ragloop"

	defaultTimeout = 10 * time.Second
)

// Config configures the collector sink.
type Config struct {
	// Target is the collector base URL.
	Target string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Stream is sent in the X-Log-Stream header.
	Stream string

	Timeout time.Duration
}

// Sink POSTs each record as JSON to the collector.
type Sink struct {
	endpoint   string
	apiKey     string
	stream     string
	httpClient *http.Client
}

// New creates a collector sink.
func New(c Config) (*Sink, error) {
	if c.Target == "" {
		return nil, errors.New("collector target is required")
	}
	if c.Stream == "" {
		c.Stream = DefaultStream
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}

	return &Sink{
		endpoint:   strings.TrimRight(c.Target, "/") + RecordsPath,
		apiKey:     c.APIKey,
		stream:     c.Stream,
		httpClient: &http.Client{Timeout: c.Timeout},
	}, nil
}

// Record sends rec to the collector. Any non-2xx status is an error.
func (s *Sink) Record(ctx context.Context, rec *telemetry.Record) error {
	if rec == nil {
		return telemetry.ErrNilRecord
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return telemetry.NewError(sinkName, fmt.Errorf("marshal record: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return telemetry.NewError(sinkName, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(StreamHeader, s.stream)
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return telemetry.NewError(sinkName, fmt.Errorf("send record: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return telemetry.NewError(sinkName, fmt.Errorf("collector returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close is a no-op.
func (s *Sink) Close() error {
	return nil
}

var _ telemetry.Sink = (*Sink)(nil)
