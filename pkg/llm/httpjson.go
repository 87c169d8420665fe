package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of an error response is kept in a ProviderError.
const maxErrorBody = 4096

// PostJSON marshals in, POSTs it to url, and decodes a 2xx JSON response
// into out. Every failure is a *ProviderError tagged with provider and op.
func PostJSON(ctx context.Context, client *http.Client, provider, op, url string, headers map[string]string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return NewResponseError(provider, op, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return NewResponseError(provider, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return NewTransportError(provider, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return NewStatusError(provider, op, resp.StatusCode, string(bytes.TrimSpace(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewResponseError(provider, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
