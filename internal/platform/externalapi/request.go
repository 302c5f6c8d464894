package externalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error response is kept in the error message.
const maxErrorBody = 512

// GetJSON performs a GET and decodes a 2xx JSON body into out.
func GetJSON(ctx context.Context, client *http.Client, op, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Unreachable(op, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	return send(client, op, req, out)
}

// PostJSON encodes in as the request body and decodes a 2xx JSON response into out.
// out may be nil when the response body is not needed.
func PostJSON(ctx context.Context, client *http.Client, op, rawURL string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return Unreachable(op, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return send(client, op, req, out)
}

func send(client *http.Client, op string, req *http.Request, out any) error {
	res, err := client.Do(req)
	if err != nil {
		return Unreachable(op, 0, err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "op", op, "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return FromStatus(op, res.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return Malformed(op, fmt.Errorf("decode: %w", err))
	}
	return nil
}
