// Package httpio holds the outbound HTTP helpers shared by the backend and callback adapters.
package httpio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout applies to clients built by ResolveClient.
const DefaultTimeout = 30 * time.Second

// ResolveClient returns hc, or a client with timeout (DefaultTimeout when zero).
func ResolveClient(hc *http.Client, timeout time.Duration) *http.Client {
	if hc != nil {
		return hc
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// ResolveLogger returns l or the default logger.
func ResolveLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// JSONBody encodes v as a request body.
func JSONBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(b), nil
}

// ReadLimited reads at most limit bytes of body, drains the rest and reports truncation.
func ReadLimited(body io.Reader, limit int64) ([]byte, bool, error) {
	if body == nil {
		return nil, false, nil
	}
	data, readErr := io.ReadAll(io.LimitReader(body, limit+1))
	truncated := int64(len(data)) > limit
	if truncated {
		data = data[:limit]
		if _, drainErr := io.Copy(io.Discard, body); drainErr != nil && readErr == nil {
			readErr = drainErr
		}
	}
	return data, truncated, readErr
}

// Snippet returns a short printable prefix of a response body for error messages.
func Snippet(b []byte) string {
	const snippetLen = 256
	if len(b) > snippetLen {
		return string(b[:snippetLen]) + "..."
	}
	return string(b)
}
