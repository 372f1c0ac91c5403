// Package callback posts completion reports to the service's callback endpoint.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/target/mmk-prompt-jobs/internal/adapters/httpio"
	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	apperrors "github.com/target/mmk-prompt-jobs/internal/errors"
)

// maxResponseBytes bounds how much of the callback response is kept for errors.
const maxResponseBytes = 4 << 10

// Options configures HTTPDeliverer.
type Options struct {
	URL        string
	Secret     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// HTTPDeliverer posts reports as JSON with the shared secret header.
type HTTPDeliverer struct {
	url    string
	secret string
	client *http.Client
	logger *slog.Logger
}

var _ core.ReportDeliverer = (*HTTPDeliverer)(nil)

// NewHTTPDeliverer validates opts and builds a deliverer.
func NewHTTPDeliverer(opts Options) (*HTTPDeliverer, error) {
	u, err := url.Parse(strings.TrimSpace(opts.URL))
	if err != nil {
		return nil, fmt.Errorf("invalid callback URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid callback URL: %q", opts.URL)
	}
	if opts.Secret == "" {
		return nil, errors.New("callback secret is required")
	}
	return &HTTPDeliverer{
		url:    u.String(),
		secret: opts.Secret,
		client: httpio.ResolveClient(opts.HTTPClient, opts.Timeout),
		logger: httpio.ResolveLogger(opts.Logger).With("component", "callback_deliverer"),
	}, nil
}

// Deliver implements core.ReportDeliverer. Any non-2xx answer is an error.
func (d *HTTPDeliverer) Deliver(ctx context.Context, report model.CompletionReport) error {
	body, err := httpio.JSONBody(report)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(model.CallbackSecretHeader, d.secret)

	resp, err := d.client.Do(req)
	if err != nil {
		return apperrors.Upstream(err, "post completion report for job %s", report.JobID)
	}
	defer resp.Body.Close()

	data, _, readErr := httpio.ReadLimited(resp.Body, maxResponseBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Upstream(nil, "callback returned %d for job %s: %s",
			resp.StatusCode, report.JobID, httpio.Snippet(data))
	}
	if readErr != nil {
		d.logger.DebugContext(ctx, "reading callback response failed", "job_id", report.JobID, "error", readErr)
	}
	d.logger.DebugContext(ctx, "completion report delivered",
		"job_id", report.JobID, "status", string(report.Status()))
	return nil
}
