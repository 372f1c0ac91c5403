package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/target/mmk-prompt-jobs/internal/adapters/httpio"
	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	apperrors "github.com/target/mmk-prompt-jobs/internal/errors"
)

// MaxRemoteResponseBytes bounds how much of a remote response is read.
const MaxRemoteResponseBytes = 64 << 10

// Default JMESPath expressions for remote responses.
const (
	DefaultResultPath = "result"
	DefaultUsagePath  = "metadata"
)

// OAuth2Config enables client-credentials authentication for the remote backend.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// RemoteConfig configures Remote.
type RemoteConfig struct {
	URL        string
	ResultPath string
	UsagePath  string
	Timeout    time.Duration
	// OAuth2 is optional; nil sends unauthenticated requests.
	OAuth2     *OAuth2Config
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Remote forwards prompts to an HTTP service and extracts the answer with JMESPath.
type Remote struct {
	url        string
	resultPath string
	usagePath  string
	client     *http.Client
	logger     *slog.Logger
}

var _ core.ProcessingBackend = (*Remote)(nil)

type remoteRequest struct {
	JobID  string `json:"jobId"`
	Prompt string `json:"prompt"`
}

// NewRemote validates cfg and builds a Remote backend.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("invalid remote backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote backend URL scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("invalid remote backend URL: missing host")
	}

	resultPath := strings.TrimSpace(cfg.ResultPath)
	if resultPath == "" {
		resultPath = DefaultResultPath
	}
	if _, err := jmespath.Compile(resultPath); err != nil {
		return nil, fmt.Errorf("invalid result JMESPath: %w", err)
	}
	usagePath := strings.TrimSpace(cfg.UsagePath)
	if usagePath != "" {
		if _, err := jmespath.Compile(usagePath); err != nil {
			return nil, fmt.Errorf("invalid usage JMESPath: %w", err)
		}
	}

	client := httpio.ResolveClient(cfg.HTTPClient, cfg.Timeout)
	if cfg.OAuth2 != nil {
		client, err = oauth2Client(cfg.OAuth2, client)
		if err != nil {
			return nil, err
		}
	}

	return &Remote{
		url:        u.String(),
		resultPath: resultPath,
		usagePath:  usagePath,
		client:     client,
		logger:     httpio.ResolveLogger(cfg.Logger).With("component", "remote_backend"),
	}, nil
}

func oauth2Client(cfg *OAuth2Config, base *http.Client) (*http.Client, error) {
	if strings.TrimSpace(cfg.TokenURL) == "" || strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("oauth2 token URL and client id are required")
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	// Token requests reuse the base client's transport and timeout.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := cc.Client(ctx)
	client.Timeout = base.Timeout
	return client, nil
}

// Process implements core.ProcessingBackend.
func (r *Remote) Process(ctx context.Context, jobID, prompt string) (*model.ProcessingResult, error) {
	body, err := httpio.JSONBody(remoteRequest{JobID: jobID, Prompt: prompt})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("build remote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, apperrors.Upstream(err, "remote backend request failed")
	}
	defer resp.Body.Close()

	data, truncated, err := httpio.ReadLimited(resp.Body, MaxRemoteResponseBytes)
	if err != nil {
		return nil, apperrors.Upstream(err, "read remote backend response")
	}
	r.logger.DebugContext(ctx, "remote backend responded",
		"job_id", jobID, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Upstream(nil, "remote backend returned %d: %s", resp.StatusCode, httpio.Snippet(data))
	}
	if truncated {
		return nil, apperrors.Upstream(nil, "remote backend response exceeds %d bytes", MaxRemoteResponseBytes)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Upstream(err, "decode remote backend response")
	}
	return r.extract(doc)
}

func (r *Remote) extract(doc any) (*model.ProcessingResult, error) {
	raw, err := jmespath.Search(r.resultPath, doc)
	if err != nil {
		return nil, apperrors.Upstream(err, "evaluate result path %q", r.resultPath)
	}
	result, err := stringify(raw)
	if err != nil {
		return nil, err
	}

	out := &model.ProcessingResult{Result: result}
	if r.usagePath == "" {
		return out, nil
	}
	rawUsage, err := jmespath.Search(r.usagePath, doc)
	if err != nil {
		return nil, apperrors.Upstream(err, "evaluate usage path %q", r.usagePath)
	}
	if rawUsage == nil {
		return out, nil
	}
	b, err := json.Marshal(rawUsage)
	if err != nil {
		return nil, apperrors.Upstream(err, "encode usage")
	}
	var usage model.Usage
	if err := json.Unmarshal(b, &usage); err != nil {
		return nil, apperrors.Upstream(err, "decode usage")
	}
	out.Metadata = &usage
	return out, nil
}

// stringify keeps string results as-is and renders any other JSON value compactly.
func stringify(v any) (string, error) {
	switch tv := v.(type) {
	case nil:
		return "", apperrors.Upstream(nil, "remote backend response has no result")
	case string:
		return tv, nil
	default:
		b, err := json.Marshal(tv)
		if err != nil {
			return "", apperrors.Upstream(err, "encode result")
		}
		return string(b), nil
	}
}
