package config

import (
	"strings"
	"time"
)

// BackendKind selects the processing backend.
type BackendKind string

const (
	BackendSimulated BackendKind = "simulated"
	BackendRemote    BackendKind = "remote"
)

// BackendConfig configures the processing backend (BACKEND_*).
type BackendConfig struct {
	Kind BackendKind `env:"KIND" envDefault:"simulated"`

	// Simulated backend.
	BaseDelay     time.Duration `env:"BASE_DELAY"      envDefault:"2s"`
	Jitter        time.Duration `env:"JITTER"          envDefault:"3s"`
	FailureRate   float64       `env:"FAILURE_RATE"    envDefault:"0"`
	PricePerToken float64       `env:"PRICE_PER_TOKEN" envDefault:"0.00002"`
	Template      string        `env:"TEMPLATE"`

	Remote RemoteBackendConfig `envPrefix:"REMOTE_"`
}

// RemoteBackendConfig configures the HTTP backend (BACKEND_REMOTE_*).
type RemoteBackendConfig struct {
	URL        string        `env:"URL"`
	ResultPath string        `env:"RESULT_PATH" envDefault:"result"`
	UsagePath  string        `env:"USAGE_PATH"  envDefault:"metadata"`
	Timeout    time.Duration `env:"TIMEOUT"     envDefault:"60s"`

	OAuth2 OAuth2ClientConfig `envPrefix:"OAUTH2_"`
}

// OAuth2ClientConfig holds client-credentials settings (BACKEND_REMOTE_OAUTH2_*).
type OAuth2ClientConfig struct {
	TokenURL     string   `env:"TOKEN_URL"`
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	Scopes       []string `env:"SCOPES"`
}

// Enabled reports whether enough is configured to request tokens.
func (o OAuth2ClientConfig) Enabled() bool {
	return o.TokenURL != "" && o.ClientID != ""
}

// Sanitize applies guardrails to backend configuration values.
func (b *BackendConfig) Sanitize() {
	b.Kind = BackendKind(strings.ToLower(strings.TrimSpace(string(b.Kind))))
	if b.Kind != BackendRemote {
		b.Kind = BackendSimulated
	}
	if b.BaseDelay < 0 {
		b.BaseDelay = 0
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	b.FailureRate = min(max(b.FailureRate, 0), 1)
	if b.PricePerToken < 0 {
		b.PricePerToken = 0
	}

	b.Remote.URL = strings.TrimSpace(b.Remote.URL)
	if b.Remote.Timeout <= 0 {
		b.Remote.Timeout = 60 * time.Second
	}
	b.Remote.OAuth2.TokenURL = strings.TrimSpace(b.Remote.OAuth2.TokenURL)
	b.Remote.OAuth2.ClientID = strings.TrimSpace(b.Remote.OAuth2.ClientID)
}

// CallbackConfig configures completion report delivery (CALLBACK_*).
type CallbackConfig struct {
	// URL is where queue tasks post completion reports; normally this service's own endpoint.
	URL     string        `env:"URL"     envDefault:"http://localhost:8080/api/callbacks/completion"`
	Secret  string        `env:"SECRET"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to callback configuration values.
func (c *CallbackConfig) Sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}
