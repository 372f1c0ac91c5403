package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API, the job queue and the callback endpoint.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeStatsReporter periodically publishes job count gauges.
	ServiceModeStatsReporter ServiceMode = "stats-reporter"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeStatsReporter,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for part := range strings.SplitSeq(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeStatsReporter:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, stats-reporter)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// StatsReporterConfig contains stats reporter service configuration.
type StatsReporterConfig struct {
	// Interval is the time between two job count snapshots.
	Interval time.Duration `env:"STATS_REPORTER_INTERVAL" envDefault:"30s"`
}

// Sanitize applies guardrails to stats reporter configuration values.
func (s *StatsReporterConfig) Sanitize() {
	// Every tick is a count query against the store.
	if s.Interval < 5*time.Second {
		s.Interval = 5 * time.Second
	}
}
