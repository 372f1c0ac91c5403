//go:build tools

// Package tools documents development tool dependencies.
// These tools are run with `go run` or installed via `go install` and are not
// tracked in go.mod since they are development tools, not runtime dependencies.
package tools

// Development tools:
//
// mockgen - regenerates internal/mocks from the internal/core ports
//   Run: go generate ./internal/mocks
//   Version: go.uber.org/mock v0.6.0 (same as the go.mod test dependency)
//
// Air - Live reload for Go apps (DEV=true JOB_STORE=memory)
//   Install: go install github.com/air-verse/air@v1.63.0
//   Docs: https://github.com/air-verse/air
