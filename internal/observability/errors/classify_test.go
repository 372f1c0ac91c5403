package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/target/mmk-prompt-jobs/internal/domain/model"
	apperrors "github.com/target/mmk-prompt-jobs/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: "deadline_exceeded"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "job not found", err: fmt.Errorf("lookup: %w", model.ErrJobNotFound), want: "not_found"},
		{name: "app error code", err: apperrors.Upstream(goerrors.New("502"), "backend failed"), want: "upstream_failure"},
		{name: "typed error", err: fmt.Errorf("dial: %w", &net.OpError{Op: "dial", Err: goerrors.New("refused")}), want: "errors_errorstring"},
		{name: "plain error", err: goerrors.New("boom"), want: "errors_errorstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
