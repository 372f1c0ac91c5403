package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "message only",
			err:  &AppError{Code: ErrCodeNotFound, Message: "job not found"},
			want: "job not found",
		},
		{
			name: "with cause",
			err:  &AppError{Code: ErrCodeUpstreamFailure, Message: "backend failed", Cause: errors.New("502")},
			want: "backend failed: 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
		wantMsg  string
	}{
		{"validation", Validation("bad input"), ErrCodeValidation, "bad input"},
		{"validationf", Validationf("limit %d too large", 5000), ErrCodeValidation, "limit 5000 too large"},
		{"not found", NotFound("job not found"), ErrCodeNotFound, "job not found"},
		{"not foundf", NotFoundf("job %s not found", "abc"), ErrCodeNotFound, "job abc not found"},
		{"unauthorized", Unauthorized("invalid callback secret"), ErrCodeUnauthorized, "invalid callback secret"},
		{"conflict", Conflict("exists"), ErrCodeConflict, "exists"},
		{"internal", Internal("boom"), ErrCodeInternal, "boom"},
		{"internalf", Internalf("enqueue %s", "abc"), ErrCodeInternal, "enqueue abc"},
		{"percent without args", Validation("100% wrong"), ErrCodeValidation, "100% wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %v, want %v", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestInvalidReport(t *testing.T) {
	err := InvalidReport("exactly one of result or error must be set")
	if !IsValidation(err) {
		t.Errorf("InvalidReport() should be a validation error, got %v", err.Code)
	}
	if err.Field != "report" {
		t.Errorf("InvalidReport().Field = %v, want report", err.Field)
	}
}

func TestUpstream(t *testing.T) {
	cause := errors.New("status 503")
	err := Upstream(cause, "backend returned %d", 503)
	if !IsUpstream(err) {
		t.Fatalf("Upstream() code = %v", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Upstream() should wrap its cause")
	}
	if err.Message != "backend returned 503" {
		t.Errorf("Upstream().Message = %v", err.Message)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")

	if err.Code != ErrCodeInternal {
		t.Errorf("Wrap().Code = %v, want %v", err.Code, ErrCodeInternal)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Wrap() should preserve the cause")
	}
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Errorf("Wrap(nil) should be nil")
	}
	if Wrapf(nil, ErrCodeInternal, "x %d", 1) != nil {
		t.Errorf("Wrapf(nil) should be nil")
	}
}

func TestPredicates_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NotFound("job not found"))

	tests := []struct {
		name string
		fn   func(error) bool
		err  error
		want bool
	}{
		{"not found wrapped", IsNotFound, wrapped, true},
		{"not found on validation", IsNotFound, Validation("x"), false},
		{"validation", IsValidation, Validation("x"), true},
		{"unauthorized", IsUnauthorized, Unauthorized("x"), true},
		{"upstream", IsUpstream, Upstream(nil, "x"), true},
		{"conflict", IsConflict, Conflict("x"), true},
		{"internal", IsInternal, Internal("x"), true},
		{"timeout", IsTimeout, Wrap(errors.New("x"), ErrCodeTimeout, "t"), true},
		{"canceled", IsCanceled, Wrap(errors.New("x"), ErrCodeCanceled, "c"), true},
		{"plain error", IsInternal, errors.New("plain"), false},
		{"nil", IsNotFound, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCodeAndField(t *testing.T) {
	err := fmt.Errorf("ctx: %w", ValidationField("prompt", "too long"))
	if GetCode(err) != ErrCodeValidation {
		t.Errorf("GetCode() = %v", GetCode(err))
	}
	if GetField(err) != "prompt" {
		t.Errorf("GetField() = %v", GetField(err))
	}
	if GetCode(errors.New("x")) != "" || GetField(errors.New("x")) != "" {
		t.Errorf("non-AppError should have empty code and field")
	}
}
