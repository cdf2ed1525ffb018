package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"storage unavailable", ErrStorageUnavailable, true},
		{"rate limited", ErrRateLimited, true},
		{"provider unavailable", ErrProviderUnavailable, true},
		{"cache tier down", ErrCacheTierDown, true},
		{"handler failure", ErrHandlerFailure, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"network error", fmt.Errorf("network connection failed"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"fatal in message", fmt.Errorf("fatal error occurred"), true},
		{"panic in message", fmt.Errorf("panic: something broke"), true},
		{"plain error", fmt.Errorf("something odd"), false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsFatal(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid data", ErrInvalidData, true},
		{"parsing failed", ErrParsingFailed, true},
		{"classification ambiguous", ErrClassificationAmbiguous, true},
		{"plain error", fmt.Errorf("something odd"), false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestWithKindAttachesKind(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := WithKind(ErrCacheTierDown, cause)

	if !IsCacheTierDown(err) {
		t.Error("expected kind to match ErrCacheTierDown")
	}
	if !errors.Is(err, cause) {
		t.Error("expected original cause to stay in the chain")
	}
	if IsProviderUnavailable(err) {
		t.Error("unexpected match against a different kind")
	}
}

func TestWithKindNilCause(t *testing.T) {
	err := WithKind(ErrClassificationAmbiguous, nil)
	if !IsClassificationAmbiguous(err) {
		t.Error("expected bare kind sentinel")
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	cause := fmt.Errorf("http 503")
	err := WrapTransient(
		WithKind(ErrProviderUnavailable, cause),
		"HTTPEmbedder", "Generate", "embedding request",
	)

	if !IsProviderUnavailable(err) {
		t.Error("expected kind to survive WrapTransient")
	}
	if !IsTransient(err) {
		t.Error("expected transient classification")
	}
	if !strings.Contains(err.Error(), "HTTPEmbedder.Generate") {
		t.Errorf("expected component context in message, got %q", err.Error())
	}
}

func TestWrapPattern(t *testing.T) {
	base := fmt.Errorf("boom")
	err := Wrap(base, "Router", "Route", "handler dispatch")
	expected := "Router.Route: handler dispatch failed: boom"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}

	if Wrap(nil, "Router", "Route", "noop") != nil {
		t.Error("expected nil for nil error")
	}
}

func TestWrapClassifications(t *testing.T) {
	base := fmt.Errorf("boom")

	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.wrap(base, "Comp", "Method", "action")
			var ce *ClassifiedError
			if !errors.As(err, &ce) {
				t.Fatal("expected ClassifiedError")
			}
			if ce.Class != test.class {
				t.Errorf("expected class %v, got %v", test.class, ce.Class)
			}
			if ce.Component != "Comp" || ce.Operation != "Method" {
				t.Errorf("expected component context, got %+v", ce)
			}
			if !errors.Is(err, base) {
				t.Error("expected original error in chain")
			}
			if test.wrap(nil, "Comp", "Method", "action") != nil {
				t.Error("expected nil for nil error")
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil defaults transient", nil, ErrorTransient},
		{"provider unavailable", ErrProviderUnavailable, ErrorTransient},
		{"missing config", ErrMissingConfig, ErrorFatal},
		{"parsing failed", ErrParsingFailed, ErrorInvalid},
		{"unknown defaults transient", fmt.Errorf("mystery"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Classify(test.err); got != test.expected {
				t.Errorf("expected %v, got %v", test.expected, got)
			}
		})
	}
}

func TestRetryConfigShouldRetry(t *testing.T) {
	rc := DefaultRetryConfig()

	if rc.ShouldRetry(nil, 0) {
		t.Error("nil error should not retry")
	}
	if rc.ShouldRetry(ErrConnectionTimeout, rc.MaxRetries) {
		t.Error("exhausted attempts should not retry")
	}
	if !rc.ShouldRetry(ErrConnectionTimeout, 0) {
		t.Error("transient error should retry")
	}
	if rc.ShouldRetry(ErrInvalidData, 0) {
		t.Error("invalid error should not retry")
	}

	scoped := RetryConfig{
		MaxRetries:      3,
		RetryableErrors: []error{ErrCacheTierDown},
	}
	if !scoped.ShouldRetry(WithKind(ErrCacheTierDown, fmt.Errorf("down")), 0) {
		t.Error("listed error should retry")
	}
	if scoped.ShouldRetry(ErrConnectionTimeout, 0) {
		t.Error("unlisted error should not retry")
	}
}

func TestRetryConfigBackoffDelay(t *testing.T) {
	rc := RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}

	if d := rc.BackoffDelay(0); d != 100*time.Millisecond {
		t.Errorf("attempt 0: expected 100ms, got %v", d)
	}
	if d := rc.BackoffDelay(1); d != 200*time.Millisecond {
		t.Errorf("attempt 1: expected 200ms, got %v", d)
	}
	if d := rc.BackoffDelay(10); d != time.Second {
		t.Errorf("attempt 10: expected cap at 1s, got %v", d)
	}
}

func TestToRetryConfig(t *testing.T) {
	rc := RetryConfig{
		MaxRetries:    3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 1.5,
	}
	cfg := rc.ToRetryConfig()
	if cfg.MaxAttempts != 4 {
		t.Errorf("expected 4 total attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != rc.InitialDelay || cfg.MaxDelay != rc.MaxDelay {
		t.Error("expected delays carried over")
	}
	if cfg.Multiplier != rc.BackoffFactor {
		t.Error("expected multiplier carried over")
	}
}
