package httputil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	transient := &RetryableError{Err: errors.New("503")}
	permanent := errors.New("400")

	tests := []struct {
		name      string
		policy    Policy
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{"success", Policy{Attempts: 3}, []error{nil}, 1, nil},
		{"default runs once", Policy{}, []error{transient, nil}, 1, transient},
		{"no retry", NoRetry, []error{transient, nil}, 1, transient},
		{"retries transient", Policy{Attempts: 3, Delay: time.Millisecond}, []error{transient, transient, nil}, 3, nil},
		{"gives up", Policy{Attempts: 2, Delay: time.Millisecond}, []error{transient, transient, nil}, 2, transient},
		{"permanent stops", Policy{Attempts: 3, Delay: time.Millisecond}, []error{permanent, nil}, 1, permanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.policy, func() error {
				err := tt.errs[calls]
				calls++
				return err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, Policy{Attempts: 3, Delay: time.Hour}, func() error {
		return &RetryableError{Err: errors.New("503")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestIsRetryable(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), &RetryableError{Err: errors.New("x")})
	if !IsRetryable(wrapped) {
		t.Error("wrapped retryable not detected")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error reported retryable")
	}
}
