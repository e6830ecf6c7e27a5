package logging

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsRateLimit(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status", errors.New("sonnet-4.5: status 429"), true},
		{"code", errors.New(`{"error":{"type":"rate_limit_error"}}`), true},
		{"other", errors.New("status 500"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRateLimit(tc.err); got != tc.want {
				t.Fatalf("IsRateLimit(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsCanceled(t *testing.T) {
	if !IsCanceled(fmt.Errorf("sweep: %w", context.Canceled)) {
		t.Fatal("wrapped context.Canceled not detected")
	}
	if IsCanceled(errors.New("boom")) {
		t.Fatal("plain error reported as canceled")
	}
}
