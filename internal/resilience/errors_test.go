package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
)

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"net timeout", timeoutErr{}, true},
		{"wrapped net timeout", eris.Wrap(timeoutErr{}, "pipedrive: send request"), true},
		{"dns timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"deadline exceeded", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"client timeout text", errors.New("Get \"x\": context deadline exceeded (Client.Timeout exceeded while awaiting headers)"), true},
		{"status error", errors.New("pipedrive: unexpected status 500"), false},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTimeout(tt.err); got != tt.want {
				t.Errorf("IsTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", timeoutErr{}, true},
		{"connection reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"connection refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"no such host", errors.New("dial tcp: lookup api.pipedrive.com: no such host"), true},
		{"regular", errors.New("invalid input: missing field"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}
