package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// IsTimeout reports whether err (or any error in its chain) is a read
// timeout: a net.Error with Timeout() set, a deadline exceeded from the
// HTTP client's timeout, or the same failures flattened into a message.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"i/o timeout", "client.timeout", "deadline exceeded"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransient returns true for timeouts and for network failures that might
// succeed on a later run (connection resets, refused connections, DNS).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsTimeout(err) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"server closed idle connection",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
