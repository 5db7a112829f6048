package scanning

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zombor/expense-snap/internal/retry"
)

// classifyEngineError marks err as offline or transient so the retry layer
// can decide whether to repeat the call
func classifyEngineError(err error) error {
	switch {
	case err == nil:
		return nil
	case isOffline(err):
		return fmt.Errorf("%w: %w", ErrEngineOffline, err)
	case isTransientStatus(err) || retry.IsTransient(err):
		return fmt.Errorf("%w: %w", retry.ErrTransient, err)
	default:
		return err
	}
}

func isOffline(err error) bool {
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETDOWN) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && !dnsErr.IsTimeout
}

func isTransientStatus(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return transientHTTPStatus(apiErr.Code)
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		}
	}
	return false
}

func transientHTTPStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
