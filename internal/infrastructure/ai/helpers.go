package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/doeshing/strike-go/internal/domain"
)

func resolveAuth(primary string, fallback string) string {
	if primary != "" {
		if value := os.Getenv(primary); value != "" {
			return value
		}
	}
	if fallback == "" {
		return ""
	}
	return os.Getenv(fallback)
}

func valueOrDefault(value string, def string) string {
	if value == "" {
		return def
	}
	return value
}

func valueOrDefaultInt(value int, def int) int {
	if value == 0 {
		return def
	}
	return value
}

// wrapTransportError tags connection failures with ErrServerUnreachable so
// callers can tell them apart from protocol errors.
func wrapTransportError(endpoint string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request to %s timed out: %w", endpoint, err)
	}
	if isUnreachable(err) {
		return fmt.Errorf("%w at %s: %v", domain.ErrServerUnreachable, endpoint, err)
	}
	return err
}

func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}

// pingError reports any failure of a reachability probe as ErrServerUnreachable.
func pingError(endpoint string, err error) error {
	if errors.Is(err, domain.ErrServerUnreachable) {
		return err
	}
	return fmt.Errorf("%w at %s: %v", domain.ErrServerUnreachable, endpoint, err)
}
