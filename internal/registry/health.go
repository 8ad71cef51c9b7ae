package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"infraops/internal/api"
	"infraops/pkg/logging"

	"github.com/cenkalti/backoff/v4"
)

// CheckHealth issues the health request for a service with the configured
// per-attempt timeout. Transient failures (timeout, connection refused, DNS
// failure) are retried up to two additional times with exponential backoff;
// non-transient failures surface immediately.
//
// Retry chains for the same service never run concurrently: concurrent
// callers share one in-flight check through the singleflight group.
func (r *Registry) CheckHealth(ctx context.Context, serviceID string) (map[string]interface{}, error) {
	descriptor, err := r.descriptor(serviceID)
	if err != nil {
		return nil, err
	}

	result, err, _ := r.healthGroup.Do(serviceID, func() (interface{}, error) {
		return r.checkHealthWithRetry(ctx, descriptor)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]interface{}), nil
}

func (r *Registry) checkHealthWithRetry(ctx context.Context, descriptor api.ServiceDescriptor) (map[string]interface{}, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.healthBackoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = r.healthBackoff * 4

	attempt := 0
	operation := func() (map[string]interface{}, error) {
		attempt++
		payload, err := r.healthRequest(ctx, descriptor)
		if err == nil {
			return payload, nil
		}
		if !isTransient(err) {
			return nil, backoff.Permanent(err)
		}
		logging.Debug("Registry", "Transient health failure for %s (attempt %d): %v", descriptor.ID, attempt, err)
		return nil, err
	}

	return backoff.RetryWithData(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, healthRetries), ctx),
	)
}

// healthRequest performs a single health probe. Any non-2xx status or
// transport error is a health failure.
func (r *Registry) healthRequest(ctx context.Context, descriptor api.ServiceDescriptor) (map[string]interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, descriptor.BaseURL+descriptor.HealthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &healthStatusError{status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("malformed health response: %w", err)
	}
	return payload, nil
}

// healthStatusError marks a reachable service that answered with an HTTP
// error status. It is non-transient: the backend responded, retrying
// immediately would not change the answer.
type healthStatusError struct {
	status int
}

func (e *healthStatusError) Error() string {
	return fmt.Sprintf("health endpoint returned status %d", e.status)
}

// isTransient classifies failures worth retrying: timeouts, refused
// connections, and DNS resolution errors. Malformed responses and HTTP
// error statuses are permanent.
func isTransient(err error) bool {
	var statusErr *healthStatusError
	if errors.As(err, &statusErr) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
