package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"infraops/internal/api"
	"infraops/pkg/logging"

	"golang.org/x/sync/singleflight"
)

// Default operational parameters. All of them can be overridden through
// Config, which the tests use to shrink timings.
const (
	DefaultHealthTimeout     = 10 * time.Second
	DefaultInvokeTimeout     = 30 * time.Second
	DefaultLongInvokeTimeout = 120 * time.Second
	DefaultStaleAfter        = 30 * time.Second
	DefaultHealthBackoff     = 2 * time.Second

	// healthRetries is the number of additional attempts after the first
	// failed health request.
	healthRetries = 2
)

// EventPublisher receives structured events from the registry. Publishing
// must never block registry operations; the events package guarantees that.
type EventPublisher interface {
	Publish(event api.Event)
}

// Config holds the configuration for a Registry. Zero values fall back to
// the package defaults.
type Config struct {
	// HealthTimeout bounds each individual health request.
	HealthTimeout time.Duration

	// InvokeTimeout bounds tool invocations; LongInvokeTimeout applies to
	// tools listed in the descriptor's LongRunningTools.
	InvokeTimeout     time.Duration
	LongInvokeTimeout time.Duration

	// StaleAfter is the age past which ListAll recomputes a record's health.
	StaleAfter time.Duration

	// HealthBackoff is the initial backoff interval between health retries.
	HealthBackoff time.Duration

	// Publisher receives status transition events. Optional.
	Publisher EventPublisher

	// HTTPClient overrides the transport. Optional.
	HTTPClient *http.Client
}

// Registry tracks backend services, runs health checks with retry/backoff,
// and exposes a tool-invocation proxy. All methods are safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*api.ServiceRecord

	client      *http.Client
	healthGroup singleflight.Group
	publisher   EventPublisher

	healthTimeout     time.Duration
	invokeTimeout     time.Duration
	longInvokeTimeout time.Duration
	staleAfter        time.Duration
	healthBackoff     time.Duration
}

// New creates a new service registry.
func New(cfg Config) *Registry {
	r := &Registry{
		records:           make(map[string]*api.ServiceRecord),
		client:            cfg.HTTPClient,
		publisher:         cfg.Publisher,
		healthTimeout:     cfg.HealthTimeout,
		invokeTimeout:     cfg.InvokeTimeout,
		longInvokeTimeout: cfg.LongInvokeTimeout,
		staleAfter:        cfg.StaleAfter,
		healthBackoff:     cfg.HealthBackoff,
	}
	if r.client == nil {
		// Timeouts are applied per request via context, not on the client.
		r.client = &http.Client{}
	}
	if r.healthTimeout <= 0 {
		r.healthTimeout = DefaultHealthTimeout
	}
	if r.invokeTimeout <= 0 {
		r.invokeTimeout = DefaultInvokeTimeout
	}
	if r.longInvokeTimeout <= 0 {
		r.longInvokeTimeout = DefaultLongInvokeTimeout
	}
	if r.staleAfter <= 0 {
		r.staleAfter = DefaultStaleAfter
	}
	if r.healthBackoff <= 0 {
		r.healthBackoff = DefaultHealthBackoff
	}
	return r
}

// Register adds or replaces a ServiceDescriptor. It performs no I/O; the
// record starts in the discovering status until the first health check.
func (r *Registry) Register(descriptor api.ServiceDescriptor) error {
	if descriptor.ID == "" {
		return fmt.Errorf("cannot register service with empty id")
	}
	if descriptor.BaseURL == "" {
		return fmt.Errorf("cannot register service %s with empty base URL", descriptor.ID)
	}
	if descriptor.Kind == "" {
		descriptor.Kind = api.KindHTTP
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[descriptor.ID] = &api.ServiceRecord{
		Descriptor: descriptor,
		Status:     api.StatusDiscovering,
		StartedAt:  time.Now(),
	}
	logging.Debug("Registry", "Registered service %s (%s)", descriptor.ID, descriptor.BaseURL)
	return nil
}

// Discover performs one health check against the service's health endpoint
// and updates its record. A reachable-but-unhealthy service is recorded as
// unreachable, never surfaced as an error; Discover fails only for an
// unknown service id.
func (r *Registry) Discover(ctx context.Context, serviceID string) (api.ServiceRecord, error) {
	r.mu.RLock()
	record, exists := r.records[serviceID]
	if !exists {
		r.mu.RUnlock()
		return api.ServiceRecord{}, api.NewUnknownServiceError(serviceID)
	}
	descriptor := record.Descriptor
	oldStatus := record.Status
	r.mu.RUnlock()

	payload, err := r.CheckHealth(ctx, serviceID)
	now := time.Now()

	r.mu.Lock()
	record, exists = r.records[serviceID]
	if !exists {
		// Reset raced with the check.
		r.mu.Unlock()
		return api.ServiceRecord{}, api.NewUnknownServiceError(serviceID)
	}
	record.LastHealthCheckAt = &now
	if err != nil {
		record.Status = api.StatusUnreachable
		record.LastError = err.Error()
		logging.Debug("Registry", "Health check failed for %s: %v", serviceID, err)
	} else {
		record.Status = api.StatusRunning
		record.LastHealthPayload = payload
		record.LastError = ""
	}
	snapshot := *record
	r.mu.Unlock()

	if snapshot.Status != oldStatus {
		r.publishStatusEvent(descriptor, oldStatus, snapshot.Status, snapshot.LastError)
	}
	return snapshot, nil
}

// ListTools queries the service's tool catalog endpoint. Services whose kind
// marks them tool-discovery-incompatible return an empty list; their tools
// are invoked through a different protocol that is not proxied here.
func (r *Registry) ListTools(ctx context.Context, serviceID string) ([]api.ToolDescriptor, error) {
	descriptor, err := r.descriptor(serviceID)
	if err != nil {
		return nil, err
	}
	if descriptor.Kind == api.KindMCP {
		return []api.ToolDescriptor{}, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, descriptor.BaseURL+"/tools", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tools request for %s: %w", serviceID, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools for %s: %w", serviceID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tool catalog request for %s returned status %d", serviceID, resp.StatusCode)
	}

	var catalog struct {
		Tools []api.ToolDescriptor `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("failed to decode tool catalog for %s: %w", serviceID, err)
	}
	return catalog.Tools, nil
}

// Invoke executes a named tool on a named service through its generic
// execute endpoint. A service whose last known status is not running gets
// exactly one re-discovery; if it still is not running, Invoke fails with a
// ServiceUnreachableError carrying the last recorded error.
func (r *Registry) Invoke(ctx context.Context, serviceID, tool string, args map[string]interface{}) (*api.InvokeResult, error) {
	r.mu.RLock()
	record, exists := r.records[serviceID]
	var status api.ServiceStatus
	var descriptor api.ServiceDescriptor
	var lastError string
	if exists {
		status = record.Status
		descriptor = record.Descriptor
		lastError = record.LastError
	}
	r.mu.RUnlock()

	if !exists {
		return nil, api.NewUnknownServiceError(serviceID)
	}
	if status == api.StatusUnavailable {
		return nil, api.NewServiceUnreachableError(serviceID, fmt.Errorf("service is stopped"))
	}

	// One chance for a non-running service to recover before failing.
	if status != api.StatusRunning {
		snapshot, err := r.Discover(ctx, serviceID)
		if err != nil {
			return nil, err
		}
		if snapshot.Status != api.StatusRunning {
			return nil, api.NewServiceUnreachableError(serviceID, fmt.Errorf("last error: %s", firstNonEmpty(snapshot.LastError, lastError, "health check failed")))
		}
	}

	timeout := r.invokeTimeout
	if descriptor.IsLongRunning(tool) {
		timeout = r.longInvokeTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(map[string]interface{}{
		"tool":      tool,
		"arguments": args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode invocation of %s on %s: %w", tool, serviceID, err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, descriptor.BaseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build execute request for %s: %w", serviceID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s on %s: %w", tool, serviceID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, api.NewUnknownToolError(serviceID, tool)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("invoking %s on %s returned status %d: %s", tool, serviceID, resp.StatusCode, string(data))
	}

	// The execute endpoint is a black box: its response passes through
	// verbatim.
	var result interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode result of %s on %s: %w", tool, serviceID, err)
	}

	logging.Debug("Registry", "Invoked %s on %s", tool, serviceID)
	return &api.InvokeResult{
		ServiceID: serviceID,
		Tool:      tool,
		Arguments: args,
		Result:    result,
		Timestamp: time.Now(),
	}, nil
}

// ListAll returns a snapshot of all ServiceRecords. Records whose last check
// is older than the staleness threshold or currently unreachable are
// re-checked first. The checks run concurrently and individual failures
// never prevent other services from reporting.
func (r *Registry) ListAll(ctx context.Context) []api.ServiceRecord {
	r.mu.RLock()
	var toCheck []string
	ids := make([]string, 0, len(r.records))
	now := time.Now()
	for id, record := range r.records {
		ids = append(ids, id)
		if record.Status == api.StatusUnavailable {
			continue
		}
		stale := record.LastHealthCheckAt == nil || now.Sub(*record.LastHealthCheckAt) > r.staleAfter
		if stale || record.Status == api.StatusUnreachable {
			toCheck = append(toCheck, id)
		}
	}
	r.mu.RUnlock()

	// Settle-all fan-out: wait for every check, collect nothing. A failed
	// check is already recorded on the service's own record.
	var wg sync.WaitGroup
	for _, id := range toCheck {
		wg.Add(1)
		go func(serviceID string) {
			defer wg.Done()
			if _, err := r.Discover(ctx, serviceID); err != nil {
				logging.Debug("Registry", "Recheck of %s during listing failed: %v", serviceID, err)
			}
		}(id)
	}
	wg.Wait()

	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshots := make([]api.ServiceRecord, 0, len(ids))
	for _, id := range ids {
		if record, exists := r.records[id]; exists {
			snapshots = append(snapshots, *record)
		}
	}
	return snapshots
}

// Snapshot returns the current records without probing anything. Callers
// that want fresh health use ListAll.
func (r *Registry) Snapshot() []api.ServiceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshots := make([]api.ServiceRecord, 0, len(r.records))
	for _, record := range r.records {
		snapshots = append(snapshots, *record)
	}
	return snapshots
}

// Get returns a snapshot of one service record.
func (r *Registry) Get(serviceID string) (api.ServiceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, exists := r.records[serviceID]
	if !exists {
		return api.ServiceRecord{}, api.NewUnknownServiceError(serviceID)
	}
	return *record, nil
}

// UnreachableIDs returns the ids of all services currently unreachable.
// The periodic health sweep uses this to drive recovery.
func (r *Registry) UnreachableIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, record := range r.records {
		if record.Status == api.StatusUnreachable {
			ids = append(ids, id)
		}
	}
	return ids
}

// Start re-discovers a stopped service, returning it to health tracking.
func (r *Registry) Start(ctx context.Context, serviceID string) (api.ServiceRecord, error) {
	return r.Discover(ctx, serviceID)
}

// Stop marks a service unavailable. A stopped service is excluded from
// health sweeps and rejects invocations until started again.
func (r *Registry) Stop(serviceID string) error {
	r.mu.Lock()
	record, exists := r.records[serviceID]
	if !exists {
		r.mu.Unlock()
		return api.NewUnknownServiceError(serviceID)
	}
	oldStatus := record.Status
	record.Status = api.StatusUnavailable
	descriptor := record.Descriptor
	r.mu.Unlock()

	if oldStatus != api.StatusUnavailable {
		r.publishStatusEvent(descriptor, oldStatus, api.StatusUnavailable, "")
	}
	logging.Info("Registry", "Stopped service %s", serviceID)
	return nil
}

// Reset clears every record. Descriptors must be registered again before
// use; this exists for process-wide reinitialization and tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]*api.ServiceRecord)
}

func (r *Registry) descriptor(serviceID string) (api.ServiceDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, exists := r.records[serviceID]
	if !exists {
		return api.ServiceDescriptor{}, api.NewUnknownServiceError(serviceID)
	}
	return record.Descriptor, nil
}

func (r *Registry) publishStatusEvent(descriptor api.ServiceDescriptor, oldStatus, newStatus api.ServiceStatus, lastError string) {
	if r.publisher == nil {
		return
	}
	data := map[string]interface{}{
		"serviceId":   descriptor.ID,
		"displayName": descriptor.DisplayName,
		"oldStatus":   string(oldStatus),
		"newStatus":   string(newStatus),
	}
	if lastError != "" {
		data["error"] = lastError
	}
	r.publisher.Publish(api.Event{
		Type: api.EventServiceStatus,
		Data: data,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
