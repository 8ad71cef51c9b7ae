package scheduler

import (
	"context"
	"sync"
	"time"

	"infraops/internal/api"
	"infraops/pkg/logging"
)

const (
	// DefaultSweepInterval is how often unreachable services are re-probed.
	DefaultSweepInterval = 2 * time.Minute

	// DefaultPruneInterval is how often the execution history is pruned.
	DefaultPruneInterval = time.Hour

	// DefaultHistoryRetention is how long terminal executions are kept.
	DefaultHistoryRetention = 48 * time.Hour
)

// ServiceSweeper is what the scheduler needs from the registry: the set of
// services currently marked unreachable and a way to re-probe one.
type ServiceSweeper interface {
	UnreachableIDs() []string
	Discover(ctx context.Context, serviceID string) (api.ServiceRecord, error)
}

// HistoryPruner discards terminal executions older than the retention
// window.
type HistoryPruner interface {
	PruneHistory(retention time.Duration) int
}

// EventPublisher receives sweep summary events.
type EventPublisher interface {
	Publish(event api.Event)
}

// Config holds the configuration for a Scheduler. Zero values get the
// package defaults.
type Config struct {
	Registry  ServiceSweeper
	Engine    HistoryPruner
	Publisher EventPublisher

	SweepInterval    time.Duration
	PruneInterval    time.Duration
	HistoryRetention time.Duration
}

// Scheduler drives the periodic maintenance loops. Start launches the
// loops; Stop (or cancelling the Start context) shuts them down and waits
// for them to exit.
type Scheduler struct {
	registry  ServiceSweeper
	engine    HistoryPruner
	publisher EventPublisher

	sweepInterval    time.Duration
	pruneInterval    time.Duration
	historyRetention time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   sync.WaitGroup
}

// New creates a scheduler. Registry and Engine are required; Publisher is
// optional.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		registry:         cfg.Registry,
		engine:           cfg.Engine,
		publisher:        cfg.Publisher,
		sweepInterval:    cfg.SweepInterval,
		pruneInterval:    cfg.PruneInterval,
		historyRetention: cfg.HistoryRetention,
	}
	if s.sweepInterval <= 0 {
		s.sweepInterval = DefaultSweepInterval
	}
	if s.pruneInterval <= 0 {
		s.pruneInterval = DefaultPruneInterval
	}
	if s.historyRetention <= 0 {
		s.historyRetention = DefaultHistoryRetention
	}
	return s
}

// Start launches the sweep and prune loops. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.done.Add(2)
	go s.sweepLoop(ctx)
	go s.pruneLoop(ctx)
	logging.Info("Scheduler", "Started (sweep every %s, prune every %s, retention %s)",
		s.sweepInterval, s.pruneInterval, s.historyRetention)
}

// Stop shuts the loops down and waits for them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.done.Wait()
	logging.Info("Scheduler", "Stopped")
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.done.Done()
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Scheduler) pruneLoop(ctx context.Context) {
	defer s.done.Done()
	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned := s.engine.PruneHistory(s.historyRetention)
			if pruned > 0 {
				logging.Info("Scheduler", "Pruned %d workflow executions", pruned)
			}
		}
	}
}

// Sweep re-probes every service currently marked unreachable and publishes
// a summary event with the counts of services that recovered and those
// still down. It is also the body of the periodic sweep loop.
func (s *Scheduler) Sweep(ctx context.Context) (recovered, stillDown int) {
	ids := s.registry.UnreachableIDs()
	if len(ids) == 0 {
		return 0, 0
	}
	logging.Debug("Scheduler", "Health sweep probing %d unreachable services", len(ids))

	for _, id := range ids {
		record, err := s.registry.Discover(ctx, id)
		if err != nil {
			stillDown++
			continue
		}
		if record.Status == api.StatusRunning {
			recovered++
		} else {
			stillDown++
		}
	}

	if s.publisher != nil {
		s.publisher.Publish(api.Event{
			Type: api.EventHealthSweep,
			Data: map[string]interface{}{
				"probed":    len(ids),
				"recovered": recovered,
				"stillDown": stillDown,
			},
		})
	}
	logging.Info("Scheduler", "Health sweep done: %d recovered, %d still unreachable", recovered, stillDown)
	return recovered, stillDown
}
