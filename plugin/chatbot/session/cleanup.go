package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an idle session is retained. Unbounded growth
	// of the session map is a resource leak, so expiry is always on.
	DefaultTTL = 30 * time.Minute
	// DefaultCleanupInterval is the default interval between cleanup runs.
	DefaultCleanupInterval = 5 * time.Minute
)

// CleanupConfig holds configuration for the cleanup job.
type CleanupConfig struct {
	TTL      time.Duration // Idle time before a session expires
	Interval time.Duration // Interval between cleanup runs
}

// DefaultCleanupConfig returns the default cleanup configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		TTL:      DefaultTTL,
		Interval: DefaultCleanupInterval,
	}
}

// CleanupJob periodically evicts idle sessions from a Service.
type CleanupJob struct {
	sessions Service
	config   CleanupConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewCleanupJob creates a new cleanup job.
func NewCleanupJob(svc Service, config CleanupConfig) *CleanupJob {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Interval <= 0 {
		config.Interval = DefaultCleanupInterval
	}

	return &CleanupJob{
		sessions: svc,
		config:   config,
	}
}

// Start begins the periodic cleanup in a goroutine. Calling Start on a
// running job is a no-op.
func (j *CleanupJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}

	j.running = true
	j.stopChan = make(chan struct{})

	go j.run(ctx)

	slog.Info("session cleanup job started",
		"ttl", j.config.TTL,
		"interval", j.config.Interval)
}

// Stop stops the cleanup job.
func (j *CleanupJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}

	close(j.stopChan)
	j.running = false

	slog.Info("session cleanup job stopped")
}

// RunOnce executes a single cleanup run immediately.
func (j *CleanupJob) RunOnce(ctx context.Context) (int64, error) {
	return j.sessions.CleanupExpired(ctx, j.config.TTL)
}

func (j *CleanupJob) run(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopChan:
			return
		case <-ticker.C:
			if deleted, err := j.sessions.CleanupExpired(ctx, j.config.TTL); err != nil {
				slog.Error("session cleanup failed", "error", err)
			} else if deleted > 0 {
				slog.Info("session cleanup completed", "deleted", deleted)
			}
		}
	}
}

// IsRunning reports whether the cleanup job is currently running.
func (j *CleanupJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}
