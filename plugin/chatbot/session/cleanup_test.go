package session

import (
	"context"
	"testing"
	"time"
)

func TestCleanupJobLifecycle(t *testing.T) {
	ctx := context.Background()
	job := NewCleanupJob(NewMemoryStore(), CleanupConfig{TTL: time.Minute, Interval: time.Minute})

	if job.IsRunning() {
		t.Error("job must not run before Start")
	}

	job.Start(ctx)
	if !job.IsRunning() {
		t.Error("job must report running after Start")
	}
	job.Start(ctx) // second Start is a no-op

	job.Stop()
	if job.IsRunning() {
		t.Error("job must report stopped after Stop")
	}
	job.Stop() // second Stop is a no-op
}

func TestCleanupJobRunOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore().(*memoryStore)
	job := NewCleanupJob(store, CleanupConfig{TTL: 30 * time.Minute, Interval: time.Minute})

	if err := store.AppendExchange(ctx, "stale", "q", "a"); err != nil {
		t.Fatal(err)
	}
	store.mu.Lock()
	store.sessions["stale"].state.UpdatedAt = time.Now().Add(-time.Hour).Unix()
	store.mu.Unlock()

	deleted, err := job.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted session, got %d", deleted)
	}
}

func TestDefaultCleanupConfig(t *testing.T) {
	cfg := DefaultCleanupConfig()
	if cfg.TTL != DefaultTTL || cfg.Interval != DefaultCleanupInterval {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	// Non-positive values fall back to the defaults.
	job := NewCleanupJob(NewMemoryStore(), CleanupConfig{})
	if job.config.TTL != DefaultTTL || job.config.Interval != DefaultCleanupInterval {
		t.Errorf("zero config not defaulted: %+v", job.config)
	}
}
