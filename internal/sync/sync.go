// Package sync periodically exports presets and the reaction ledger to
// backup destinations.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/presets/internal/store"
)

// Destination is the interface for a sync target (S3, git, etc.).
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Scheduler runs periodic exports to one or more destinations.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from the store to the given
// destinations at the specified interval.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	_ = s.SyncOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.SyncOnce(ctx)
		}
	}
}

// SyncOnce exports once to every destination. A failing destination does
// not stop the others; all failures are joined into the returned error.
func (s *Scheduler) SyncOnce(ctx context.Context) error {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.store, &buf); err != nil {
		s.logger.Error("sync export failed", "err", err)
		return err
	}
	data := buf.Bytes()

	var errs []error
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			s.logger.Error("sync destination write failed", "destination", dest.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", dest.Name(), err))
		}
	}

	s.logger.Info("sync completed", "destinations", len(s.destinations), "failed", len(errs), "bytes", len(data))
	return errors.Join(errs...)
}
