// Package reconcile detects presets whose denormalized reaction counts have
// drifted from the reaction ledger and optionally repairs them.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/presets/internal/events"
	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/store"
)

// Job compares stored counts with the ledger. With repair enabled each
// drifted preset is rewritten under the same row lock a toggle takes.
type Job struct {
	store     store.Store
	publisher events.Publisher
	repair    bool
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a reconcile job. publisher may be nil.
func New(s store.Store, publisher events.Publisher, repair bool, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Job{store: s, publisher: publisher, repair: repair, logger: logger}
}

// RunOnce scans every preset and returns the drift found. Repaired entries
// carry the counts written back. A failed repair is logged and left
// unrepaired; the scan itself failing is returned.
func (j *Job) RunOnce(ctx context.Context) ([]model.CountDrift, error) {
	drift, err := j.store.FindCountDrift(ctx)
	if err != nil {
		return nil, fmt.Errorf("find count drift: %w", err)
	}

	for i := range drift {
		d := &drift[i]
		j.logger.Warn("reconcile: reaction count drift",
			"preset_id", d.PresetID, "stored", d.Stored, "ledger", d.Ledger)
		if !j.repair {
			continue
		}

		counts, err := j.store.RepairReactionCounts(ctx, d.PresetID)
		if err != nil {
			j.logger.Error("reconcile: repair failed", "preset_id", d.PresetID, "err", err)
			continue
		}
		d.Ledger = counts
		d.Repaired = true

		if err := j.publisher.Publish(ctx, events.TopicCountsRepaired, events.CountsRepaired{
			PresetID: d.PresetID,
			Stored:   d.Stored,
			Ledger:   counts,
		}); err != nil {
			j.logger.Warn("reconcile: publish failed", "preset_id", d.PresetID, "err", err)
		}
	}

	j.logger.Info("reconcile completed", "drifted", len(drift), "repair", j.repair)
	return drift, nil
}

// Start runs the job every interval until Stop.
func (j *Job) Start(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
					j.logger.Error("reconcile failed", "err", err)
				}
			}
		}
	}()
}

// Stop cancels the job and waits for a running pass to finish.
func (j *Job) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}
