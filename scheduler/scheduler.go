// Package scheduler reloads the medicine catalog at fixed times of day and
// watches for a catalog that has stopped being refreshed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/harithra-blueberry/aiprescription/interfaces"
	"github.com/harithra-blueberry/aiprescription/logging"
	"github.com/harithra-blueberry/aiprescription/metrics"
)

const (
	// reloadTimeout bounds one catalog load, download included
	reloadTimeout = 5 * time.Minute

	healthCheckInterval = time.Hour
)

var (
	// ErrReloadInProgress is returned by Reload while another reload runs.
	ErrReloadInProgress = errors.New("catalog reload already in progress")
	// ErrEmptyCatalog is returned when a load yields no medicines; the
	// store keeps whatever it held before.
	ErrEmptyCatalog = errors.New("loaded catalog has no medicines")
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler handles catalog reloads and staleness monitoring
type Scheduler struct {
	store     interfaces.CatalogStore
	loader    interfaces.CatalogLoader
	times     []string
	scheduler *gocron.Scheduler

	stopOnce sync.Once
	stop     chan struct{}
}

// NewScheduler creates a scheduler reloading at the given HH:MM times.
// An empty list uses DefaultReloadTimes.
func NewScheduler(store interfaces.CatalogStore, loader interfaces.CatalogLoader, times []string) *Scheduler {
	if len(times) == 0 {
		times = DefaultReloadTimes
	}
	return &Scheduler{
		store:     store,
		loader:    loader,
		times:     times,
		scheduler: gocron.NewScheduler(time.Local),
		stop:      make(chan struct{}),
	}
}

// Times returns the configured reload times.
func (s *Scheduler) Times() []string {
	return s.times
}

// Start loads the catalog once, then schedules reloads and health monitoring.
// A failing initial load is fatal since there is nothing to serve.
func (s *Scheduler) Start() error {
	if _, err := parseTimes(s.times); err != nil {
		return fmt.Errorf("invalid reload schedule: %w", err)
	}

	if err := s.Reload(context.Background()); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(strings.Join(s.times, ";")).Do(func() {
		if err := s.Reload(context.Background()); err != nil && !errors.Is(err, ErrReloadInProgress) {
			logging.Error("Scheduled catalog reload failed, keeping previous catalog", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule catalog reloads", "error", err)
		return fmt.Errorf("failed to schedule reloads: %w", err)
	}

	s.scheduler.StartAsync()
	s.startHealthMonitoring()

	logging.Info("Catalog reload scheduled",
		"times", s.times,
		"next_reload", NextReload(time.Now(), s.times).Format(time.RFC3339),
	)
	return nil
}

// Stop stops scheduled reloads and health monitoring
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.scheduler.Stop()
	})
}

// Reload loads the catalog and swaps it into the store. On failure the
// previous catalog stays in place.
func (s *Scheduler) Reload(ctx context.Context) error {
	if !s.store.BeginUpdate() {
		logging.Info("Catalog reload already in progress, skipping")
		return ErrReloadInProgress
	}
	defer s.store.EndUpdate()

	ctx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()

	start := time.Now()
	logging.Info("Starting catalog reload")

	cat, err := s.loader.LoadCatalog(ctx)
	if err != nil {
		metrics.RecordCatalogReload(0, err)
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if cat == nil || cat.Len() == 0 {
		metrics.RecordCatalogReload(0, ErrEmptyCatalog)
		return ErrEmptyCatalog
	}

	s.store.UpdateCatalog(cat)
	metrics.RecordCatalogReload(cat.Len(), nil)

	logging.Info("Catalog reload completed",
		"duration", time.Since(start).String(),
		"source", cat.Source(),
		"medicine_count", cat.Len(),
	)
	return nil
}

// startHealthMonitoring warns hourly when the catalog has missed reloads
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(healthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.checkStaleness(time.Now())
			}
		}
	}()
}

// checkStaleness reports whether the catalog has missed a reload, logging a warning if so
func (s *Scheduler) checkStaleness(now time.Time) bool {
	age := now.Sub(s.store.GetLastUpdated())
	limit := ReloadPeriod(s.times) + time.Hour
	if age <= limit {
		return false
	}

	logging.Warn("Catalog has not been reloaded on schedule",
		"age", age.Round(time.Minute).String(),
		"expected_within", limit.String(),
	)
	return true
}
