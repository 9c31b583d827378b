package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"commerce-service/internal/config"
	"commerce-service/internal/metrics"
	"commerce-service/internal/repository"
)

const defaultInventorySchedule = "0 */5 * * * *"

// InventoryScheduler periodically publishes stock levels and database health as gauges
type InventoryScheduler struct {
	store   repository.Store
	config  config.SchedulerConfig
	logger  *logrus.Logger
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// NewInventoryScheduler creates a new inventory scheduler
func NewInventoryScheduler(store repository.Store, cfg config.SchedulerConfig, logger *logrus.Logger) *InventoryScheduler {
	return &InventoryScheduler{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Start registers the refresh job and starts the cron runner
func (s *InventoryScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Inventory scheduler is disabled")
		return nil
	}

	schedule := s.config.InventorySchedule
	if schedule == "" {
		schedule = defaultInventorySchedule
	}
	// 5-field expressions get a seconds prefix
	if len(strings.Fields(schedule)) == 5 {
		schedule = "0 " + schedule
	}

	s.cron = cron.New(cron.WithSeconds())
	if _, err := s.cron.AddFunc(schedule, func() { s.Refresh(context.Background()) }); err != nil {
		s.logger.WithError(err).Error("Failed to schedule inventory job")
		return err
	}

	s.cron.Start()
	s.running = true

	s.logger.WithFields(logrus.Fields{
		"schedule":            schedule,
		"low_stock_threshold": s.config.LowStockThreshold,
	}).Info("Inventory scheduler started")
	return nil
}

// Stop waits for a running job and stops the scheduler
func (s *InventoryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.cron == nil {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info("Inventory scheduler stopped")
}

// Refresh reads the inventory summary and updates the gauges
func (s *InventoryScheduler) Refresh(ctx context.Context) {
	start := time.Now()

	if err := s.store.Ping(ctx); err != nil {
		metrics.SetDBStatus(false)
		s.logger.WithError(err).Warn("Database ping failed during inventory refresh")
		return
	}
	metrics.SetDBStatus(true)

	summary, err := s.store.Products().InventorySummary(ctx, s.config.LowStockThreshold)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load inventory summary")
		return
	}
	metrics.SetInventory(summary.Products, summary.OutOfStock, summary.LowStock, summary.TotalStock)

	s.mu.Lock()
	s.lastRun = start
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"products":     summary.Products,
		"out_of_stock": summary.OutOfStock,
		"low_stock":    summary.LowStock,
		"units":        summary.TotalStock,
		"duration":     time.Since(start).String(),
	}).Debug("Inventory gauges refreshed")
}

// IsRunning returns whether the scheduler is running
func (s *InventoryScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// GetStats returns scheduler statistics
func (s *InventoryScheduler) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := map[string]interface{}{
		"running":             s.running,
		"enabled":             s.config.Enabled,
		"schedule":            s.config.InventorySchedule,
		"low_stock_threshold": s.config.LowStockThreshold,
	}
	if !s.lastRun.IsZero() {
		stats["last_run"] = s.lastRun.Format(time.RFC3339)
	}
	if s.cron != nil && s.running {
		if entries := s.cron.Entries(); len(entries) > 0 {
			stats["next_run"] = entries[0].Next.Format(time.RFC3339)
		}
	}
	return stats
}
