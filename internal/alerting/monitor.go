package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/commutewatch-data/internal/common/config"
	"github.com/commutewatch-data/internal/common/logger"
	"github.com/commutewatch-data/internal/routeindex"
	"github.com/commutewatch-data/pkg/transit/models"
)

// Dispatcher delivers one route's matched disruption set. Delivery and its
// bookkeeping belong to the dispatcher; the monitor only decides whether to
// invoke it.
type Dispatcher interface {
	Dispatch(ctx context.Context, route models.UserRoute, result models.MatchResult) error
}

// CycleStats summarises one monitoring cycle.
type CycleStats struct {
	SchedulesChecked int
	RoutesEvaluated  int
	AlertsSent       int
	AlertsSuppressed int
	Errors           int
}

// Monitor runs the periodic matching batch: for every route inside an active
// schedule window, intersect its station index with the current disruption
// feed, dedup, and dispatch. Routes are processed independently; one route's
// failure is counted and the batch moves on.
type Monitor struct {
	config     config.MonitorConfig
	logger     logger.Logger
	schedules  *Store
	routes     *routeindex.Store
	matcher    *Matcher
	deduper    *Deduper
	fetcher    Fetcher
	dispatcher Dispatcher

	mu        sync.RWMutex
	isRunning bool
	cancelFn  context.CancelFunc
}

func NewMonitor(
	cfg config.MonitorConfig,
	schedules *Store,
	routes *routeindex.Store,
	fetcher Fetcher,
	dispatcher Dispatcher,
	log logger.Logger,
) *Monitor {
	return &Monitor{
		config:     cfg,
		logger:     log,
		schedules:  schedules,
		routes:     routes,
		matcher:    NewMatcher(DefaultNonAlertable()),
		deduper:    NewDeduper(cfg.DedupCacheSize, log),
		fetcher:    fetcher,
		dispatcher: dispatcher,
	}
}

func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("monitor is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFn = cancel
	m.isRunning = true
	m.mu.Unlock()

	m.logger.Info("Starting disruption monitor", "cycle_interval", m.config.CycleInterval)

	m.runCycle(ctx, time.Now())

	ticker := time.NewTicker(m.config.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Disruption monitor stopping")
			return nil
		case <-ticker.C:
			m.runCycle(ctx, time.Now())
		}
	}
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return
	}

	if m.cancelFn != nil {
		m.cancelFn()
	}
	m.isRunning = false
	m.logger.Info("Disruption monitor stopped")
}

func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}

// runCycle evaluates every schedule currently inside its window against one
// fresh fetch of the disruption feed.
func (m *Monitor) runCycle(ctx context.Context, now time.Time) CycleStats {
	var stats CycleStats
	start := time.Now()

	schedules, err := m.schedules.ListSchedules(ctx)
	if err != nil {
		m.logger.Error("Failed to list schedules, skipping cycle", "error", err)
		stats.Errors++
		return stats
	}

	disruptions, err := m.fetcher.Fetch(ctx)
	if err != nil {
		m.logger.Error("Failed to fetch disruption feed, skipping cycle", "error", err)
		stats.Errors++
		return stats
	}
	alertable := m.matcher.FilterAlertable(disruptions)

	for _, schedule := range schedules {
		stats.SchedulesChecked++

		windowEnd, active, err := schedule.ActiveWindow(now)
		if err != nil {
			m.logger.Error("Invalid schedule window",
				"schedule_id", schedule.ScheduleID,
				"route_id", schedule.RouteID,
				"error", err)
			stats.Errors++
			continue
		}
		if !active {
			continue
		}

		m.evaluateRoute(ctx, schedule, windowEnd, now, alertable, &stats)
	}

	m.logger.Info("Monitoring cycle completed",
		"schedules_checked", stats.SchedulesChecked,
		"routes_evaluated", stats.RoutesEvaluated,
		"alerts_sent", stats.AlertsSent,
		"alerts_suppressed", stats.AlertsSuppressed,
		"errors", stats.Errors,
		"duration", time.Since(start))

	return stats
}

func (m *Monitor) evaluateRoute(ctx context.Context, schedule models.Schedule, windowEnd, now time.Time, alertable []models.Disruption, stats *CycleStats) {
	stats.RoutesEvaluated++

	route, err := m.routes.LoadRoute(ctx, schedule.RouteID)
	if err != nil {
		m.logger.Error("Failed to load route", "route_id", schedule.RouteID, "error", err)
		stats.Errors++
		return
	}

	pairs, err := m.routes.ActivePairs(ctx, schedule.RouteID)
	if err != nil {
		m.logger.Error("Failed to load route index", "route_id", schedule.RouteID, "error", err)
		stats.Errors++
		return
	}

	result := m.matcher.MatchRoute(route, pairs, alertable)
	if !result.HasDisruptions() {
		return
	}

	hash := ContentHash(result.Disruptions)
	key := DedupKey{RouteID: route.RouteID, UserID: route.UserID, ScheduleID: schedule.ScheduleID}

	if !m.deduper.ShouldNotify(key, hash) {
		stats.AlertsSuppressed++
		m.logger.Debug("Suppressed duplicate alert", "route_id", route.RouteID)
		return
	}

	if err := m.dispatcher.Dispatch(ctx, route, result); err != nil {
		// Dedup state is not written on dispatch failure, so the next
		// cycle retries.
		m.logger.Error("Failed to dispatch alert", "route_id", route.RouteID, "error", err)
		stats.Errors++
		return
	}

	m.deduper.MarkNotified(key, hash, windowEnd, now)
	stats.AlertsSent++

	m.logger.Info("Dispatched disruption alert",
		"route_id", route.RouteID,
		"disruptions", len(result.Disruptions),
		"affected_segments", result.AffectedSegments,
		"affected_stations", result.AffectedStations)
}
