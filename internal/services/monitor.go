package services

import (
	"fmt"
	"sync"
	"time"

	"site-monitor/internal/database"
	"site-monitor/internal/metrics"
	"site-monitor/internal/models"

	"go.uber.org/zap"
)

// MonitorService runs health checks over the monitor set
type MonitorService struct {
	checker       *CheckerService
	notifyService *NotifyService
	logger        *zap.Logger
	minInterval   time.Duration
	maxPerRun     int
	cooldown      time.Duration

	mu sync.Mutex // serializes check passes within this process
}

// NewMonitorService creates a new monitoring service
func NewMonitorService(checker *CheckerService, notifyService *NotifyService, logger *zap.Logger, minInterval time.Duration, maxPerRun int, cooldown time.Duration) *MonitorService {
	return &MonitorService{
		checker:       checker,
		notifyService: notifyService,
		logger:        logger,
		minInterval:   minInterval,
		maxPerRun:     maxPerRun,
		cooldown:      cooldown,
	}
}

// filterDue returns the monitors whose check interval has elapsed, in input
// order, capped at max. The floor is applied to each monitor's interval, and
// monitors never checked before are always due.
func filterDue(monitors []models.Monitor, now time.Time, floor time.Duration, max int) []models.Monitor {
	due := []models.Monitor{}
	for _, m := range monitors {
		if !m.IsActive {
			continue
		}
		if m.LastCheckedAt != nil {
			interval := time.Duration(m.IntervalMinutes) * time.Minute
			if interval < floor {
				interval = floor
			}
			if now.Sub(*m.LastCheckedAt) < interval {
				continue
			}
		}
		due = append(due, m)
		if max > 0 && len(due) >= max {
			break
		}
	}
	return due
}

// CheckDueMonitors runs one check pass: snapshot the due set once, then
// evaluate each monitor sequentially. Per-monitor failures are logged and
// skipped, never aborting the pass.
func (s *MonitorService) CheckDueMonitors() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db := database.GetDB()

	var monitors []models.Monitor
	if err := db.Where("is_active = ?", true).Find(&monitors).Error; err != nil {
		return fmt.Errorf("failed to fetch monitors: %w", err)
	}

	due := filterDue(monitors, time.Now(), s.minInterval, s.maxPerRun)
	s.logger.Info("check pass starting",
		zap.Int("active", len(monitors)),
		zap.Int("due", len(due)),
	)

	for _, monitor := range due {
		if err := s.CheckMonitor(&monitor); err != nil {
			s.logger.Error("check failed",
				zap.Uint("monitor_id", monitor.ID),
				zap.String("url", monitor.URL),
				zap.Error(err),
			)
			continue
		}
	}

	return nil
}

// CheckMonitor probes a single monitor, persists the outcome and evaluates
// alert eligibility
func (s *MonitorService) CheckMonitor(monitor *models.Monitor) error {
	result := s.checker.Check(monitor.URL)

	db := database.GetDB()

	now := result.CheckedAt
	monitor.LastStatus = result.Status
	monitor.LastCheckedAt = &now

	if err := db.Save(monitor).Error; err != nil {
		return fmt.Errorf("failed to save monitor: %w", err)
	}

	entry := models.MonitorLog{
		MonitorID:  monitor.ID,
		OrgID:      monitor.OrgID,
		Status:     result.Status,
		HTTPStatus: result.HTTPStatus,
		ResponseMs: result.ResponseMs,
		Error:      result.Error,
		CheckedAt:  now,
	}
	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to create log entry: %w", err)
	}

	s.logger.Info("checked",
		zap.Uint("monitor_id", monitor.ID),
		zap.String("url", monitor.URL),
		zap.String("status", result.Status),
		zap.Int("http_status", result.HTTPStatus),
		zap.Int64("response_ms", result.ResponseMs),
	)

	s.checkAndAlert(monitor, result)

	return nil
}

// checkAndAlert sends a status-change notification when the alert state
// machine says so. The alert marker is only mutated when an alert is sent.
func (s *MonitorService) checkAndAlert(monitor *models.Monitor, result CheckResult) {
	if s.notifyService == nil {
		return
	}

	if !ShouldAlert(monitor.LastAlertStatus, monitor.LastAlertAt, result.Status, result.CheckedAt, s.cooldown) {
		return
	}

	db := database.GetDB()

	var org models.Organization
	if err := db.First(&org, monitor.OrgID).Error; err != nil {
		s.logger.Error("failed to load organization for alert",
			zap.Uint("monitor_id", monitor.ID),
			zap.Uint("org_id", monitor.OrgID),
			zap.Error(err),
		)
		return
	}

	var members []models.User
	if err := db.Where("org_id = ?", org.ID).Find(&members).Error; err != nil {
		s.logger.Error("failed to load members for alert",
			zap.Uint("org_id", org.ID),
			zap.Error(err),
		)
		return
	}

	recipients := ResolveRecipients(&org, members)
	if len(recipients) == 0 {
		s.logger.Info("no resolvable recipients, skipping alert",
			zap.Uint("org_id", org.ID),
		)
		return
	}

	msg := ComposeAlert(monitor, result)
	msg.To = recipients

	if err := s.notifyService.Send(msg); err != nil {
		s.logger.Error("failed to send alert",
			zap.Uint("monitor_id", monitor.ID),
			zap.Error(err),
		)
		return
	}

	metrics.AlertsTotal.WithLabelValues(result.Status).Inc()

	// Mark the alert only after a successful send so a failed delivery is
	// retried on the next status evaluation
	now := result.CheckedAt
	monitor.LastAlertStatus = result.Status
	monitor.LastAlertAt = &now
	if err := db.Save(monitor).Error; err != nil {
		s.logger.Error("failed to update alert marker",
			zap.Uint("monitor_id", monitor.ID),
			zap.Error(err),
		)
	}
}
