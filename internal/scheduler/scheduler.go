package scheduler

import (
	"time"

	"site-monitor/internal/services"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron           *cron.Cron
	monitorService *services.MonitorService
	reportService  *services.ReportService
	logger         *zap.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(monitorService *services.MonitorService, reportService *services.ReportService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:           cron.New(),
		monitorService: monitorService,
		reportService:  reportService,
		logger:         logger,
	}
}

// Start registers the check pass and the periodic report jobs
func (s *Scheduler) Start(checkInterval, dailySchedule, monthlySchedule string) error {
	if _, err := s.cron.AddFunc(checkInterval, func() {
		if err := s.monitorService.CheckDueMonitors(); err != nil {
			s.logger.Error("scheduled check pass failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(dailySchedule, func() {
		if err := s.reportService.SendDailyDigests(time.Now()); err != nil {
			s.logger.Error("daily digest run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(monthlySchedule, func() {
		if err := s.reportService.SendMonthlyReports(time.Now()); err != nil {
			s.logger.Error("monthly report run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("check_interval", checkInterval),
		zap.String("daily_schedule", dailySchedule),
		zap.String("monthly_schedule", monthlySchedule),
	)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}
