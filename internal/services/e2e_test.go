package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"site-monitor/internal/config"
	"site-monitor/internal/database"
	"site-monitor/internal/models"

	"go.uber.org/zap"
)

// First-ever check of an active monitor: due-selection picks it up, the
// probe reports up, status and log are persisted, and the unknown->up
// transition dispatches exactly one notification.
func TestFirstCheckEndToEnd(t *testing.T) {
	if err := database.InitDB(&config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")}); err != nil {
		t.Fatalf("failed to init database: %v", err)
	}
	db := database.GetDB()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	var webhookHits int64
	var lastPayload map[string]interface{}
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&webhookHits, 1)
		json.NewDecoder(r.Body).Decode(&lastPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer sink.Close()

	org := models.Organization{Name: "Acme", NotifyPolicy: models.NotifyAll}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("failed to create org: %v", err)
	}
	owner := models.User{OrgID: org.ID, Email: "owner@example.com", Password: "x", Role: models.RoleOwner, IsActive: true}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}
	monitor := models.Monitor{
		OrgID:           org.ID,
		Name:            "Shop",
		URL:             target.URL,
		IsActive:        true,
		IntervalMinutes: 60,
		LastStatus:      models.StatusUnknown,
		LastAlertStatus: models.StatusUnknown,
	}
	if err := db.Create(&monitor).Error; err != nil {
		t.Fatalf("failed to create monitor: %v", err)
	}

	notifyService := NewNotifyService(&config.NotificationsConfig{
		Webhook: config.WebhookConfig{Enabled: true, URL: sink.URL},
	}, zap.NewNop())
	checker := NewCheckerService(5 * time.Second)
	monitorService := NewMonitorService(checker, notifyService, zap.NewNop(), 5*time.Minute, 100, 180*time.Minute)

	if err := monitorService.CheckDueMonitors(); err != nil {
		t.Fatalf("check pass failed: %v", err)
	}

	var updated models.Monitor
	if err := db.First(&updated, monitor.ID).Error; err != nil {
		t.Fatalf("failed to reload monitor: %v", err)
	}
	if updated.LastStatus != models.StatusUp {
		t.Errorf("LastStatus = %q, want up", updated.LastStatus)
	}
	if updated.LastCheckedAt == nil {
		t.Error("LastCheckedAt not set")
	}
	if updated.LastAlertStatus != models.StatusUp || updated.LastAlertAt == nil {
		t.Errorf("alert marker = (%q, %v), want (up, set)", updated.LastAlertStatus, updated.LastAlertAt)
	}

	var logCount int64
	db.Model(&models.MonitorLog{}).Where("monitor_id = ?", monitor.ID).Count(&logCount)
	if logCount != 1 {
		t.Errorf("log count = %d, want 1", logCount)
	}

	var entry models.MonitorLog
	db.Where("monitor_id = ?", monitor.ID).First(&entry)
	if entry.Status != models.StatusUp || entry.HTTPStatus != 200 || entry.Error != "" {
		t.Errorf("log entry = %+v, want up/200 with empty error", entry)
	}

	if hits := atomic.LoadInt64(&webhookHits); hits != 1 {
		t.Errorf("webhook deliveries = %d, want 1", hits)
	}

	var sent int64
	db.Model(&models.Notification{}).Where("org_id = ? AND status = ?", org.ID, "success").Count(&sent)
	if sent != 1 {
		t.Errorf("notification records = %d, want 1", sent)
	}

	// A second pass inside the interval finds nothing due and stays quiet
	if err := monitorService.CheckDueMonitors(); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	db.Model(&models.MonitorLog{}).Where("monitor_id = ?", monitor.ID).Count(&logCount)
	if logCount != 1 {
		t.Errorf("log count after second pass = %d, want 1 (monitor not due)", logCount)
	}
	if hits := atomic.LoadInt64(&webhookHits); hits != 1 {
		t.Errorf("webhook deliveries after second pass = %d, want 1", hits)
	}
}
