package models

import (
	"time"
)

// Check statuses. StatusUnknown is the initial state before the first check
// and before the first alert.
const (
	StatusUp      = "up"
	StatusDown    = "down"
	StatusUnknown = "unknown"
)

// Monitor represents a monitored target URL
type Monitor struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	OrgID           uint       `gorm:"not null;index" json:"org_id"`             // Owning organization
	Name            string     `json:"name"`                                     // Display name
	URL             string     `gorm:"not null" json:"url"`                      // Target URL
	IsActive        bool       `gorm:"default:true" json:"is_active"`            // Monitor enabled
	IntervalMinutes int        `gorm:"default:5" json:"interval_minutes"`        // Check interval
	LastStatus      string     `gorm:"default:unknown" json:"last_status"`       // up/down/unknown
	LastCheckedAt   *time.Time `json:"last_checked_at"`                          // Last check time, nil if never checked
	LastAlertStatus string     `gorm:"default:unknown" json:"last_alert_status"` // Last alerted status (cooldown tracking)
	LastAlertAt     *time.Time `json:"last_alert_at"`                            // Last alert time
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MonitorLog is an append-only record of one check outcome
type MonitorLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	MonitorID  uint      `gorm:"not null;index" json:"monitor_id"`
	OrgID      uint      `gorm:"not null;index" json:"org_id"`
	Status     string    `gorm:"not null" json:"status"`   // up/down
	HTTPStatus int       `json:"http_status"`              // 0 if no response
	ResponseMs int64     `json:"response_ms"`              // Elapsed time in milliseconds
	Error      string    `json:"error"`                    // Empty on success
	CheckedAt  time.Time `gorm:"index" json:"checked_at"`
}

// Notification represents a notification record
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OrgID     uint      `gorm:"index" json:"org_id"`
	MonitorID uint      `json:"monitor_id"` // 0 for digest/report notifications
	Type      string    `json:"type"`       // Notification channel (email/webhook/telegram)
	Subject   string    `json:"subject"`    // Notification subject line
	Status    string    `json:"status"`     // Send status (success/failed)
	SentAt    time.Time `json:"sent_at"`
}

// CronRun marks a periodic report as sent for one period. The unique key
// (e.g. "daily:2024-05-01", "monthly:2024-05") enforces at-most-once
// delivery per period per run type.
type CronRun struct {
	Key     string    `gorm:"primarykey" json:"key"`
	RunType string    `json:"run_type"` // daily/monthly
	SentAt  time.Time `json:"sent_at"`
}
