package services

import (
	"time"

	"site-monitor/internal/models"
)

// ShouldAlert decides whether a check result triggers a notification, given
// the monitor's alert state (last alerted status and when it was sent).
//
// A transition to down alerts when the previously alerted status was not
// down, or when the cooldown has elapsed since the last alert — so a
// sustained outage produces periodic reminders. A transition to up alerts
// only once, as a recovery notice. The initial state is unknown, which
// differs from both up and down, so the first result of either kind alerts.
func ShouldAlert(lastAlertStatus string, lastAlertAt *time.Time, newStatus string, now time.Time, cooldown time.Duration) bool {
	switch newStatus {
	case models.StatusDown:
		if lastAlertStatus != models.StatusDown {
			return true
		}
		return lastAlertAt == nil || now.Sub(*lastAlertAt) >= cooldown
	case models.StatusUp:
		return lastAlertStatus != models.StatusUp
	default:
		return false
	}
}
