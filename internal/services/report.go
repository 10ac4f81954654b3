package services

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"site-monitor/internal/database"
	"site-monitor/internal/metrics"
	"site-monitor/internal/models"

	"go.uber.org/zap"
)

// DownEvent is one down check observed inside a digest window
type DownEvent struct {
	MonitorName string    `json:"monitor_name"`
	URL         string    `json:"url"`
	Error       string    `json:"error"`
	At          time.Time `json:"at"`
}

// TrialExpiry is a member whose trial window ended inside a digest window
type TrialExpiry struct {
	Email   string    `json:"email"`
	EndedAt time.Time `json:"ended_at"`
}

// URLScore is the scored summary for one monitored URL
type URLScore struct {
	MonitorID uint       `json:"monitor_id"`
	Name      string     `json:"name"`
	URL       string     `json:"url"`
	Summary   LogSummary `json:"summary"`
	Score     int        `json:"score"`
}

// MonthlyReport is the organization-level reliability report
type MonthlyReport struct {
	Period   string     `json:"period"`
	OrgScore int        `json:"org_score"`
	Summary  LogSummary `json:"summary"`
	URLs     []URLScore `json:"urls"` // Ranked by score, highest first
}

// ComposeAlert formats an immediate status-change notification. Pure
// formatting; output depends only on the inputs.
func ComposeAlert(monitor *models.Monitor, result CheckResult) *Message {
	name := monitor.Name
	if name == "" {
		name = monitor.URL
	}

	var subject, headline string
	if result.Status == models.StatusUp {
		subject = fmt.Sprintf("🟢 UP: %s is back online", name)
		headline = "Monitor recovered"
	} else {
		subject = fmt.Sprintf("🔴 DOWN: %s is unreachable", name)
		headline = "Monitor down"
	}

	text := fmt.Sprintf(`%s

Monitor: %s
URL: %s
Status: %s
HTTP status: %d
Response time: %d ms
Checked at: %s
`,
		headline,
		name,
		monitor.URL,
		result.Status,
		result.HTTPStatus,
		result.ResponseMs,
		result.CheckedAt.UTC().Format("2006-01-02 15:04:05 MST"),
	)
	if result.Error != "" {
		text += fmt.Sprintf("Error: %s\n", result.Error)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<h2>%s</h2>", html.EscapeString(headline)))
	b.WriteString("<table>")
	b.WriteString(fmt.Sprintf("<tr><td>Monitor</td><td>%s</td></tr>", html.EscapeString(name)))
	b.WriteString(fmt.Sprintf("<tr><td>URL</td><td>%s</td></tr>", html.EscapeString(monitor.URL)))
	b.WriteString(fmt.Sprintf("<tr><td>Status</td><td>%s</td></tr>", result.Status))
	b.WriteString(fmt.Sprintf("<tr><td>HTTP status</td><td>%d</td></tr>", result.HTTPStatus))
	b.WriteString(fmt.Sprintf("<tr><td>Response time</td><td>%d ms</td></tr>", result.ResponseMs))
	if result.Error != "" {
		b.WriteString(fmt.Sprintf("<tr><td>Error</td><td>%s</td></tr>", html.EscapeString(result.Error)))
	}
	b.WriteString("</table>")

	return &Message{
		OrgID:     monitor.OrgID,
		MonitorID: monitor.ID,
		Subject:   subject,
		Text:      text,
		HTML:      b.String(),
	}
}

// ComposeDailyDigest formats the last-24h summary for one organization
func ComposeDailyDigest(org *models.Organization, downEvents []DownEvent, trials []TrialExpiry, day time.Time) *Message {
	date := day.UTC().Format("2006-01-02")
	subject := fmt.Sprintf("Daily monitoring digest for %s — %s", org.Name, date)

	var text strings.Builder
	text.WriteString(fmt.Sprintf("Daily digest for %s (%s)\n\n", org.Name, date))
	text.WriteString(fmt.Sprintf("Down events in the last 24 hours: %d\n", len(downEvents)))
	for _, ev := range downEvents {
		text.WriteString(fmt.Sprintf("  - %s (%s) at %s", ev.MonitorName, ev.URL, ev.At.UTC().Format("15:04:05")))
		if ev.Error != "" {
			text.WriteString(fmt.Sprintf(": %s", ev.Error))
		}
		text.WriteString("\n")
	}
	text.WriteString(fmt.Sprintf("\nTrials expired in the last 24 hours: %d\n", len(trials)))
	for _, tr := range trials {
		text.WriteString(fmt.Sprintf("  - %s (ended %s)\n", tr.Email, tr.EndedAt.UTC().Format("2006-01-02 15:04")))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<h2>Daily digest for %s (%s)</h2>", html.EscapeString(org.Name), date))
	b.WriteString(fmt.Sprintf("<p>Down events in the last 24 hours: <b>%d</b></p><ul>", len(downEvents)))
	for _, ev := range downEvents {
		b.WriteString(fmt.Sprintf("<li>%s (%s) at %s</li>",
			html.EscapeString(ev.MonitorName), html.EscapeString(ev.URL), ev.At.UTC().Format("15:04:05")))
	}
	b.WriteString("</ul>")
	b.WriteString(fmt.Sprintf("<p>Trials expired in the last 24 hours: <b>%d</b></p><ul>", len(trials)))
	for _, tr := range trials {
		b.WriteString(fmt.Sprintf("<li>%s (ended %s)</li>",
			html.EscapeString(tr.Email), tr.EndedAt.UTC().Format("2006-01-02 15:04")))
	}
	b.WriteString("</ul>")

	return &Message{
		OrgID:   org.ID,
		Subject: subject,
		Text:    text.String(),
		HTML:    b.String(),
	}
}

// ComposeMonthlyReport formats the reliability report for one organization.
// URLs are expected pre-ranked, highest score first.
func ComposeMonthlyReport(org *models.Organization, report *MonthlyReport) *Message {
	subject := fmt.Sprintf("Monthly reliability report for %s — %s", org.Name, report.Period)

	var text strings.Builder
	text.WriteString(fmt.Sprintf("Reliability report for %s (%s)\n\n", org.Name, report.Period))
	text.WriteString(fmt.Sprintf("Overall score: %d/100\n", report.OrgScore))
	text.WriteString(fmt.Sprintf("Uptime: %.2f%%  Incidents: %d  Avg response: %.0f ms\n\n",
		report.Summary.UptimePct, report.Summary.Incidents, report.Summary.AvgResponseMs))
	text.WriteString("Per-URL scores:\n")
	for i, u := range report.URLs {
		text.WriteString(fmt.Sprintf("  %d. %s (%s): %d/100, uptime %.2f%%, %d incidents, avg %.0f ms\n",
			i+1, u.Name, u.URL, u.Score, u.Summary.UptimePct, u.Summary.Incidents, u.Summary.AvgResponseMs))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<h2>Reliability report for %s (%s)</h2>", html.EscapeString(org.Name), report.Period))
	b.WriteString(fmt.Sprintf("<p>Overall score: <b>%d/100</b></p>", report.OrgScore))
	b.WriteString("<table><tr><th>#</th><th>Monitor</th><th>Score</th><th>Uptime</th><th>Incidents</th><th>Avg response</th></tr>")
	for i, u := range report.URLs {
		b.WriteString(fmt.Sprintf("<tr><td>%d</td><td>%s</td><td>%d</td><td>%.2f%%</td><td>%d</td><td>%.0f ms</td></tr>",
			i+1, html.EscapeString(u.Name), u.Score, u.Summary.UptimePct, u.Summary.Incidents, u.Summary.AvgResponseMs))
	}
	b.WriteString("</table>")

	return &Message{
		OrgID:   org.ID,
		Subject: subject,
		Text:    text.String(),
		HTML:    b.String(),
	}
}

// ReportService builds and dispatches periodic reports
type ReportService struct {
	scoreService  *ScoreService
	notifyService *NotifyService
	logger        *zap.Logger
	windowDays    int
}

// NewReportService creates a new report service
func NewReportService(scoreService *ScoreService, notifyService *NotifyService, logger *zap.Logger, windowDays int) *ReportService {
	return &ReportService{
		scoreService:  scoreService,
		notifyService: notifyService,
		logger:        logger,
		windowDays:    windowDays,
	}
}

// markerExists reports whether a cron-run marker has already been recorded
func markerExists(key string) bool {
	db := database.GetDB()
	var run models.CronRun
	return db.Where("key = ?", key).First(&run).Error == nil
}

// recordMarker records a cron-run marker; the primary key makes the write
// at-most-once per period
func recordMarker(key, runType string) error {
	db := database.GetDB()
	return db.Create(&models.CronRun{
		Key:     key,
		RunType: runType,
		SentAt:  time.Now(),
	}).Error
}

// SendDailyDigests sends the last-24h digest to every organization with
// something to report. A "daily:YYYY-MM-DD" marker guards against duplicate
// sends for the same day.
func (s *ReportService) SendDailyDigests(now time.Time) error {
	key := "daily:" + now.UTC().Format("2006-01-02")
	if markerExists(key) {
		s.logger.Info("daily digest already sent", zap.String("key", key))
		return nil
	}

	db := database.GetDB()

	var orgs []models.Organization
	if err := db.Find(&orgs).Error; err != nil {
		return fmt.Errorf("failed to fetch organizations: %w", err)
	}

	since := now.Add(-24 * time.Hour)
	sent := 0

	for _, org := range orgs {
		downEvents, err := s.downEventsSince(org.ID, since)
		if err != nil {
			s.logger.Error("failed to collect down events", zap.Uint("org_id", org.ID), zap.Error(err))
			continue
		}

		// Blocked and inactive members are invisible to digests, matching
		// recipient resolution
		var expired []models.User
		if err := db.Where("org_id = ? AND blocked = ? AND is_active = ? AND trial_ends_at IS NOT NULL AND trial_ends_at > ? AND trial_ends_at <= ?",
			org.ID, false, true, since, now).Find(&expired).Error; err != nil {
			s.logger.Error("failed to collect expiring trials", zap.Uint("org_id", org.ID), zap.Error(err))
			continue
		}
		trials := make([]TrialExpiry, 0, len(expired))
		for _, u := range expired {
			trials = append(trials, TrialExpiry{Email: u.Email, EndedAt: *u.TrialEndsAt})
		}

		if len(downEvents) == 0 && len(trials) == 0 {
			continue
		}

		recipients, err := s.orgRecipients(&org)
		if err != nil {
			s.logger.Error("failed to resolve recipients", zap.Uint("org_id", org.ID), zap.Error(err))
			continue
		}
		if len(recipients) == 0 {
			continue
		}

		msg := ComposeDailyDigest(&org, downEvents, trials, now)
		msg.To = recipients

		if err := s.notifyService.Send(msg); err != nil {
			s.logger.Error("failed to send daily digest", zap.Uint("org_id", org.ID), zap.Error(err))
			continue
		}
		sent++
	}

	metrics.ReportsTotal.WithLabelValues("daily").Add(float64(sent))
	s.logger.Info("daily digests sent", zap.Int("count", sent))

	return recordMarker(key, "daily")
}

// SendMonthlyReports sends the trailing-window reliability report to every
// eligible (highest-tier) organization. A "monthly:YYYY-MM" marker guards
// against duplicate sends for the same month.
func (s *ReportService) SendMonthlyReports(now time.Time) error {
	key := "monthly:" + now.UTC().Format("2006-01")
	if markerExists(key) {
		s.logger.Info("monthly report already sent", zap.String("key", key))
		return nil
	}

	db := database.GetDB()

	// Monthly reports are an ultra-plan feature: an organization is eligible
	// when its owner is on the highest tier
	var orgIDs []uint
	if err := db.Model(&models.User{}).
		Where("role = ? AND plan = ? AND blocked = ?", models.RoleOwner, models.PlanUltra, false).
		Distinct().
		Pluck("org_id", &orgIDs).Error; err != nil {
		return fmt.Errorf("failed to fetch eligible organizations: %w", err)
	}

	sent := 0
	for _, orgID := range orgIDs {
		var org models.Organization
		if err := db.First(&org, orgID).Error; err != nil {
			s.logger.Error("failed to load organization", zap.Uint("org_id", orgID), zap.Error(err))
			continue
		}

		report, err := s.BuildMonthlyReport(orgID, now)
		if err != nil {
			s.logger.Error("failed to build monthly report", zap.Uint("org_id", orgID), zap.Error(err))
			continue
		}

		recipients, err := s.orgRecipients(&org)
		if err != nil {
			s.logger.Error("failed to resolve recipients", zap.Uint("org_id", orgID), zap.Error(err))
			continue
		}
		if len(recipients) == 0 {
			continue
		}

		msg := ComposeMonthlyReport(&org, report)
		msg.To = recipients

		if err := s.notifyService.Send(msg); err != nil {
			s.logger.Error("failed to send monthly report", zap.Uint("org_id", orgID), zap.Error(err))
			continue
		}
		sent++
	}

	metrics.ReportsTotal.WithLabelValues("monthly").Add(float64(sent))
	s.logger.Info("monthly reports sent", zap.Int("count", sent))

	return recordMarker(key, "monthly")
}

// BuildMonthlyReport aggregates the trailing window of logs for one
// organization into scored per-URL rows (ranked highest first, ties kept in
// discovery order) and the check-count-weighted organization score.
func (s *ReportService) BuildMonthlyReport(orgID uint, now time.Time) (*MonthlyReport, error) {
	db := database.GetDB()

	since := now.AddDate(0, 0, -s.windowDays)

	var monitors []models.Monitor
	if err := db.Where("org_id = ?", orgID).Order("id asc").Find(&monitors).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch monitors: %w", err)
	}

	urls := make([]URLScore, 0, len(monitors))
	summaries := make([]LogSummary, 0, len(monitors))

	for _, monitor := range monitors {
		var logs []models.MonitorLog
		if err := db.Where("monitor_id = ? AND checked_at >= ?", monitor.ID, since).
			Order("checked_at asc").Find(&logs).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch logs for monitor %d: %w", monitor.ID, err)
		}

		summary := s.scoreService.Summarize(logs)
		summaries = append(summaries, summary)

		name := monitor.Name
		if name == "" {
			name = monitor.URL
		}
		urls = append(urls, URLScore{
			MonitorID: monitor.ID,
			Name:      name,
			URL:       monitor.URL,
			Summary:   summary,
			Score:     s.scoreService.Score(summary),
		})
	}

	// Rank by score, highest first; stable sort keeps discovery order on ties
	sort.SliceStable(urls, func(i, j int) bool {
		return urls[i].Score > urls[j].Score
	})

	orgSummary := s.scoreService.AggregateOrg(summaries)

	return &MonthlyReport{
		Period:   now.UTC().Format("2006-01"),
		OrgScore: s.scoreService.Score(orgSummary),
		Summary:  orgSummary,
		URLs:     urls,
	}, nil
}

// ScoreMonitor scores the trailing window of logs for a single monitor
func (s *ReportService) ScoreMonitor(monitor *models.Monitor, now time.Time) (*URLScore, error) {
	db := database.GetDB()

	since := now.AddDate(0, 0, -s.windowDays)

	var logs []models.MonitorLog
	if err := db.Where("monitor_id = ? AND checked_at >= ?", monitor.ID, since).
		Order("checked_at asc").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch logs for monitor %d: %w", monitor.ID, err)
	}

	summary := s.scoreService.Summarize(logs)

	name := monitor.Name
	if name == "" {
		name = monitor.URL
	}

	return &URLScore{
		MonitorID: monitor.ID,
		Name:      name,
		URL:       monitor.URL,
		Summary:   summary,
		Score:     s.scoreService.Score(summary),
	}, nil
}

// downEventsSince collects down logs for one organization after a cutoff
func (s *ReportService) downEventsSince(orgID uint, since time.Time) ([]DownEvent, error) {
	db := database.GetDB()

	var logs []models.MonitorLog
	if err := db.Where("org_id = ? AND status = ? AND checked_at >= ?", orgID, models.StatusDown, since).
		Order("checked_at asc").Find(&logs).Error; err != nil {
		return nil, err
	}

	events := make([]DownEvent, 0, len(logs))
	for _, entry := range logs {
		var monitor models.Monitor
		name, url := "", ""
		if err := db.First(&monitor, entry.MonitorID).Error; err == nil {
			name, url = monitor.Name, monitor.URL
			if name == "" {
				name = url
			}
		}
		events = append(events, DownEvent{
			MonitorName: name,
			URL:         url,
			Error:       entry.Error,
			At:          entry.CheckedAt,
		})
	}

	return events, nil
}

// orgRecipients loads the membership and resolves the notification audience
func (s *ReportService) orgRecipients(org *models.Organization) ([]string, error) {
	db := database.GetDB()

	var members []models.User
	if err := db.Where("org_id = ?", org.ID).Find(&members).Error; err != nil {
		return nil, err
	}

	return ResolveRecipients(org, members), nil
}
