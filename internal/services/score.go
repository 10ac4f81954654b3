package services

import (
	"math"
	"sort"

	"site-monitor/internal/config"
	"site-monitor/internal/models"
)

// LogSummary aggregates a window of check logs for one URL (or one
// organization, after weighting across its URLs).
type LogSummary struct {
	Checks        int     `json:"checks"`
	UpChecks      int     `json:"up_checks"`
	UptimePct     float64 `json:"uptime_pct"`
	Incidents     int     `json:"incidents"`       // up->down transitions, not raw down count
	AvgResponseMs float64 `json:"avg_response_ms"` // Mean over logs with a recorded response time
	RespSamples   int     `json:"resp_samples"`
}

// ScoreService computes reliability scores from check logs
type ScoreService struct {
	cfg config.ScoringConfig
}

// NewScoreService creates a new scoring service
func NewScoreService(cfg config.ScoringConfig) *ScoreService {
	return &ScoreService{cfg: cfg}
}

// Summarize reduces a log window for one URL to its scoring inputs. Logs are
// ordered by check time before counting incidents, so callers may pass them
// in any order.
func (s *ScoreService) Summarize(logs []models.MonitorLog) LogSummary {
	sorted := make([]models.MonitorLog, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CheckedAt.Before(sorted[j].CheckedAt)
	})

	var summary LogSummary
	var totalMs int64
	prev := ""

	for _, entry := range sorted {
		summary.Checks++
		if entry.Status == models.StatusUp {
			summary.UpChecks++
		}
		if prev == models.StatusUp && entry.Status == models.StatusDown {
			summary.Incidents++
		}
		prev = entry.Status

		if entry.ResponseMs > 0 {
			totalMs += entry.ResponseMs
			summary.RespSamples++
		}
	}

	if summary.Checks > 0 {
		summary.UptimePct = float64(summary.UpChecks) / float64(summary.Checks) * 100
	}
	if summary.RespSamples > 0 {
		summary.AvgResponseMs = float64(totalMs) / float64(summary.RespSamples)
	}

	return summary
}

// AggregateOrg combines per-URL summaries into one organization-level
// summary. Uptime and response time are check-count-weighted averages over
// all URLs, not averages of per-URL scores; incidents are summed.
func (s *ScoreService) AggregateOrg(summaries []LogSummary) LogSummary {
	var agg LogSummary
	var weightedMs float64

	for _, sum := range summaries {
		agg.Checks += sum.Checks
		agg.UpChecks += sum.UpChecks
		agg.Incidents += sum.Incidents
		agg.RespSamples += sum.RespSamples
		weightedMs += sum.AvgResponseMs * float64(sum.RespSamples)
	}

	if agg.Checks > 0 {
		agg.UptimePct = float64(agg.UpChecks) / float64(agg.Checks) * 100
	}
	if agg.RespSamples > 0 {
		agg.AvgResponseMs = weightedMs / float64(agg.RespSamples)
	}

	return agg
}

// Score applies the reliability formula: start from uptime percentage,
// subtract a capped incident penalty, subtract a response-time penalty
// scaled linearly between the slow and very-slow thresholds, then clamp to
// [0, 100] and round to the nearest integer.
func (s *ScoreService) Score(sum LogSummary) int {
	score := sum.UptimePct

	incidentPenalty := float64(sum.Incidents) * s.cfg.PointsPerIncident
	if incidentPenalty > s.cfg.IncidentPenaltyCap {
		incidentPenalty = s.cfg.IncidentPenaltyCap
	}
	score -= incidentPenalty

	if sum.AvgResponseMs > s.cfg.SlowThresholdMs {
		frac := (sum.AvgResponseMs - s.cfg.SlowThresholdMs) / (s.cfg.VerySlowThresholdMs - s.cfg.SlowThresholdMs)
		if frac > 1 {
			frac = 1
		}
		score -= s.cfg.SlowPenaltyMax * frac
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return int(math.Round(score))
}
