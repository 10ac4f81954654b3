package services

import (
	"testing"
	"time"

	"site-monitor/internal/config"
	"site-monitor/internal/models"

	"github.com/google/go-cmp/cmp"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		WindowDays:          30,
		PointsPerIncident:   1.5,
		IncidentPenaltyCap:  25,
		SlowThresholdMs:     1200,
		VerySlowThresholdMs: 3200,
		SlowPenaltyMax:      15,
	}
}

func logAt(minute int, status string, responseMs int64) models.MonitorLog {
	return models.MonitorLog{
		Status:     status,
		ResponseMs: responseMs,
		CheckedAt:  time.Date(2024, 5, 1, 0, minute, 0, 0, time.UTC),
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := NewScoreService(testScoringConfig())

	logs := []models.MonitorLog{
		logAt(0, models.StatusUp, 100),
		logAt(1, models.StatusDown, 0), // incident 1, no recorded response time
		logAt(2, models.StatusDown, 0), // still the same outage
		logAt(3, models.StatusUp, 200),
		logAt(4, models.StatusDown, 300), // incident 2
		logAt(5, models.StatusUp, 600),
	}

	got := s.Summarize(logs)
	want := LogSummary{
		Checks:        6,
		UpChecks:      3,
		UptimePct:     50,
		Incidents:     2,
		AvgResponseMs: 300, // (100+200+300+600)/4
		RespSamples:   4,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeUnorderedInput(t *testing.T) {
	t.Parallel()

	s := NewScoreService(testScoringConfig())

	// Same sequence as above, shuffled; incidents depend on time order
	logs := []models.MonitorLog{
		logAt(4, models.StatusDown, 300),
		logAt(0, models.StatusUp, 100),
		logAt(3, models.StatusUp, 200),
		logAt(1, models.StatusDown, 0),
		logAt(5, models.StatusUp, 600),
		logAt(2, models.StatusDown, 0),
	}

	got := s.Summarize(logs)
	if got.Incidents != 2 {
		t.Errorf("Incidents = %d, want 2", got.Incidents)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	s := NewScoreService(testScoringConfig())
	got := s.Summarize(nil)
	if got.UptimePct != 0 || got.Checks != 0 {
		t.Errorf("empty window: got %+v, want zero summary", got)
	}
	if s.Score(got) != 0 {
		t.Errorf("empty window score = %d, want 0", s.Score(got))
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	s := NewScoreService(testScoringConfig())

	tests := []struct {
		name string
		sum  LogSummary
		want int
	}{
		{
			"perfect uptime and fast responses",
			LogSummary{UptimePct: 100, Incidents: 0, AvgResponseMs: 200},
			100,
		},
		{
			"half uptime, many incidents, very slow",
			// 50 - min(25, 10*1.5) - 15 = 20
			LogSummary{UptimePct: 50, Incidents: 10, AvgResponseMs: 4000},
			20,
		},
		{
			"incident penalty capped",
			// 100 - min(25, 30*1.5) = 75
			LogSummary{UptimePct: 100, Incidents: 30, AvgResponseMs: 100},
			75,
		},
		{
			"slow penalty scales linearly",
			// 2200ms is halfway between 1200 and 3200: 100 - 7.5 = 92.5 -> 93
			LogSummary{UptimePct: 100, Incidents: 0, AvgResponseMs: 2200},
			93,
		},
		{
			"score clamps at zero",
			LogSummary{UptimePct: 10, Incidents: 20, AvgResponseMs: 5000},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Score(tt.sum); got != tt.want {
				t.Errorf("Score(%+v) = %d, want %d", tt.sum, got, tt.want)
			}
		})
	}
}

func TestAggregateOrg(t *testing.T) {
	t.Parallel()

	s := NewScoreService(testScoringConfig())

	// One busy URL and one quiet URL: aggregation weights by check counts,
	// not an average of per-URL numbers
	summaries := []LogSummary{
		{Checks: 90, UpChecks: 90, UptimePct: 100, Incidents: 0, AvgResponseMs: 100, RespSamples: 90},
		{Checks: 10, UpChecks: 0, UptimePct: 0, Incidents: 1, AvgResponseMs: 2000, RespSamples: 10},
	}

	got := s.AggregateOrg(summaries)

	if got.UptimePct != 90 {
		t.Errorf("UptimePct = %v, want 90", got.UptimePct)
	}
	if got.AvgResponseMs != 290 { // (100*90 + 2000*10) / 100
		t.Errorf("AvgResponseMs = %v, want 290", got.AvgResponseMs)
	}
	if got.Incidents != 1 {
		t.Errorf("Incidents = %d, want 1", got.Incidents)
	}
}
