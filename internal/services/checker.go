package services

import (
	"net/http"
	"time"

	"site-monitor/internal/metrics"
	"site-monitor/internal/models"
)

const checkerUserAgent = "site-monitor/1.0 health check"

// CheckResult represents the outcome of one health check
type CheckResult struct {
	Status     string    `json:"status"`      // up/down
	HTTPStatus int       `json:"http_status"` // 0 if no response
	ResponseMs int64     `json:"response_ms"` // Elapsed time in milliseconds
	Error      string    `json:"error"`       // Empty on success
	CheckedAt  time.Time `json:"checked_at"`
}

// CheckerService performs URL health checks
type CheckerService struct {
	client *http.Client
}

// NewCheckerService creates a new checker with a bounded per-request timeout.
// Redirects are followed by the default client policy.
func NewCheckerService(timeout time.Duration) *CheckerService {
	return &CheckerService{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Check probes a URL once and classifies the outcome. A response with status
// in [200, 400) is up; anything else, including timeouts, DNS failures and
// transport errors, is down. Failures never propagate to the caller.
func (s *CheckerService) Check(targetURL string) CheckResult {
	result := CheckResult{
		Status:    models.StatusDown,
		CheckedAt: time.Now(),
	}

	req, err := http.NewRequest(http.MethodGet, targetURL, nil)
	if err != nil {
		result.Error = err.Error()
		metrics.ChecksTotal.WithLabelValues(result.Status).Inc()
		return result
	}
	req.Header.Set("User-Agent", checkerUserAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start)
	result.ResponseMs = elapsed.Milliseconds()
	metrics.CheckDuration.Observe(elapsed.Seconds())

	if err != nil {
		result.Error = err.Error()
		metrics.ChecksTotal.WithLabelValues(result.Status).Inc()
		return result
	}
	defer resp.Body.Close()

	result.HTTPStatus = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = models.StatusUp
	} else {
		result.Error = resp.Status
	}

	metrics.ChecksTotal.WithLabelValues(result.Status).Inc()
	return result
}
