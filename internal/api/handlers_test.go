package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"site-monitor/internal/config"
	"site-monitor/internal/database"
	"site-monitor/internal/models"
	"site-monitor/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestMonitorCreateAndScoreEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)

	if err := database.InitDB(&config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")}); err != nil {
		t.Fatalf("failed to init database: %v", err)
	}
	db := database.GetDB()

	org := models.Organization{Name: "Acme", NotifyPolicy: models.NotifyAll}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("failed to create org: %v", err)
	}
	user := models.User{OrgID: org.ID, Email: "owner@example.com", Password: "x", Role: models.RoleOwner, IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	authService := services.NewAuthService("test-secret")
	token, err := authService.GenerateToken(&user)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	scoring := config.ScoringConfig{
		WindowDays:          30,
		PointsPerIncident:   1.5,
		IncidentPenaltyCap:  25,
		SlowThresholdMs:     1200,
		VerySlowThresholdMs: 3200,
		SlowPenaltyMax:      15,
	}
	checker := services.NewCheckerService(5 * time.Second)
	monitorService := services.NewMonitorService(checker, nil, zap.NewNop(), 5*time.Minute, 100, 180*time.Minute)
	reportService := services.NewReportService(services.NewScoreService(scoring), nil, zap.NewNop(), scoring.WindowDays)

	r := gin.New()
	SetupRoutes(r, NewHandler(monitorService, reportService, authService), "cron-secret")

	// Create a monitor; the immediate check runs in the background on its
	// own copy, so the response reflects the pre-check state
	body := fmt.Sprintf(`{"name":"Shop","url":%q,"interval_minutes":10}`, target.URL)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/monitors", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d (body %s)", w.Code, http.StatusCreated, w.Body.String())
	}

	var created models.Monitor
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if created.LastStatus != models.StatusUnknown {
		t.Errorf("response LastStatus = %q, want unknown before the first check lands", created.LastStatus)
	}

	// The detached background check still persists through the monitor row
	var reloaded models.Monitor
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := db.First(&reloaded, created.ID).Error; err != nil {
			t.Fatalf("failed to reload monitor: %v", err)
		}
		if reloaded.LastCheckedAt != nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if reloaded.LastCheckedAt == nil {
		t.Fatal("background check never landed")
	}
	if reloaded.LastStatus != models.StatusUp {
		t.Errorf("stored LastStatus = %q, want up", reloaded.LastStatus)
	}

	// One fast up check scores a clean 100
	scoreReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/monitors/%d/score", created.ID), nil)
	scoreReq.Header.Set("Authorization", "Bearer "+token)
	scoreW := httptest.NewRecorder()
	r.ServeHTTP(scoreW, scoreReq)

	if scoreW.Code != http.StatusOK {
		t.Fatalf("score status = %d, want %d (body %s)", scoreW.Code, http.StatusOK, scoreW.Body.String())
	}
	if !strings.Contains(scoreW.Body.String(), `"score":100`) {
		t.Errorf("score body = %q, want score 100", scoreW.Body.String())
	}
}
