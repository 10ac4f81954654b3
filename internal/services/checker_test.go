package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"site-monitor/internal/models"
)

func TestCheckClassification(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	checker := NewCheckerService(5 * time.Second)

	tests := []struct {
		path       string
		wantStatus string
		wantCode   int
	}{
		{"/ok", models.StatusUp, 200},
		{"/moved", models.StatusUp, 200}, // redirects are followed
		{"/missing", models.StatusDown, 404},
		{"/broken", models.StatusDown, 500},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result := checker.Check(server.URL + tt.path)
			if result.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", result.Status, tt.wantStatus)
			}
			if result.HTTPStatus != tt.wantCode {
				t.Errorf("HTTPStatus = %d, want %d", result.HTTPStatus, tt.wantCode)
			}
			if tt.wantStatus == models.StatusUp && result.Error != "" {
				t.Errorf("Error = %q, want empty on success", result.Error)
			}
			if tt.wantStatus == models.StatusDown && result.Error == "" {
				t.Error("Error is empty, want error description on failure")
			}
		})
	}
}

func TestCheckTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	checker := NewCheckerService(50 * time.Millisecond)
	result := checker.Check(server.URL)

	if result.Status != models.StatusDown {
		t.Errorf("Status = %q, want down on timeout", result.Status)
	}
	if result.HTTPStatus != 0 {
		t.Errorf("HTTPStatus = %d, want 0 when no response arrived", result.HTTPStatus)
	}
	if result.Error == "" {
		t.Error("Error is empty, want timeout description")
	}
}

func TestCheckTransportFailure(t *testing.T) {
	t.Parallel()

	checker := NewCheckerService(time.Second)

	// Reserved TLD, guaranteed to fail resolution
	result := checker.Check("http://unreachable.invalid/")

	if result.Status != models.StatusDown {
		t.Errorf("Status = %q, want down on transport failure", result.Status)
	}
	if result.HTTPStatus != 0 {
		t.Errorf("HTTPStatus = %d, want 0", result.HTTPStatus)
	}
	if result.Error == "" {
		t.Error("Error is empty, want failure description")
	}
}
