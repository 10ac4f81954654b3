package api

import (
	"net/http"
	"strconv"
	"time"

	"site-monitor/internal/database"
	"site-monitor/internal/models"
	"site-monitor/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler holds service dependencies
type Handler struct {
	monitorService *services.MonitorService
	reportService  *services.ReportService
	authService    *services.AuthService
}

// NewHandler creates a new API handler
func NewHandler(monitorService *services.MonitorService, reportService *services.ReportService, authService *services.AuthService) *Handler {
	return &Handler{
		monitorService: monitorService,
		reportService:  reportService,
		authService:    authService,
	}
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, handler *Handler, cronSecret string) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		// Authentication (no auth required)
		api.POST("/auth/login", handler.Login)
		api.POST("/auth/validate", handler.ValidateToken)
		api.POST("/auth/change-password", handler.ChangePassword)

		// External report triggers (shared secret)
		internal := api.Group("/internal", CronSecretMiddleware(cronSecret))
		{
			internal.POST("/reports/daily", handler.TriggerDailyReport)
			internal.POST("/reports/monthly", handler.TriggerMonthlyReport)
		}

		// Everything else requires a valid token
		protected := api.Group("", AuthMiddleware(handler.authService))
		{
			// Monitor management
			protected.GET("/monitors", handler.ListMonitors)
			protected.POST("/monitors", handler.CreateMonitor)
			protected.GET("/monitors/:id", handler.GetMonitor)
			protected.PUT("/monitors/:id", handler.UpdateMonitor)
			protected.DELETE("/monitors/:id", handler.DeleteMonitor)
			protected.GET("/monitors/:id/logs", handler.ListMonitorLogs)
			protected.GET("/monitors/:id/score", handler.GetMonitorScore)
			protected.POST("/monitors/:id/refresh", handler.RefreshMonitor)

			// Organization settings
			protected.GET("/organization", handler.GetOrganization)
			protected.PUT("/organization", handler.UpdateOrganization)

			// Dashboard statistics
			protected.GET("/dashboard/stats", handler.GetStats)

			// Reliability report (on demand)
			protected.GET("/reports/monthly", handler.GetMonthlyReport)

			// Notifications
			protected.GET("/notifications", handler.ListNotifications)

			// System settings
			protected.GET("/settings", handler.GetSettings)
			protected.PUT("/settings", handler.UpdateSettings)
		}
	}
}

// orgMonitor loads a monitor by path id, scoped to the caller's organization
func orgMonitor(c *gin.Context) (*models.Monitor, bool) {
	claims := currentClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil, false
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid monitor ID"})
		return nil, false
	}

	db := database.GetDB()

	var monitor models.Monitor
	if err := db.Where("id = ? AND org_id = ?", id, claims.OrgID).First(&monitor).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Monitor not found"})
		return nil, false
	}

	return &monitor, true
}

// ListMonitors retrieves all monitors of the caller's organization
func (h *Handler) ListMonitors(c *gin.Context) {
	claims := currentClaims(c)
	db := database.GetDB()

	var monitors []models.Monitor
	if err := db.Where("org_id = ?", claims.OrgID).Order("id asc").Find(&monitors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, monitors)
}

// CreateMonitor adds a new monitor
func (h *Handler) CreateMonitor(c *gin.Context) {
	claims := currentClaims(c)

	var req struct {
		Name            string `json:"name"`
		URL             string `json:"url" binding:"required,url"`
		IntervalMinutes int    `json:"interval_minutes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IntervalMinutes <= 0 {
		req.IntervalMinutes = 5
	}

	monitor := models.Monitor{
		OrgID:           claims.OrgID,
		Name:            req.Name,
		URL:             req.URL,
		IsActive:        true,
		IntervalMinutes: req.IntervalMinutes,
		LastStatus:      models.StatusUnknown,
		LastAlertStatus: models.StatusUnknown,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	db := database.GetDB()
	if err := db.Create(&monitor).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Immediately check the new monitor. The goroutine gets its own copy so
	// the response marshaling below never races with the check's mutations.
	go func(m models.Monitor) {
		h.monitorService.CheckMonitor(&m)
	}(monitor)

	c.JSON(http.StatusCreated, monitor)
}

// GetMonitor retrieves a single monitor
func (h *Handler) GetMonitor(c *gin.Context) {
	monitor, ok := orgMonitor(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, monitor)
}

// UpdateMonitor updates a monitor
func (h *Handler) UpdateMonitor(c *gin.Context) {
	monitor, ok := orgMonitor(c)
	if !ok {
		return
	}

	var req struct {
		Name            *string `json:"name"`
		URL             *string `json:"url"`
		IsActive        *bool   `json:"is_active"`
		IntervalMinutes *int    `json:"interval_minutes"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		monitor.Name = *req.Name
	}
	if req.URL != nil {
		monitor.URL = *req.URL
	}
	if req.IsActive != nil {
		monitor.IsActive = *req.IsActive
	}
	if req.IntervalMinutes != nil && *req.IntervalMinutes > 0 {
		monitor.IntervalMinutes = *req.IntervalMinutes
	}
	monitor.UpdatedAt = time.Now()

	db := database.GetDB()
	if err := db.Save(monitor).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, monitor)
}

// DeleteMonitor removes a monitor
func (h *Handler) DeleteMonitor(c *gin.Context) {
	monitor, ok := orgMonitor(c)
	if !ok {
		return
	}

	db := database.GetDB()
	if err := db.Delete(&models.Monitor{}, monitor.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Monitor deleted successfully"})
}

// ListMonitorLogs retrieves recent check logs for a monitor
func (h *Handler) ListMonitorLogs(c *gin.Context) {
	monitor, ok := orgMonitor(c)
	if !ok {
		return
	}

	db := database.GetDB()

	var logs []models.MonitorLog
	if err := db.Where("monitor_id = ?", monitor.ID).
		Order("checked_at desc").
		Limit(100).
		Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, logs)
}

// GetMonitorScore computes the trailing-window reliability score for a
// single monitor
func (h *Handler) GetMonitorScore(c *gin.Context) {
	monitor, ok := orgMonitor(c)
	if !ok {
		return
	}

	score, err := h.reportService.ScoreMonitor(monitor, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, score)
}

// RefreshMonitor runs an immediate check
func (h *Handler) RefreshMonitor(c *gin.Context) {
	monitor, ok := orgMonitor(c)
	if !ok {
		return
	}

	if err := h.monitorService.CheckMonitor(monitor); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, monitor)
}

// GetOrganization retrieves the caller's organization
func (h *Handler) GetOrganization(c *gin.Context) {
	claims := currentClaims(c)
	db := database.GetDB()

	var org models.Organization
	if err := db.First(&org, claims.OrgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	c.JSON(http.StatusOK, org)
}

// UpdateOrganization updates organization settings (owner only)
func (h *Handler) UpdateOrganization(c *gin.Context) {
	claims := currentClaims(c)
	if claims.Role != models.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Owner role required"})
		return
	}

	var req struct {
		Name         *string `json:"name"`
		NotifyPolicy *string `json:"notify_policy"`
		ExtraEmails  *string `json:"extra_emails"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := database.GetDB()

	var org models.Organization
	if err := db.First(&org, claims.OrgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.NotifyPolicy != nil {
		if *req.NotifyPolicy != models.NotifyOwner && *req.NotifyPolicy != models.NotifyAll {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Notify policy must be owner or all"})
			return
		}
		org.NotifyPolicy = *req.NotifyPolicy
	}
	if req.ExtraEmails != nil {
		org.ExtraEmails = *req.ExtraEmails
	}
	org.UpdatedAt = time.Now()

	if err := db.Save(&org).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, org)
}

// GetStats retrieves dashboard statistics for the caller's organization
func (h *Handler) GetStats(c *gin.Context) {
	claims := currentClaims(c)
	db := database.GetDB()

	var total int64
	db.Model(&models.Monitor{}).Where("org_id = ?", claims.OrgID).Count(&total)

	var active int64
	db.Model(&models.Monitor{}).Where("org_id = ? AND is_active = ?", claims.OrgID, true).Count(&active)

	var up int64
	db.Model(&models.Monitor{}).Where("org_id = ? AND last_status = ?", claims.OrgID, models.StatusUp).Count(&up)

	var down int64
	db.Model(&models.Monitor{}).Where("org_id = ? AND last_status = ?", claims.OrgID, models.StatusDown).Count(&down)

	var checks24h int64
	db.Model(&models.MonitorLog{}).
		Where("org_id = ? AND checked_at >= ?", claims.OrgID, time.Now().Add(-24*time.Hour)).
		Count(&checks24h)

	c.JSON(http.StatusOK, gin.H{
		"total":      total,
		"active":     active,
		"up":         up,
		"down":       down,
		"checks_24h": checks24h,
	})
}

// GetMonthlyReport builds the reliability report on demand
func (h *Handler) GetMonthlyReport(c *gin.Context) {
	claims := currentClaims(c)

	report, err := h.reportService.BuildMonthlyReport(claims.OrgID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// TriggerDailyReport lets an external scheduler drive the daily digest
func (h *Handler) TriggerDailyReport(c *gin.Context) {
	if err := h.reportService.SendDailyDigests(time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Daily digest run completed"})
}

// TriggerMonthlyReport lets an external scheduler drive the monthly report
func (h *Handler) TriggerMonthlyReport(c *gin.Context) {
	if err := h.reportService.SendMonthlyReports(time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Monthly report run completed"})
}

// ListNotifications retrieves notification history for the organization
func (h *Handler) ListNotifications(c *gin.Context) {
	claims := currentClaims(c)
	db := database.GetDB()

	var notifications []models.Notification
	if err := db.Where("org_id = ?", claims.OrgID).
		Order("sent_at desc").
		Limit(100).
		Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// GetSettings retrieves system settings (owner only)
func (h *Handler) GetSettings(c *gin.Context) {
	claims := currentClaims(c)
	if claims.Role != models.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Owner role required"})
		return
	}

	db := database.GetDB()

	var settings []models.Setting
	if err := db.Find(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings updates system settings (owner only)
func (h *Handler) UpdateSettings(c *gin.Context) {
	claims := currentClaims(c)
	if claims.Role != models.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Owner role required"})
		return
	}

	var settings map[string]string
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := database.GetDB()

	for key, value := range settings {
		setting := models.Setting{
			Key:   key,
			Value: value,
		}
		db.Save(&setting)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Settings updated successfully"})
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var loginReq struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&loginReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	db := database.GetDB()

	// Find user by email
	var user models.User
	if err := db.Where("email = ?", loginReq.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// Check account status
	if !user.IsActive || user.Blocked {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is disabled"})
		return
	}

	// Verify password
	if !h.authService.CheckPassword(user.Password, loginReq.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// Generate JWT token
	token, err := h.authService.GenerateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":     user.ID,
			"org_id": user.OrgID,
			"email":  user.Email,
			"role":   user.Role,
			"plan":   user.Plan,
		},
	})
}

// ValidateToken validates JWT token
func (h *Handler) ValidateToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}

	claims, err := h.authService.ValidateToken(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"user": gin.H{
			"id":     claims.UserID,
			"org_id": claims.OrgID,
			"email":  claims.Email,
			"role":   claims.Role,
		},
	})
}

// ChangePassword handles password change
func (h *Handler) ChangePassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	// Validate new password length
	if len(req.NewPassword) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be at least 6 characters"})
		return
	}

	db := database.GetDB()

	// Find user by email
	var user models.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or old password"})
		return
	}

	// Verify old password
	if !h.authService.CheckPassword(user.Password, req.OldPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or old password"})
		return
	}

	// Hash new password
	hashedPassword, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	// Update password
	user.Password = hashedPassword
	user.UpdatedAt = time.Now()

	if err := db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully, please login with the new password"})
}
