package main

import (
	"strconv"
	"strings"
	"time"

	"site-monitor/internal/api"
	"site-monitor/internal/config"
	"site-monitor/internal/database"
	"site-monitor/internal/logger"
	"site-monitor/internal/models"
	"site-monitor/internal/scheduler"
	"site-monitor/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// loadSettingsFromDB loads settings from database and overrides config
func loadSettingsFromDB(cfg *config.Config, log *zap.Logger) {
	db := database.GetDB()
	if db == nil {
		return
	}

	var settings []models.Setting
	if err := db.Find(&settings).Error; err != nil {
		log.Warn("failed to load settings from database", zap.Error(err))
		return
	}

	// Convert settings array to map
	settingsMap := make(map[string]string)
	for _, s := range settings {
		settingsMap[s.Key] = s.Value
	}

	// Override monitor settings
	if val, ok := settingsMap["monitor.check_interval"]; ok && val != "" {
		cfg.Monitor.CheckInterval = val
	}
	if val, ok := settingsMap["monitor.cooldown_minutes"]; ok && val != "" {
		if minutes, err := strconv.Atoi(val); err == nil && minutes > 0 {
			cfg.Monitor.CooldownMinutes = minutes
		}
	}
	if val, ok := settingsMap["monitor.max_checks_per_run"]; ok && val != "" {
		if max, err := strconv.Atoi(val); err == nil && max > 0 {
			cfg.Monitor.MaxChecksPerRun = max
		}
	}

	// Override email settings
	if val, ok := settingsMap["email.enabled"]; ok {
		cfg.Notifications.Email.Enabled = val == "true"
	}
	if val, ok := settingsMap["email.smtp_host"]; ok {
		cfg.Notifications.Email.SMTPHost = val
	}
	if val, ok := settingsMap["email.smtp_port"]; ok {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Notifications.Email.SMTPPort = port
		}
	}
	if val, ok := settingsMap["email.from"]; ok {
		cfg.Notifications.Email.From = val
	}
	if val, ok := settingsMap["email.password"]; ok {
		cfg.Notifications.Email.Password = val
	}
	if val, ok := settingsMap["email.admin_to"]; ok && val != "" {
		cfg.Notifications.Email.AdminTo = strings.Split(val, ",")
	}

	// Override webhook settings
	if val, ok := settingsMap["webhook.enabled"]; ok {
		cfg.Notifications.Webhook.Enabled = val == "true"
	}
	if val, ok := settingsMap["webhook.url"]; ok {
		cfg.Notifications.Webhook.URL = val
	}

	// Override telegram settings
	if val, ok := settingsMap["telegram.enabled"]; ok {
		cfg.Notifications.Telegram.Enabled = val == "true"
	}
	if val, ok := settingsMap["telegram.bot_token"]; ok {
		cfg.Notifications.Telegram.BotToken = val
	}
	if val, ok := settingsMap["telegram.chat_id"]; ok {
		cfg.Notifications.Telegram.ChatID = val
	}

	log.Info("settings loaded from database and applied to configuration")
}

// seedDefaultAccount creates a default organization and owner account on
// first start
func seedDefaultAccount(authService *services.AuthService, log *zap.Logger) {
	db := database.GetDB()

	var existingUser models.User
	if err := db.Where("email = ?", "admin@example.com").First(&existingUser).Error; err == nil {
		return
	}

	org := models.Organization{
		Name:         "Default Organization",
		NotifyPolicy: models.NotifyOwner,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&org).Error; err != nil {
		log.Error("failed to create default organization", zap.Error(err))
		return
	}

	hashedPassword, err := authService.HashPassword("admin123")
	if err != nil {
		log.Error("failed to hash default owner password", zap.Error(err))
		return
	}

	trialEnd := time.Now().AddDate(0, 0, 14)
	owner := models.User{
		OrgID:       org.ID,
		Email:       "admin@example.com",
		Password:    hashedPassword,
		Role:        models.RoleOwner,
		Plan:        models.PlanStandard,
		TrialEndsAt: &trialEnd,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := db.Create(&owner).Error; err != nil {
		log.Error("failed to create default owner account", zap.Error(err))
		return
	}

	log.Info("default owner account created (email: admin@example.com, password: admin123)")
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.NewLogger(cfg.Server.Mode)
	defer log.Sync()

	// Initialize database
	if err := database.InitDB(&cfg.Database); err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	log.Info("database initialized")

	// Load settings from database and override config
	loadSettingsFromDB(cfg, log)

	// Parse probe timeout
	probeTimeout, err := time.ParseDuration(cfg.Monitor.ProbeTimeout)
	if err != nil {
		probeTimeout = 15 * time.Second
	}

	// Initialize services
	checker := services.NewCheckerService(probeTimeout)
	notifyService := services.NewNotifyService(&cfg.Notifications, log)
	monitorService := services.NewMonitorService(
		checker,
		notifyService,
		log,
		time.Duration(cfg.Monitor.MinIntervalMinutes)*time.Minute,
		cfg.Monitor.MaxChecksPerRun,
		time.Duration(cfg.Monitor.CooldownMinutes)*time.Minute,
	)
	scoreService := services.NewScoreService(cfg.Scoring)
	reportService := services.NewReportService(scoreService, notifyService, log, cfg.Scoring.WindowDays)
	authService := services.NewAuthService(cfg.Auth.JWTSecret)

	// Initialize default account
	seedDefaultAccount(authService, log)

	// Initialize scheduler
	sched := scheduler.NewScheduler(monitorService, reportService, log)
	if err := sched.Start(cfg.Monitor.CheckInterval, cfg.Reports.DailySchedule, cfg.Reports.MonthlySchedule); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Setup Gin
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// Enable CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Cron-Secret")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Setup API routes
	handler := api.NewHandler(monitorService, reportService, authService)
	api.SetupRoutes(r, handler, cfg.Reports.CronSecret)

	// Start server
	addr := ":" + cfg.Server.Port
	log.Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
