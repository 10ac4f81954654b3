package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Reports       ReportsConfig       `yaml:"reports"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug/release
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Type     string `yaml:"type"` // sqlite/mysql/postgres
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// MonitorConfig represents check-pass configuration
type MonitorConfig struct {
	CheckInterval      string `yaml:"check_interval"`       // Cron expression for the check pass
	ProbeTimeout       string `yaml:"probe_timeout"`        // Per-check HTTP timeout (duration string)
	MinIntervalMinutes int    `yaml:"min_interval_minutes"` // Floor applied to per-monitor intervals
	MaxChecksPerRun    int    `yaml:"max_checks_per_run"`   // Batch cap per pass
	CooldownMinutes    int    `yaml:"cooldown_minutes"`     // Minimum gap between repeated down alerts
}

// ScoringConfig holds the product-defined reliability scoring constants
type ScoringConfig struct {
	WindowDays          int     `yaml:"window_days"`
	PointsPerIncident   float64 `yaml:"points_per_incident"`
	IncidentPenaltyCap  float64 `yaml:"incident_penalty_cap"`
	SlowThresholdMs     float64 `yaml:"slow_threshold_ms"`
	VerySlowThresholdMs float64 `yaml:"very_slow_threshold_ms"`
	SlowPenaltyMax      float64 `yaml:"slow_penalty_max"`
}

// ReportsConfig represents periodic report configuration
type ReportsConfig struct {
	DailySchedule   string `yaml:"daily_schedule"`   // Cron expression for the daily digest
	MonthlySchedule string `yaml:"monthly_schedule"` // Cron expression for the monthly report
	CronSecret      string `yaml:"cron_secret"`      // Shared secret for external report triggers
}

// NotificationsConfig represents notification configuration
type NotificationsConfig struct {
	Email    EmailConfig    `yaml:"email"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// EmailConfig represents email notification configuration
type EmailConfig struct {
	Enabled  bool     `yaml:"enabled"`
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	From     string   `yaml:"from"`
	Password string   `yaml:"password"`
	AdminTo  []string `yaml:"admin_to"` // Always-notified addresses in addition to resolved recipients
}

// WebhookConfig represents webhook notification configuration
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// TelegramConfig represents Telegram notification configuration
type TelegramConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token"`
	ChatID    string `yaml:"chat_id"`
	ProxyAddr string `yaml:"proxy_addr"` // Optional SOCKS5 proxy address, empty for direct
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	overrideFromEnv(&config)

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Monitor.CheckInterval == "" {
		c.Monitor.CheckInterval = "* * * * *"
	}
	if c.Monitor.ProbeTimeout == "" {
		c.Monitor.ProbeTimeout = "15s"
	}
	if c.Monitor.MinIntervalMinutes <= 0 {
		c.Monitor.MinIntervalMinutes = 5
	}
	if c.Monitor.MaxChecksPerRun <= 0 {
		c.Monitor.MaxChecksPerRun = 200
	}
	if c.Monitor.CooldownMinutes <= 0 {
		c.Monitor.CooldownMinutes = 180
	}
	if c.Scoring.WindowDays <= 0 {
		c.Scoring.WindowDays = 30
	}
	if c.Scoring.PointsPerIncident <= 0 {
		c.Scoring.PointsPerIncident = 1.5
	}
	if c.Scoring.IncidentPenaltyCap <= 0 {
		c.Scoring.IncidentPenaltyCap = 25
	}
	if c.Scoring.SlowThresholdMs <= 0 {
		c.Scoring.SlowThresholdMs = 1200
	}
	if c.Scoring.VerySlowThresholdMs <= 0 {
		c.Scoring.VerySlowThresholdMs = 3200
	}
	if c.Scoring.SlowPenaltyMax <= 0 {
		c.Scoring.SlowPenaltyMax = 15
	}
	if c.Reports.DailySchedule == "" {
		c.Reports.DailySchedule = "0 8 * * *"
	}
	if c.Reports.MonthlySchedule == "" {
		c.Reports.MonthlySchedule = "0 9 1 * *"
	}
}

// overrideFromEnv applies environment variable overrides for secrets and
// connection material
func overrideFromEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Database.Port = p
		}
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if secret := os.Getenv("CRON_SECRET"); secret != "" {
		cfg.Reports.CronSecret = secret
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		cfg.Notifications.Email.Password = password
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Notifications.Telegram.BotToken = token
	}
}
