package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"site-monitor/internal/config"
	"site-monitor/internal/database"
	"site-monitor/internal/metrics"
	"site-monitor/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/proxy"
)

// Message is one notification to be delivered: a resolved recipient list,
// subject and both plain-text and HTML bodies.
type Message struct {
	OrgID     uint
	MonitorID uint // 0 for digest/report notifications
	Subject   string
	Text      string
	HTML      string
	To        []string
}

// Notifier interface for different notification channels
type Notifier interface {
	Name() string
	Send(msg *Message) error
}

// NotifyService fans a message out to all enabled channels
type NotifyService struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewNotifyService creates a new notification service
func NewNotifyService(cfg *config.NotificationsConfig, logger *zap.Logger) *NotifyService {
	service := &NotifyService{
		notifiers: make([]Notifier, 0),
		logger:    logger,
	}

	// Add enabled notifiers
	if cfg.Email.Enabled {
		service.notifiers = append(service.notifiers, NewEmailNotifier(&cfg.Email))
	}

	if cfg.Webhook.Enabled {
		service.notifiers = append(service.notifiers, NewWebhookNotifier(&cfg.Webhook))
	}

	if cfg.Telegram.Enabled {
		service.notifiers = append(service.notifiers, NewTelegramNotifier(&cfg.Telegram))
	}

	return service
}

// Send delivers a message through all enabled channels. Per-channel failures
// are logged and recorded; an error is returned only if every channel failed.
func (s *NotifyService) Send(msg *Message) error {
	var lastErr error
	successCount := 0

	for _, notifier := range s.notifiers {
		if err := notifier.Send(msg); err != nil {
			s.logger.Error("notification failed",
				zap.String("channel", notifier.Name()),
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			metrics.NotifyFailures.WithLabelValues(notifier.Name()).Inc()
			lastErr = err
			s.recordNotification(msg, notifier, "failed")
			continue
		}

		s.recordNotification(msg, notifier, "success")
		successCount++
	}

	if successCount > 0 && lastErr != nil {
		// At least one channel succeeded, don't return error
		return nil
	}

	return lastErr
}

// recordNotification records a delivery attempt in the database
func (s *NotifyService) recordNotification(msg *Message, notifier Notifier, status string) {
	db := database.GetDB()
	if db == nil {
		return
	}

	notification := &models.Notification{
		OrgID:     msg.OrgID,
		MonitorID: msg.MonitorID,
		Type:      notifier.Name(),
		Subject:   msg.Subject,
		Status:    status,
		SentAt:    time.Now(),
	}

	db.Create(notification)
}

// EmailNotifier sends email notifications over SMTP
type EmailNotifier struct {
	config *config.EmailConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

// Send sends the message to its recipient list plus the configured
// always-notified addresses
func (e *EmailNotifier) Send(msg *Message) error {
	to := append([]string{}, msg.To...)
	to = append(to, e.config.AdminTo...)
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	body := msg.Text
	contentType := "text/plain; charset=UTF-8"
	if msg.HTML != "" {
		body = msg.HTML
		contentType = "text/html; charset=UTF-8"
	}

	// Build email message
	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	message += fmt.Sprintf("Subject: %s\r\n", msg.Subject)
	message += fmt.Sprintf("Content-Type: %s\r\n", contentType)
	message += "\r\n"
	message += body

	// SMTP authentication
	auth := smtp.PlainAuth("", e.config.From, e.config.Password, e.config.SMTPHost)

	addr := fmt.Sprintf("%s:%d", e.config.SMTPHost, e.config.SMTPPort)
	if err := smtp.SendMail(addr, auth, e.config.From, to, []byte(message)); err != nil {
		// Some SMTP providers return "short response" after the mail has
		// already been accepted. Ignore that specific error.
		if !strings.Contains(err.Error(), "short response") {
			return fmt.Errorf("failed to send email: %w", err)
		}
	}

	return nil
}

func (e *EmailNotifier) Name() string { return "email" }

// WebhookNotifier sends webhook notifications
type WebhookNotifier struct {
	config *config.WebhookConfig
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg *config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{config: cfg}
}

// Send posts the message as JSON
func (w *WebhookNotifier) Send(msg *Message) error {
	payload := map[string]interface{}{
		"org_id":     msg.OrgID,
		"monitor_id": msg.MonitorID,
		"subject":    msg.Subject,
		"text":       msg.Text,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(w.config.URL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func (w *WebhookNotifier) Name() string { return "webhook" }

// TelegramNotifier sends Telegram notifications
type TelegramNotifier struct {
	config *config.TelegramConfig
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(cfg *config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{config: cfg}
}

// Send sends the message text to the configured chat
func (t *TelegramNotifier) Send(msg *Message) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.config.BotToken)

	payload := map[string]interface{}{
		"chat_id": t.config.ChatID,
		"text":    msg.Subject + "\n\n" + msg.Text,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	// Optional SOCKS5 proxy for networks where the Telegram API is blocked
	if t.config.ProxyAddr != "" {
		dialer, err := proxy.SOCKS5("tcp", t.config.ProxyAddr, nil, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
	}

	resp, err := client.Post(apiURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

func (t *TelegramNotifier) Name() string { return "telegram" }
