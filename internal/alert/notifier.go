package alert

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/ignite/send-governor/internal/domain"
)

// SMTPNotifier emails alerts to operators over plain SMTP.
type SMTPNotifier struct {
	host string
	port int
	from string
	to   []string
}

// SMTPConfig holds SMTP notifier configuration.
type SMTPConfig struct {
	Host string   `yaml:"host"`
	Port int      `yaml:"port"`
	From string   `yaml:"from"`
	To   []string `yaml:"to"`
}

// NewSMTPNotifier creates an email notifier.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{host: cfg.Host, port: cfg.Port, from: cfg.From, to: cfg.To}
}

// Notify sends the alert as a plain-text email.
func (n *SMTPNotifier) Notify(_ context.Context, a domain.Alert) error {
	subject, body := formatAlert(a)

	if n.host == "" || len(n.to) == 0 {
		log.Printf("[alert] would send: %s", subject)
		return nil
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		n.from, strings.Join(n.to, ","), subject, body)

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	if err := smtp.SendMail(addr, nil, n.from, n.to, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func formatAlert(a domain.Alert) (subject, body string) {
	subject = fmt.Sprintf("[%s] %s for account %s", strings.ToUpper(string(a.Level)), a.Threshold, a.AccountID)
	body = fmt.Sprintf(`Send Governor Alert
===================

Account:   %s
Level:     %s
Threshold: %s
Window:    %s
Time:      %s

%s

---
This is an automated alert from the send admission engine.
`,
		a.AccountID,
		a.Level,
		a.Threshold,
		a.WindowKey,
		a.CreatedAt.Format(time.RFC3339),
		a.Message,
	)
	return subject, body
}
