package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"github.com/jobdeck/jobdeck/api/internal/model"
)

// SMTPConfig holds delivery transport settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// SendTimeout bounds a single delivery so one slow send cannot
	// starve the worker pool.
	SendTimeout time.Duration

	// RatePerSec and Burst feed the token-bucket limiter in front of
	// the SMTP server. Zero RatePerSec disables limiting.
	RatePerSec float64
	Burst      int
}

// SMTPTransport delivers notifications over SMTP. It is stateless per
// send and safe for concurrent use from multiple workers.
type SMTPTransport struct {
	dialer  *gomail.Dialer
	from    string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewSMTPTransport creates an SMTP transport
func NewSMTPTransport(cfg SMTPConfig, logger *slog.Logger) *SMTPTransport {
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &SMTPTransport{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		timeout: cfg.SendTimeout,
		logger:  logger,
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return t
}

// Send delivers one message. Failures are classified as transient: the
// dispatcher must not interpret SMTP-specific codes, and a terminal
// recipient is already filtered out before the transport is reached.
func (t *SMTPTransport) Send(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" {
		return fmt.Errorf("%w: empty recipient", model.ErrTerminalRecipient)
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %v", model.ErrTransientDelivery, err)
		}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", t.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	// gomail has no context support, so the send runs in its own
	// goroutine bounded by the configured timeout.
	done := make(chan error, 1)
	go func() {
		done <- t.dialer.DialAndSend(m)
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: smtp send: %v", model.ErrTransientDelivery, err)
		}
		t.logger.Debug("mail sent", slog.String("to", maskAddress(recipient)))
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: smtp send timed out after %v", model.ErrTransientDelivery, t.timeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", model.ErrTransientDelivery, ctx.Err())
	}
}

// LogTransport logs instead of sending. Used when SMTP is disabled,
// mirroring disabled push delivery in development environments.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a transport that only logs
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Send logs the would-be delivery and succeeds
func (t *LogTransport) Send(_ context.Context, recipient, subject, _ string) error {
	if recipient == "" {
		return fmt.Errorf("%w: empty recipient", model.ErrTerminalRecipient)
	}
	t.logger.Info("would send mail",
		slog.String("to", maskAddress(recipient)),
		slog.String("subject", subject),
	)
	return nil
}

// maskAddress masks a recipient address for logging
func maskAddress(addr string) string {
	if len(addr) <= 8 {
		return "***"
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
