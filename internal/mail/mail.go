// Package mail delivers authenticator codes out of band.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"identity/internal/domain"
)

type Config struct {
	Addr     string // host:port
	User     string
	Password string
	From     string
}

// SMTPSender sends plain-text mails through one SMTP relay.
type SMTPSender struct {
	cfg  Config
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg Config) *SMTPSender {
	var auth smtp.Auth
	if cfg.User != "" {
		host := cfg.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, host)
	}
	return &SMTPSender{cfg: cfg, auth: auth, send: smtp.SendMail}
}

func (s *SMTPSender) SendAuthenticatorCode(ctx context.Context, to, code string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := buildMessage(s.cfg.From, to, code, expiresAt)
	if err := s.send(s.cfg.Addr, s.auth, s.cfg.From, []string{to}, msg); err != nil {
		return &domain.Error{Kind: domain.KindTransient, Msg: "smtp send", Err: err}
	}
	return nil
}

func buildMessage(from, to, code string, expiresAt time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Your verification code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Your verification code is %s.\r\n", code)
	fmt.Fprintf(&b, "It expires at %s.\r\n", expiresAt.UTC().Format(time.RFC1123))
	return []byte(b.String())
}

// Disabled is used when no relay is configured; every delivery fails.
type Disabled struct{}

func (Disabled) SendAuthenticatorCode(context.Context, string, string, time.Time) error {
	return domain.ErrDeliveryFailed
}
