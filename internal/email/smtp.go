package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AdminTo  string
}

type smtpNotifier struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPNotifier(cfg SMTPConfig) Notifier {
	return &smtpNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (n *smtpNotifier) NotifyBalanceExhausted(_ context.Context, balanceKind, holderName string) error {
	var subject, body string
	switch balanceKind {
	case "package":
		subject = "Saldo de pacote esgotado"
		body = fmt.Sprintf("O cliente %q ficou sem saldo de pacote de sessões.", holderName)
	case "advance":
		subject = "Saldo de antecipados esgotado"
		body = fmt.Sprintf("O profissional %q ficou sem saldo de antecipados.", holderName)
	default:
		subject = "Saldo esgotado"
		body = fmt.Sprintf("%q ficou sem saldo (%s).", holderName, balanceKind)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.AdminTo)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send balance notification: %w", err)
	}
	return nil
}
