package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/hellolink/internal/observability/logger"
)

// SMTPConfig del MailSink.
type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	To                 string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
	// MinLevel filtra avisos de menor nivel. Default LevelSuccess (todos).
	MinLevel Level
}

// MailSink manda cada aviso por email (auditoría de altas y vínculos).
type MailSink struct {
	cfg  SMTPConfig
	send func(*mail.Message) error
}

// NewMailSink crea el sink. Falla si falta host, from o to.
func NewMailSink(cfg SMTPConfig) (*MailSink, error) {
	if cfg.Host == "" || cfg.From == "" || cfg.To == "" {
		return nil, fmt.Errorf("notify: smtp host, from and to are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	s := &MailSink{cfg: cfg}
	s.send = s.dialAndSend
	return s, nil
}

func (s *MailSink) Notify(ctx context.Context, n Notice) {
	if n.Level < s.cfg.MinLevel {
		return
	}
	log := logger.From(ctx).With(
		logger.Component("notify.mail"),
		logger.String("host", s.cfg.Host),
		logger.Int("port", s.cfg.Port),
	)

	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Subject", fmt.Sprintf("[hellolink] %s", n.Title))
	m.SetBody("text/plain", n.Message)

	if err := s.send(m); err != nil {
		log.Error("smtp send failed", logger.Err(err))
		return
	}
	log.Debug("notice mailed", logger.String("level", n.Level.String()))
}

func (s *MailSink) dialAndSend(m *mail.Message) error {
	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify, // solo dev
	}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.cfg.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si el server lo ofrece
	}
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
