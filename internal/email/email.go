package email

import (
	"fmt"

	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"

	apperrors "github.com/omsorg/care-api/pkg/errors"
	"github.com/omsorg/care-api/pkg/logger"
)

// Service sends operational mail: missed-dose alerts and daily reports.
// Returns a provider message id for on-demand sends.
type Service interface {
	Send(to []string, subject, htmlBody string) (string, error)
}

type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewSMTPService(cfg Config, logger *logger.Logger) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (s *smtpService) Send(to []string, subject, htmlBody string) (string, error) {
	if len(to) == 0 {
		return "", apperrors.BadRequest("no recipients", nil)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", apperrors.Upstream("email provider", err)
	}

	id := uuid.NewString()
	s.logger.Info("email sent", "email_id", id, "recipients", fmt.Sprintf("%d", len(to)))
	return id, nil
}
