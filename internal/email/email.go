// Package email 负责对外发送邮件，支持 SMTP 直连、AMQP 发件箱以及仅日志三种方式。
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"accounts/internal/config"

	"github.com/sirupsen/logrus"
)

const (
	TransportSMTP = "smtp"
	TransportAMQP = "amqp"
	TransportLog  = "log"
)

// ResetSubject is the subject line of the password reset email.
const ResetSubject = "Your password reset token (valid for 10 min)"

// Message is a plain text email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Validate checks the fields every transport needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("email recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("email subject is required")
	}
	return nil
}

// Mailer delivers a message or reports why it could not.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// PasswordResetMessage renders the email carrying the reset URL.
func PasswordResetMessage(to, resetURL string) Message {
	return Message{
		To:      to,
		Subject: ResetSubject,
		Text: fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s.\n"+
			"If you didn't forget your password, please ignore this email!", resetURL),
	}
}

// NewMailer 根据 EMAIL_TRANSPORT 创建发送器
func NewMailer(cfg config.Config) (Mailer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.EmailTransport)) {
	case TransportSMTP, "":
		return NewSMTPMailer(SMTPConfig{
			Host:     cfg.EmailHost,
			Port:     cfg.EmailPort,
			Username: cfg.EmailUsername,
			Password: cfg.EmailPassword,
			From:     cfg.EmailFrom,
		})
	case TransportAMQP:
		return NewQueueMailer(cfg.AMQPURL, cfg.EmailQueue)
	case TransportLog:
		return NewLogMailer(logrus.StandardLogger()), nil
	default:
		return nil, fmt.Errorf("unsupported email transport: %s", cfg.EmailTransport)
	}
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger logrus.FieldLogger
}

func NewLogMailer(logger logrus.FieldLogger) *LogMailer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(msg.Text)
	return nil
}
