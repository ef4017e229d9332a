package main

import (
	"accounts/internal/config"
	"accounts/internal/email"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// mailer 消费 EMAIL_QUEUE 中的邮件并通过 SMTP 投递。
// EMAIL_TRANSPORT=log 时只写日志，便于本地调试。
func main() {
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		os.Exit(1)
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	var mailer email.Mailer
	if cfg.EmailTransport == email.TransportLog {
		mailer = email.NewLogMailer(logrus.StandardLogger())
	} else {
		smtp, err := email.NewSMTPMailer(email.SMTPConfig{
			Host:     cfg.EmailHost,
			Port:     cfg.EmailPort,
			Username: cfg.EmailUsername,
			Password: cfg.EmailPassword,
			From:     cfg.EmailFrom,
		})
		if err != nil {
			logrus.WithError(err).Error("failed to initialise smtp mailer")
			os.Exit(1)
		}
		mailer = smtp
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.WithField("queue", cfg.EmailQueue).Info("mail worker started")
	if err := email.RunQueueWorker(ctx, cfg.AMQPURL, cfg.EmailQueue, mailer); err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).Error("mail worker stopped")
		os.Exit(1)
	}
	logrus.Info("mail worker stopped")
}
