package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// QueueMailer publishes messages to a durable AMQP queue. A separate worker
// (RunQueueWorker) drains the queue and performs the actual delivery.
type QueueMailer struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewQueueMailer(url, queue string) (*QueueMailer, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("amqp url is required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("email queue is required")
	}
	return &QueueMailer{url: url, queue: queue}, nil
}

func (m *QueueMailer) Send(ctx context.Context, msg Message) error {
	pub, err := encodeMessage(msg)
	if err != nil {
		return err
	}

	ch, err := m.channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := declareQueue(ch, m.queue); err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		m.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close closes the shared broker connection.
func (m *QueueMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || m.conn.IsClosed() {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}

// channel opens a channel on the shared connection, dialing again when the
// previous connection was closed by the broker.
func (m *QueueMailer) channel() (*amqp.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || m.conn.IsClosed() {
		conn, err := amqp.Dial(m.url)
		if err != nil {
			return nil, fmt.Errorf("amqp dial: %w", err)
		}
		m.conn = conn
	}
	ch, err := m.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	return ch, nil
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("amqp queue declare: %w", err)
	}
	return q, nil
}

func encodeMessage(msg Message) (amqp.Publishing, error) {
	if err := msg.Validate(); err != nil {
		return amqp.Publishing{}, err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal email: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

func decodeMessage(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal email: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// deliver sends one queued message. Malformed payloads are reported as
// permanent so they are dropped instead of requeued.
func deliver(ctx context.Context, body []byte, mailer Mailer) (requeue bool, err error) {
	msg, err := decodeMessage(body)
	if err != nil {
		return false, err
	}
	if err := mailer.Send(ctx, msg); err != nil {
		return true, err
	}
	return false, nil
}

// RunQueueWorker consumes the email queue and hands each message to mailer
// until ctx is cancelled. Broker failures trigger a reconnect with backoff.
func RunQueueWorker(ctx context.Context, url, queue string, mailer Mailer) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logrus.WithError(err).WithField("retry_in", backoff.String()).Warn("email worker: dial failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consume(ctx, conn, queue, mailer)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		logrus.WithError(err).Warn("email worker: consume loop ended, reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func consume(ctx context.Context, conn *amqp.Connection, queue string, mailer Mailer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		logrus.WithError(err).Warn("email worker: set QoS failed")
	}
	if _, err := declareQueue(ch, queue); err != nil {
		return err
	}
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			requeue, err := deliver(ctx, d.Body, mailer)
			if err != nil {
				logrus.WithError(err).WithField("requeue", requeue).Error("email worker: delivery failed")
				_ = d.Nack(false, requeue)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
