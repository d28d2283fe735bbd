// Package nats публикует alert'ы в поток JetStream, откуда их читают
// береговая служба и консоль вахты.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/pkg/logger"
	"github.com/nats-io/nats.go"
)

// StreamName поток JetStream для alert'ов всех судов
const StreamName = "VESSEL_ALERTS"

type Config struct {
	URL           string
	SubjectPrefix string
	AckTimeout    time.Duration
	// MaxAge хранение сообщений в потоке
	MaxAge time.Duration
	// DuplicateWindow окно дедупликации по Nats-Msg-Id
	DuplicateWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "vessel"
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 3 * time.Second
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7 * 24 * time.Hour
	}
	if c.DuplicateWindow <= 0 {
		c.DuplicateWindow = 2 * time.Minute
	}
	return c
}

// AlertBroker публикует alert'ы в JetStream.
// Сообщения с AwaitAck ждут подтверждения потока, остальные уходят асинхронно.
type AlertBroker struct {
	nc         *nats.Conn
	js         nats.JetStreamContext
	ackTimeout time.Duration
	logger     *logger.Logger
}

var _ port.AlertBroker = (*AlertBroker)(nil)

// Connect подключается к NATS и создает (или расширяет) поток alert'ов
func Connect(cfg Config, log *logger.Logger) (*AlertBroker, error) {
	cfg = cfg.withDefaults()

	nc, err := nats.Connect(cfg.URL,
		nats.Name("vessel-guard"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(nats.PublishAsyncErrHandler(func(_ nats.JetStream, msg *nats.Msg, err error) {
		log.Warn("NATS async publish not acknowledged", "subject", msg.Subject, "error", err.Error())
	}))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if err := ensureStream(js, streamConfig(cfg)); err != nil {
		nc.Close()
		return nil, err
	}

	log.Info("Connected to NATS", "url", cfg.URL, "stream", StreamName)
	return &AlertBroker{nc: nc, js: js, ackTimeout: cfg.AckTimeout, logger: log}, nil
}

func streamConfig(cfg Config) *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{cfg.SubjectPrefix + ".alerts.>"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     cfg.MaxAge,
		Duplicates: cfg.DuplicateWindow,
		Storage:    nats.FileStorage,
	}
}

// ensureStream создает поток; у существующего добавляет недостающий subject
func ensureStream(js nats.JetStreamManager, want *nats.StreamConfig) error {
	info, err := js.StreamInfo(want.Name)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, err := js.AddStream(want); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", want.Name, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up stream %s: %w", want.Name, err)
	}

	current := info.Config
	missing := false
	for _, subject := range want.Subjects {
		if !slices.Contains(current.Subjects, subject) {
			current.Subjects = append(current.Subjects, subject)
			missing = true
		}
	}
	if !missing {
		return nil
	}
	if _, err := js.UpdateStream(&current); err != nil {
		return fmt.Errorf("failed to extend stream %s subjects: %w", want.Name, err)
	}
	return nil
}

// encodeMessage переводит BrokerMessage в сообщение NATS с заголовками
func encodeMessage(msg port.BrokerMessage) (*nats.Msg, error) {
	if msg.Subject == "" {
		return nil, errors.New("subject is required")
	}
	data, err := json.Marshal(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alert: %w", err)
	}

	out := nats.NewMsg(msg.Subject)
	out.Data = data
	out.Header.Set("Content-Type", "application/json")
	for key, value := range msg.Headers {
		out.Header.Set(key, value)
	}
	if msg.ID != "" {
		out.Header.Set(nats.MsgIdHdr, msg.ID)
	}
	return out, nil
}

func (b *AlertBroker) Publish(ctx context.Context, msg port.BrokerMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := encodeMessage(msg)
	if err != nil {
		return err
	}

	if !msg.AwaitAck {
		if _, err := b.js.PublishMsgAsync(out); err != nil {
			return fmt.Errorf("failed to publish %s: %w", msg.Subject, err)
		}
		b.logger.Debug("Alert queued to NATS", "subject", msg.Subject, "size", len(out.Data))
		return nil
	}

	ackCtx, cancel := context.WithTimeout(ctx, b.ackTimeout)
	defer cancel()
	ack, err := b.js.PublishMsg(out, nats.Context(ackCtx))
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Subject, err)
	}
	b.logger.Debug("Alert stored in NATS",
		"subject", msg.Subject,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
		"duplicate", ack.Duplicate)
	return nil
}

// Close дожидается подтверждений асинхронных публикаций и закрывает соединение
func (b *AlertBroker) Close() error {
	if b.nc == nil {
		return nil
	}
	select {
	case <-b.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		b.logger.Warn("NATS pending acks not confirmed before close", "pending", b.js.PublishAsyncPending())
	}
	return b.nc.Drain()
}
