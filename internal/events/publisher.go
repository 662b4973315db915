// Package events publishes committed ledger events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

const publishTimeout = 10 * time.Second

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter returns a writer that hashes message keys onto partitions, so
// events of one user stay ordered.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

type Publisher struct {
	writer MessageWriter
	log    *zap.Logger
}

func NewPublisher(w MessageWriter, log *zap.Logger) *Publisher {
	return &Publisher{writer: w, log: log}
}

// Envelope is the message value written for every event.
type Envelope struct {
	Kind         ledger.EventKind     `json:"kind"`
	At           time.Time            `json:"at"`
	UserID       string               `json:"user_id"`
	Transactions []ledger.Transaction `json:"transactions,omitempty"`
	Document     *ledger.KYCDocument  `json:"document,omitempty"`
}

// Observe implements ledger.Observer.
func (p *Publisher) Observe(ctx context.Context, e ledger.Event) error {
	value, err := json.Marshal(Envelope{
		Kind:         e.Kind,
		At:           e.At,
		UserID:       e.UserID,
		Transactions: e.Transactions,
		Document:     e.Document,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(e.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(e.Kind)},
		},
		Time: e.At,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish ledger event to Kafka",
			zap.String("kind", string(e.Kind)),
			zap.String("user_id", e.UserID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
