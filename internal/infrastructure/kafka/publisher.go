package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"ratehub/internal/application"
	"ratehub/internal/domain"
)

const EventRatesUpdated = "rates.updated"

var _ application.UpdateNotifier = (*Publisher)(nil)

// RatesUpdatedEvent is published after every saved snapshot.
type RatesUpdatedEvent struct {
	Type        string          `json:"type"`
	LastRefresh time.Time       `json:"last_refresh"`
	Pairs       []EventPairRate `json:"pairs"`
}

type EventPairRate struct {
	Pair   string  `json:"pair"`
	Rate   float64 `json:"rate"`
	Source string  `json:"source"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	log     *zap.Logger
}

func NewPublisher(brokers []string, topic string, log *zap.Logger) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}, log)
}

func newPublisher(w messageWriter, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{writer: w, timeout: 5 * time.Second, log: log}
}

func (p *Publisher) NotifyUpdated(ctx context.Context, snap domain.RatesSnapshot) error {
	ev := RatesUpdatedEvent{Type: EventRatesUpdated, LastRefresh: snap.LastRefresh, Pairs: make([]EventPairRate, 0, len(snap.Pairs))}
	for k, pr := range snap.Pairs {
		ev.Pairs = append(ev.Pairs, EventPairRate{Pair: string(k), Rate: pr.Rate, Source: pr.Source})
	}
	sort.Slice(ev.Pairs, func(i, j int) bool { return ev.Pairs[i].Pair < ev.Pairs[j].Pair })

	v, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: encode event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	msg := kafka.Message{Key: []byte(EventRatesUpdated), Value: v, Time: snap.LastRefresh}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: publish %s: %w", EventRatesUpdated, err)
	}
	p.log.Info("kafka.published", zap.String("event", EventRatesUpdated), zap.Int("pairs", len(ev.Pairs)))
	return nil
}

func (p *Publisher) Close() error { return p.writer.Close() }
