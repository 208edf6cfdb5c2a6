package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const EventBookingCreated = "booking_created"

// BookingEvent is published after a booking aggregate has been stored.
type BookingEvent struct {
	Type        string    `json:"type"`
	EventID     string    `json:"event_id"`
	BookingID   int64     `json:"booking_id"`
	BookingCode string    `json:"booking_code"`
	ReferenceNo string    `json:"reference_no"`
	Airline     string    `json:"airline"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartDate  string    `json:"depart_date"`
	Username    string    `json:"username"`
	Status      string    `json:"status"`
	TimeLimit   string    `json:"time_limit"`
	TotalPrice  float64   `json:"total_price"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewBookingEvent stamps a fresh event id.
func NewBookingEvent(eventType string, at time.Time) BookingEvent {
	return BookingEvent{Type: eventType, EventID: uuid.NewString(), OccurredAt: at}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	brokers []string
	writer  messageWriter
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	log.Debug().Str("topic", topic).Str("key", key).Int("bytes", len(data)).Msg("published event")
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and reads its partition list.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	log.Info().Str("broker", p.brokers[0]).Int("partitions", len(partitions)).Msg("connected to kafka")
	return nil
}
