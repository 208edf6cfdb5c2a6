package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/airbroker/internal/kafka"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender turns booking events into notifications. Delivery is a log line;
// there is no mail relay in this deployment.
type Sender struct {
	logger zerolog.Logger
}

func NewSender() *Sender {
	return &Sender{logger: log.With().Str("component", "email").Logger()}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	msg, err := Compose(event)
	if err != nil {
		return err
	}
	s.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("event_id", event.EventID).
		Msg(msg.Body)
	return nil
}

// Compose builds the notification for an event.
func Compose(event kafka.BookingEvent) (Message, error) {
	if strings.TrimSpace(event.Username) == "" {
		return Message{}, fmt.Errorf("event %s has no recipient", event.EventID)
	}

	switch event.Type {
	case kafka.EventBookingCreated:
		return Message{
			To:      event.Username,
			Subject: fmt.Sprintf("Booking %s is on hold", event.BookingCode),
			Body: fmt.Sprintf("Your %s booking %s (%s-%s, %s) is held until %s. Total %.2f.",
				event.Airline, event.BookingCode, event.Origin, event.Destination, event.DepartDate,
				event.TimeLimit, event.TotalPrice),
		}, nil
	default:
		return Message{
			To:      event.Username,
			Subject: fmt.Sprintf("Booking %s update", event.BookingCode),
			Body:    fmt.Sprintf("Booking %s changed: %s.", event.BookingCode, event.Type),
		}, nil
	}
}
