package email

import (
	"context"
	"testing"

	"github.com/Domenick1991/airbroker/internal/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_BookingCreated(t *testing.T) {
	msg, err := Compose(kafka.BookingEvent{
		Type:        kafka.EventBookingCreated,
		BookingCode: "ABC123",
		Airline:     "GA",
		Origin:      "CGK",
		Destination: "DPS",
		DepartDate:  "2025-03-10",
		Username:    "alice",
		TimeLimit:   "2025-03-09 18:00:00",
		TotalPrice:  1500000,
	})

	require.NoError(t, err)
	assert.Equal(t, "alice", msg.To)
	assert.Contains(t, msg.Subject, "ABC123")
	assert.Contains(t, msg.Body, "CGK-DPS")
	assert.Contains(t, msg.Body, "2025-03-09 18:00:00")
}

func TestCompose_MissingRecipient(t *testing.T) {
	_, err := Compose(kafka.BookingEvent{Type: kafka.EventBookingCreated, EventID: "e1"})
	assert.Error(t, err)
}

func TestSender_Send(t *testing.T) {
	s := NewSender()
	assert.NoError(t, s.Send(context.Background(), kafka.BookingEvent{Type: "booking_ticketed", Username: "bob", BookingCode: "X"}))
}
