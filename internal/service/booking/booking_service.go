package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/airbroker/internal/domain"
	"github.com/Domenick1991/airbroker/internal/kafka"
	"github.com/Domenick1991/airbroker/internal/repository"
	"github.com/Domenick1991/airbroker/internal/session"
	"github.com/Domenick1991/airbroker/internal/vendor"
	"github.com/rs/zerolog/log"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, username string, req vendor.BookingRequest) (*domain.Booking, error)
	SaveBooking(ctx context.Context, payload vendor.BookingRequest, resp *vendor.BookingResponse, username string) (*domain.Booking, error)
	ListBookings(ctx context.Context, username string) ([]domain.BookingSummary, error)
}

// Booker places bookings with the vendor.
type Booker interface {
	Booking(ctx context.Context, accessToken string, req vendor.BookingRequest) (*vendor.BookingResponse, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

const clockLayout = "15.04"

// Layouts accepted for stored wall-clock strings.
var wallClockLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

type BookingService struct {
	bookings           repository.BookingRepository
	tokens             session.TokenSource
	booker             Booker
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	location           *time.Location
	now                func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithLocation sets the zone stored wall-clock strings are read in.
func WithLocation(loc *time.Location) BookingServiceOption {
	return func(s *BookingService) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	tokens session.TokenSource,
	booker Booker,
	producer Producer,
	bookingTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		tokens:       tokens,
		booker:       booker,
		producer:     producer,
		bookingTopic: bookingTopic,
		location:     vendor.Location("Asia/Jakarta"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking books with the vendor and stores the confirmed result. A
// rejected access token is dropped so the next call logs in again.
func (s *BookingService) CreateBooking(ctx context.Context, username string, req vendor.BookingRequest) (*domain.Booking, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassengers(req.PaxDetails); err != nil {
		return nil, err
	}

	token, err := s.tokens.Token(ctx, false)
	if err != nil {
		return nil, err
	}

	resp, err := s.booker.Booking(ctx, token, req)
	if err != nil {
		if errors.Is(err, domain.ErrVendorAuth) {
			s.tokens.InvalidateIf(token)
		}
		return nil, err
	}

	return s.SaveBooking(ctx, req, resp, username)
}

// SaveBooking persists a successful vendor booking response together with the
// request it answered. Nothing is written for a failed response.
func (s *BookingService) SaveBooking(ctx context.Context, payload vendor.BookingRequest, resp *vendor.BookingResponse, username string) (*domain.Booking, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", domain.ErrInvalidVendorResponse)
	}
	if !vendor.IsSuccess(resp.Status) {
		msg := resp.RespMessage
		if msg == "" {
			msg = "status " + resp.Status
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidVendorResponse, msg)
	}
	if strings.TrimSpace(resp.BookingCode) == "" {
		return nil, fmt.Errorf("%w: missing booking code", domain.ErrInvalidVendorResponse)
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassengers(payload.PaxDetails); err != nil {
		return nil, err
	}

	booking, err := toBooking(payload, resp, username)
	if err != nil {
		return nil, err
	}

	if _, err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	log.Info().
		Int64("booking_id", booking.ID).
		Str("booking_code", booking.BookingCode).
		Int("passengers", len(booking.Passengers)).
		Msg("booking saved")

	if err := s.publish(ctx, kafka.EventBookingCreated, booking); err != nil {
		log.Warn().Err(err).Str("booking_code", booking.BookingCode).Msg("failed to publish booking event")
	}
	return booking, nil
}

// ListBookings returns the user's booking history, newest first. Placeholder
// usernames sent by unauthenticated clients yield an empty history.
func (s *BookingService) ListBookings(ctx context.Context, username string) ([]domain.BookingSummary, error) {
	if isPlaceholderUsername(username) {
		return []domain.BookingSummary{}, nil
	}

	summaries, err := s.bookings.ListByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range summaries {
		s.decorate(&summaries[i], now)
	}
	return summaries, nil
}

func (s *BookingService) decorate(summary *domain.BookingSummary, now time.Time) {
	summary.IsExpired = false
	if !strings.Contains(strings.ToUpper(summary.Status), string(domain.BookingStatusTicketed)) {
		if limit, ok := parseWallClock(summary.TimeLimit, s.location); ok {
			summary.IsExpired = now.After(limit)
		}
	}
	for i := range summary.Itinerary {
		leg := &summary.Itinerary[i]
		leg.DepartClock = clockLabel(leg.DepartTime, s.location)
		leg.ArriveClock = clockLabel(leg.ArriveTime, s.location)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.NewBookingEvent(eventType, s.now())
	event.BookingID = booking.ID
	event.BookingCode = booking.BookingCode
	event.ReferenceNo = booking.ReferenceNo
	event.Airline = booking.Airline
	event.Origin = booking.Origin
	event.Destination = booking.Destination
	event.DepartDate = booking.DepartDate
	event.Username = booking.Username
	event.Status = string(booking.Status)
	event.TimeLimit = booking.TimeLimit
	event.TotalPrice = booking.TotalPrice

	if err := s.producer.Publish(ctx, s.bookingTopic, booking.BookingCode, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, booking.BookingCode, event)
	}
	return nil
}

func toBooking(payload vendor.BookingRequest, resp *vendor.BookingResponse, username string) (*domain.Booking, error) {
	payload.AccessToken = ""
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %w", domain.ErrInvalidInput, err)
	}

	vendorJSON := resp.Raw
	if len(vendorJSON) == 0 {
		if vendorJSON, err = json.Marshal(resp); err != nil {
			return nil, fmt.Errorf("%w: encode vendor response: %w", domain.ErrInvalidInput, err)
		}
	}

	booking := &domain.Booking{
		BookingCode:    strings.TrimSpace(resp.BookingCode),
		ReferenceNo:    resp.ReferenceNo,
		Airline:        payload.AirlineID,
		TripType:       payload.TripType,
		Origin:         payload.Origin,
		Destination:    payload.Destination,
		DepartDate:     normalizeTimestamp(payload.DepartDate),
		TotalPrice:     resp.TotalPrice,
		SalesPrice:     resp.SalesPrice,
		TimeLimit:      normalizeTimestamp(resp.TimeLimit),
		Status:         domain.BookingStatusHold,
		Username:       strings.TrimSpace(username),
		Payload:        payloadJSON,
		VendorResponse: vendorJSON,
		Passengers:     make([]domain.Passenger, 0, len(payload.PaxDetails)),
		Itinerary:      make([]domain.FlightItinerarySegment, 0, len(resp.FlightDeparts)),
	}

	for _, pax := range payload.PaxDetails {
		birthDate := normalizeTimestamp(pax.BirthDate)
		if birthDate == "" {
			birthDate = domain.UnknownBirthDate
		}
		p := domain.Passenger{
			Title:     pax.Title,
			FirstName: strings.ToUpper(strings.TrimSpace(pax.FirstName)),
			LastName:  strings.ToUpper(strings.TrimSpace(pax.LastName)),
			Type:      domain.PassengerTypeFromCode(pax.Type),
			IDNumber:  pax.IDNumber,
			BirthDate: birthDate,
			Phone:     pax.Phone,
		}
		for _, addOn := range pax.AddOns {
			p.AddOns = append(p.AddOns, domain.PassengerAddOn{
				BaggageCode: addOn.BaggageString,
				Seat:        addOn.Seat,
				Meals:       addOn.Meals,
			})
		}
		booking.Passengers = append(booking.Passengers, p)
	}

	for _, leg := range resp.FlightDeparts {
		booking.Itinerary = append(booking.Itinerary, domain.FlightItinerarySegment{
			Category:     domain.ItineraryDeparture,
			FlightNumber: leg.FlightNumber,
			Origin:       leg.Origin,
			Destination:  leg.Destination,
			DepartTime:   normalizeTimestamp(leg.DepartTime),
			ArriveTime:   normalizeTimestamp(leg.ArriveTime),
			CabinClass:   leg.FlightClass,
		})
	}
	return booking, nil
}

func validateUsername(username string) error {
	if isPlaceholderUsername(username) {
		return fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	return nil
}

func validatePassengers(paxDetails []vendor.PaxDetail) error {
	for i, pax := range paxDetails {
		if strings.TrimSpace(pax.FirstName) == "" {
			return fmt.Errorf("%w: passenger %d has no first name", domain.ErrInvalidInput, i+1)
		}
	}
	return nil
}

func isPlaceholderUsername(username string) bool {
	switch strings.ToLower(strings.TrimSpace(username)) {
	case "", "undefined", "null":
		return true
	}
	return false
}

// normalizeTimestamp drops sub-second digits and any zone designator from a
// vendor timestamp, keeping the wall clock as sent.
func normalizeTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= len("2006-01-02") {
		return s
	}
	date, clock := s[:10], s[10:]
	if i := strings.IndexAny(clock, "Zz+-"); i >= 0 {
		clock = clock[:i]
	}
	if i := strings.IndexByte(clock, '.'); i >= 0 {
		clock = clock[:i]
	}
	return date + strings.TrimRight(clock, " ")
}

func parseWallClock(s string, loc *time.Location) (time.Time, bool) {
	s = normalizeTimestamp(s)
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func clockLabel(s string, loc *time.Location) string {
	t, ok := parseWallClock(s, loc)
	if !ok || len(normalizeTimestamp(s)) <= len("2006-01-02") {
		return ""
	}
	return t.Format(clockLayout)
}

var _ BookingUseCase = (*BookingService)(nil)
