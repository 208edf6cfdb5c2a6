package domain

import (
	"encoding/json"
	"time"
)

type BookingStatus string

const (
	BookingStatusHold     BookingStatus = "HOLD"
	BookingStatusTicketed BookingStatus = "TICKETED"
)

type PassengerType string

const (
	PassengerAdult  PassengerType = "Adult"
	PassengerChild  PassengerType = "Child"
	PassengerInfant PassengerType = "Infant"
)

// PassengerTypeFromCode maps the vendor pax type enum: 0 adult, 1 child,
// anything else infant.
func PassengerTypeFromCode(code int) PassengerType {
	switch code {
	case 0:
		return PassengerAdult
	case 1:
		return PassengerChild
	default:
		return PassengerInfant
	}
}

const ItineraryDeparture = "Departure"

// UnknownBirthDate is stored when a passenger has no birth date.
const UnknownBirthDate = "1900-01-01"

// Booking is the aggregate root written in one transaction together with its
// passengers, their add-ons and the itinerary legs.
type Booking struct {
	ID             int64
	BookingCode    string
	ReferenceNo    string
	Airline        string
	TripType       string
	Origin         string
	Destination    string
	DepartDate     string
	TotalPrice     float64
	SalesPrice     float64
	TimeLimit      string
	Status         BookingStatus
	Username       string
	Payload        json.RawMessage
	VendorResponse json.RawMessage
	CreatedAt      time.Time
	Passengers     []Passenger
	Itinerary      []FlightItinerarySegment
}

type Passenger struct {
	ID        int64
	BookingID int64
	Title     string
	FirstName string
	LastName  string
	Type      PassengerType
	IDNumber  string
	BirthDate string
	Phone     string
	AddOns    []PassengerAddOn
}

type PassengerAddOn struct {
	ID          int64
	PassengerID int64
	BaggageCode string
	Seat        string
	Meals       []string
}

type FlightItinerarySegment struct {
	ID           int64
	BookingID    int64
	Category     string
	FlightNumber string
	Origin       string
	Destination  string
	DepartTime   string
	ArriveTime   string
	CabinClass   string
}

// BookingSummary is one row of a user's booking history.
type BookingSummary struct {
	ID            int64          `json:"id"`
	BookingCode   string         `json:"booking_code"`
	ReferenceNo   string         `json:"reference_no"`
	Airline       string         `json:"airline"`
	TripType      string         `json:"trip_type"`
	Origin        string         `json:"origin"`
	Destination   string         `json:"destination"`
	DepartDate    string         `json:"depart_date"`
	TotalPrice    float64        `json:"total_price"`
	SalesPrice    float64        `json:"sales_price"`
	TimeLimit     string         `json:"time_limit"`
	Status        string         `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	LeadPassenger string         `json:"lead_passenger"`
	TotalPax      int64          `json:"total_pax"`
	Itinerary     []ItineraryLeg `json:"itinerary"`
	IsExpired     bool           `json:"is_expired"`
}

type ItineraryLeg struct {
	Category     string `json:"category"`
	FlightNumber string `json:"flight_number"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	DepartTime   string `json:"depart_time"`
	ArriveTime   string `json:"arrive_time"`
	CabinClass   string `json:"cabin_class"`
	DepartClock  string `json:"depart_clock"`
	ArriveClock  string `json:"arrive_clock"`
}
