package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Domenick1991/airbroker/internal/domain"
	"github.com/Domenick1991/airbroker/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) (int64, error)
	ListByUsername(ctx context.Context, username string) ([]domain.BookingSummary, error)
}

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const (
	insertBookingSQL = `INSERT INTO bookings (booking_code, reference_no, airline, trip_type, origin, destination,
		depart_date, total_price, sales_price, time_limit, status, username, payload, vendor_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	insertPassengerSQL = `INSERT INTO passengers (booking_id, title, first_name, last_name, pax_type, id_number, birth_date, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	insertAddOnSQL = `INSERT INTO passenger_addons (passenger_id, baggage_code, seat, meals)
		VALUES ($1, $2, $3, $4)`

	insertItinerarySQL = `INSERT INTO flight_itinerary (booking_id, category, flight_number, origin, destination, depart_time, arrive_time, cabin_class)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	listBookingsSQL = `SELECT b.id, b.booking_code, b.reference_no, b.airline, b.trip_type, b.origin, b.destination,
		b.depart_date, b.total_price, b.sales_price, b.time_limit, b.status, b.created_at,
		COALESCE(lead.full_name, '') AS lead_passenger,
		(SELECT COUNT(*) FROM passengers p WHERE p.booking_id = b.id) AS total_pax
		FROM bookings b
		LEFT JOIN LATERAL (
			SELECT TRIM(p.first_name || ' ' || p.last_name) AS full_name
			FROM passengers p
			WHERE p.booking_id = b.id
			ORDER BY p.id
			LIMIT 1
		) lead ON TRUE
		WHERE b.username = $1
		ORDER BY b.created_at DESC, b.id DESC`

	listItinerarySQL = `SELECT booking_id, category, flight_number, origin, destination, depart_time, arrive_time, cabin_class
		FROM flight_itinerary
		WHERE booking_id = ANY($1)
		ORDER BY booking_id, id`
)

// Create writes the booking, its passengers with their add-ons and the
// itinerary in one transaction. On any failure nothing is kept.
func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) (id int64, err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, persistenceErr("begin transaction", err)
	}
	defer func() {
		if err == nil {
			metrics.BookingsSaved.WithLabelValues("ok").Inc()
			return
		}
		metrics.BookingsSaved.WithLabelValues("rollback").Inc()
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Str("booking_code", booking.BookingCode).Msg("rollback booking")
		}
	}()

	if booking.Status == "" {
		booking.Status = domain.BookingStatusHold
	}

	if err = tx.QueryRow(ctx, insertBookingSQL,
		booking.BookingCode, booking.ReferenceNo, booking.Airline, booking.TripType,
		booking.Origin, booking.Destination, booking.DepartDate,
		booking.TotalPrice, booking.SalesPrice, booking.TimeLimit,
		booking.Status, booking.Username, jsonArg(booking.Payload), jsonArg(booking.VendorResponse),
	).Scan(&booking.ID, &booking.CreatedAt); err != nil {
		return 0, persistenceErr("insert booking", err)
	}

	for i := range booking.Passengers {
		p := &booking.Passengers[i]
		p.BookingID = booking.ID
		if err = tx.QueryRow(ctx, insertPassengerSQL,
			p.BookingID, p.Title, p.FirstName, p.LastName, p.Type, p.IDNumber, p.BirthDate, p.Phone,
		).Scan(&p.ID); err != nil {
			return 0, persistenceErr(fmt.Sprintf("insert passenger %d", i+1), err)
		}

		for j := range p.AddOns {
			a := &p.AddOns[j]
			a.PassengerID = p.ID
			meals := a.Meals
			if meals == nil {
				meals = []string{}
			}
			var encoded []byte
			if encoded, err = json.Marshal(meals); err != nil {
				return 0, persistenceErr("encode meals", err)
			}
			if _, err = tx.Exec(ctx, insertAddOnSQL, a.PassengerID, a.BaggageCode, a.Seat, encoded); err != nil {
				return 0, persistenceErr(fmt.Sprintf("insert add-on %d of passenger %d", j+1, i+1), err)
			}
		}
	}

	for i := range booking.Itinerary {
		leg := &booking.Itinerary[i]
		leg.BookingID = booking.ID
		if err = tx.QueryRow(ctx, insertItinerarySQL,
			leg.BookingID, leg.Category, leg.FlightNumber, leg.Origin, leg.Destination,
			leg.DepartTime, leg.ArriveTime, leg.CabinClass,
		).Scan(&leg.ID); err != nil {
			return 0, persistenceErr(fmt.Sprintf("insert itinerary leg %d", i+1), err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, persistenceErr("commit booking", err)
	}
	return booking.ID, nil
}

// ListByUsername returns the user's bookings, newest first, each with its lead
// passenger, passenger count and itinerary legs.
func (r *PGBookingRepository) ListByUsername(ctx context.Context, username string) ([]domain.BookingSummary, error) {
	rows, err := r.db.Query(ctx, listBookingsSQL, username)
	if err != nil {
		return nil, persistenceErr("list bookings", err)
	}
	defer rows.Close()

	summaries := make([]domain.BookingSummary, 0)
	index := make(map[int64]int)
	ids := make([]int64, 0)
	for rows.Next() {
		var s domain.BookingSummary
		if err := rows.Scan(&s.ID, &s.BookingCode, &s.ReferenceNo, &s.Airline, &s.TripType, &s.Origin, &s.Destination,
			&s.DepartDate, &s.TotalPrice, &s.SalesPrice, &s.TimeLimit, &s.Status, &s.CreatedAt,
			&s.LeadPassenger, &s.TotalPax); err != nil {
			return nil, persistenceErr("scan booking", err)
		}
		s.Itinerary = []domain.ItineraryLeg{}
		index[s.ID] = len(summaries)
		ids = append(ids, s.ID)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("list bookings", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return summaries, nil
	}

	legRows, err := r.db.Query(ctx, listItinerarySQL, ids)
	if err != nil {
		return nil, persistenceErr("list itinerary", err)
	}
	defer legRows.Close()

	for legRows.Next() {
		var bookingID int64
		var leg domain.ItineraryLeg
		if err := legRows.Scan(&bookingID, &leg.Category, &leg.FlightNumber, &leg.Origin, &leg.Destination,
			&leg.DepartTime, &leg.ArriveTime, &leg.CabinClass); err != nil {
			return nil, persistenceErr("scan itinerary", err)
		}
		if i, ok := index[bookingID]; ok {
			summaries[i].Itinerary = append(summaries[i].Itinerary, leg)
		}
	}
	if err := legRows.Err(); err != nil {
		return nil, persistenceErr("list itinerary", err)
	}
	return summaries, nil
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

// jsonArg keeps absent blobs NULL instead of an empty byte string, which
// jsonb would reject.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
