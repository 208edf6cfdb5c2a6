package schedule

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/airbroker/internal/domain"
	"github.com/rs/zerolog/log"
)

type ScheduleUseCase interface {
	AggregateAllAirlines(ctx context.Context, query domain.ScheduleQuery) (*domain.ScheduleResult, error)
}

type Aggregator interface {
	Aggregate(ctx context.Context, query domain.ScheduleQuery) (*domain.ScheduleResult, error)
}

type Cache interface {
	GetSchedule(ctx context.Context, key string) (*domain.ScheduleResult, error)
	SetSchedule(ctx context.Context, key string, result *domain.ScheduleResult) error
}

type ScheduleService struct {
	aggregator Aggregator
	cache      Cache
}

func NewScheduleService(aggregator Aggregator, cache Cache) *ScheduleService {
	return &ScheduleService{aggregator: aggregator, cache: cache}
}

func (s *ScheduleService) AggregateAllAirlines(ctx context.Context, query domain.ScheduleQuery) (*domain.ScheduleResult, error) {
	query = normalizeQuery(query)
	if err := validateQuery(query); err != nil {
		return nil, err
	}

	key := cacheKey(query)
	if s.cache != nil {
		cached, err := s.cache.GetSchedule(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("schedule cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	result, err := s.aggregator.Aggregate(ctx, query)
	if err != nil {
		return nil, err
	}

	// Partial results depend on transient vendor state and are not reused.
	if s.cache != nil && result.Complete {
		if err := s.cache.SetSchedule(ctx, key, result); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("schedule cache write failed")
		}
	}
	return result, nil
}

func normalizeQuery(q domain.ScheduleQuery) domain.ScheduleQuery {
	q.Origin = strings.ToUpper(strings.TrimSpace(q.Origin))
	q.Destination = strings.ToUpper(strings.TrimSpace(q.Destination))
	q.DepartDate = strings.TrimSpace(q.DepartDate)
	q.ReturnDate = strings.TrimSpace(q.ReturnDate)
	if q.TripType == "" {
		q.TripType = "OneWay"
		if q.ReturnDate != "" {
			q.TripType = "RoundTrip"
		}
	}
	return q
}

func validateQuery(q domain.ScheduleQuery) error {
	switch {
	case q.Origin == "" || q.Destination == "":
		return fmt.Errorf("%w: origin and destination are required", domain.ErrInvalidInput)
	case q.Origin == q.Destination:
		return fmt.Errorf("%w: origin and destination must differ", domain.ErrInvalidInput)
	case q.DepartDate == "":
		return fmt.Errorf("%w: departDate is required", domain.ErrInvalidInput)
	case q.PaxAdult < 1:
		return fmt.Errorf("%w: at least one adult passenger is required", domain.ErrInvalidInput)
	case q.PaxChild < 0 || q.PaxInfant < 0:
		return fmt.Errorf("%w: passenger counts must not be negative", domain.ErrInvalidInput)
	case q.PaxInfant > q.PaxAdult:
		return fmt.Errorf("%w: each infant needs an adult", domain.ErrInvalidInput)
	}
	return nil
}

func cacheKey(q domain.ScheduleQuery) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%d:%d:%d:%s",
		q.TripType, q.Origin, q.Destination, q.DepartDate, q.ReturnDate,
		q.PaxAdult, q.PaxChild, q.PaxInfant, q.PromoCode)
}

var _ ScheduleUseCase = (*ScheduleService)(nil)
