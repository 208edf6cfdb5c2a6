package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/airbroker/internal/domain"
	"github.com/Domenick1991/airbroker/internal/metrics"
	"github.com/Domenick1991/airbroker/internal/session"
	"github.com/Domenick1991/airbroker/internal/vendor"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxSteps     = 30
	DefaultStepTimeout  = 60 * time.Second
	DefaultStepInterval = time.Second
	DefaultRunTimeout   = 100 * time.Second

	// DefaultMaxTransportFailures is how many transport failures in a row end
	// a run.
	DefaultMaxTransportFailures = 3

	// airlineIndexNotStarted forces the first call: the vendor only tells
	// the airline count in its first answer.
	airlineIndexNotStarted = -1
)

// PageFetcher is the vendor endpoint serving the all-airline schedule pages.
type PageFetcher interface {
	ScheduleAllAirline(ctx context.Context, accessToken string, query domain.ScheduleQuery, accessCode *string, timeout time.Duration) (*vendor.ScheduleAllAirlineResponse, error)
}

type stepKind int

const (
	stepContinue stepKind = iota
	stepDone
	stepFailed
)

type transition struct {
	kind     stepKind
	nextCode *string
	reason   string
}

// aggregation is the state of one run. It lives for a single Aggregate call.
type aggregation struct {
	departures   []domain.JourneySegment
	returns      []domain.JourneySegment
	totalAirline int
	airlineIndex int
	accessCode   *string
	steps        int
	pages        int
	done         bool
	failed       bool
	truncated    bool
	message      string
}

func newAggregation() *aggregation {
	return &aggregation{
		departures:   []domain.JourneySegment{},
		returns:      []domain.JourneySegment{},
		airlineIndex: airlineIndexNotStarted,
	}
}

func (a *aggregation) unfinished() bool {
	return a.airlineIndex < a.totalAirline || a.airlineIndex == airlineIndexNotStarted
}

func (a *aggregation) pending(maxSteps int) bool {
	return a.unfinished() && a.steps < maxSteps
}

// apply folds one vendor page into the state and tells the loop what to do.
func (a *aggregation) apply(resp *vendor.ScheduleAllAirlineResponse) transition {
	if !vendor.IsSuccess(resp.Status) {
		a.failed = true
		a.message = resp.RespMessage
		if a.message == "" {
			a.message = fmt.Sprintf("vendor returned status %q", resp.Status)
		}
		return transition{kind: stepFailed, reason: a.message}
	}

	if a.pages > 0 && resp.TotalAirline < a.totalAirline {
		a.truncated = true
		a.message = fmt.Sprintf("vendor reported %d airlines after announcing %d", resp.TotalAirline, a.totalAirline)
	}

	a.pages++
	a.totalAirline = resp.TotalAirline
	a.airlineIndex = resp.AirlineIndex
	code := resp.AirlineAccessCode
	a.accessCode = &code
	a.departures = append(a.departures, resp.JourneyDepart...)
	a.returns = append(a.returns, resp.JourneyReturn...)

	if a.airlineIndex >= a.totalAirline && a.totalAirline > 0 {
		a.done = true
		return transition{kind: stepDone}
	}
	return transition{kind: stepContinue, nextCode: a.accessCode}
}

func (a *aggregation) result(complete bool) *domain.ScheduleResult {
	return &domain.ScheduleResult{
		Departures:   a.departures,
		Returns:      a.returns,
		TotalAirline: a.totalAirline,
		Steps:        a.steps,
		Complete:     complete,
		Message:      a.message,
	}
}

// Paginator drives the paged all-airline schedule protocol: it keeps feeding
// the vendor's airlineAccessCode back until airlineIndex reaches totalAirline,
// the vendor reports a failure, or the step cap is hit.
type Paginator struct {
	tokens      session.TokenSource
	pages       PageFetcher
	maxSteps    int
	maxFailures int
	stepTimeout time.Duration
	runTimeout  time.Duration
	interval    time.Duration
}

type PaginatorOption func(*Paginator)

func WithMaxSteps(n int) PaginatorOption {
	return func(p *Paginator) {
		if n > 0 {
			p.maxSteps = n
		}
	}
}

func WithStepTimeout(d time.Duration) PaginatorOption {
	return func(p *Paginator) {
		if d > 0 {
			p.stepTimeout = d
		}
	}
}

// WithRunTimeout bounds a whole run, retries and pauses included. Keep it
// below the HTTP write timeout so nobody pages for a client that is gone.
func WithRunTimeout(d time.Duration) PaginatorOption {
	return func(p *Paginator) {
		if d > 0 {
			p.runTimeout = d
		}
	}
}

func WithMaxTransportFailures(n int) PaginatorOption {
	return func(p *Paginator) {
		if n > 0 {
			p.maxFailures = n
		}
	}
}

// WithStepInterval sets the pause between two vendor calls.
func WithStepInterval(d time.Duration) PaginatorOption {
	return func(p *Paginator) {
		if d >= 0 {
			p.interval = d
		}
	}
}

func NewPaginator(tokens session.TokenSource, pages PageFetcher, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		tokens:      tokens,
		pages:       pages,
		maxSteps:    DefaultMaxSteps,
		maxFailures: DefaultMaxTransportFailures,
		stepTimeout: DefaultStepTimeout,
		runTimeout:  DefaultRunTimeout,
		interval:    DefaultStepInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Aggregate runs one full aggregation. A vendor failure status, the step cap,
// the run timeout or too many transport failures in a row end the run with a
// partial result, not an error. Transport failures use up a step and are
// retried with the same continuation code; they become the returned error only
// when no page was ever received.
func (p *Paginator) Aggregate(ctx context.Context, query domain.ScheduleQuery) (*domain.ScheduleResult, error) {
	// The vendor ties the paging cursor to the token, so one fresh token is
	// used for the whole run.
	token, err := p.tokens.Token(ctx, true)
	if err != nil {
		metrics.ScheduleRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh vendor token: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, p.runTimeout)
	defer cancel()

	agg := newAggregation()
	var lastErr error
	failures := 0

	for agg.pending(p.maxSteps) {
		agg.steps++

		resp, err := p.pages.ScheduleAllAirline(runCtx, token, query, agg.accessCode, p.stepTimeout)
		if err != nil {
			if ctx.Err() != nil {
				metrics.ScheduleRuns.WithLabelValues("error").Inc()
				return nil, ctx.Err()
			}
			if runCtx.Err() != nil {
				lastErr = p.runExpired(runCtx)
				break
			}
			lastErr = err
			failures++
			log.Warn().Err(err).Int("step", agg.steps).Int("failures", failures).Msg("schedule page failed")
			if errors.Is(err, domain.ErrVendorAuth) {
				p.tokens.InvalidateIf(token)
				break
			}
			if failures >= p.maxFailures {
				break
			}
		} else {
			lastErr = nil
			failures = 0
			t := agg.apply(resp)
			switch t.kind {
			case stepFailed:
				log.Info().Int("step", agg.steps).Str("reason", t.reason).Msg("vendor stopped schedule paging")
			case stepContinue:
				log.Debug().
					Int("step", agg.steps).
					Int("airline_index", agg.airlineIndex).
					Int("total_airline", agg.totalAirline).
					Bool("has_next_code", t.nextCode != nil && *t.nextCode != "").
					Msg("schedule page received")
			}
			if t.kind != stepContinue {
				break
			}
		}

		if !agg.pending(p.maxSteps) {
			break
		}
		if err := sleepContext(runCtx, p.interval); err != nil {
			if ctx.Err() != nil {
				metrics.ScheduleRuns.WithLabelValues("error").Inc()
				return nil, ctx.Err()
			}
			lastErr = p.runExpired(runCtx)
			break
		}
	}

	metrics.ScheduleSteps.Observe(float64(agg.steps))

	if agg.pages == 0 && lastErr != nil {
		metrics.ScheduleRuns.WithLabelValues("error").Inc()
		return nil, lastErr
	}

	capped := agg.steps >= p.maxSteps && agg.unfinished() && !agg.failed
	complete := (agg.done || (!agg.failed && !capped && lastErr == nil && agg.pages > 0)) && !agg.truncated

	switch {
	case lastErr != nil && agg.message == "":
		agg.message = lastErr.Error()
	case capped && agg.message == "":
		agg.message = fmt.Sprintf("stopped after %d steps at airline %d of %d", agg.steps, agg.airlineIndex, agg.totalAirline)
	}

	outcome := "complete"
	if !complete {
		outcome = "partial"
		log.Info().
			Int("steps", agg.steps).
			Int("airline_index", agg.airlineIndex).
			Int("total_airline", agg.totalAirline).
			Str("reason", agg.message).
			Msg("schedule aggregation ended early")
	}
	metrics.ScheduleRuns.WithLabelValues(outcome).Inc()

	return agg.result(complete), nil
}

func (p *Paginator) runExpired(runCtx context.Context) error {
	return fmt.Errorf("schedule run exceeded %s: %w", p.runTimeout, runCtx.Err())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
