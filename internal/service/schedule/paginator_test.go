package schedule

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Domenick1991/airbroker/internal/domain"
	"github.com/Domenick1991/airbroker/internal/vendor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTokenSource struct {
	mock.Mock
}

func (m *MockTokenSource) Token(ctx context.Context, forceRefresh bool) (string, error) {
	args := m.Called(ctx, forceRefresh)
	return args.String(0), args.Error(1)
}

func (m *MockTokenSource) InvalidateIf(token string) bool {
	args := m.Called(token)
	return args.Bool(0)
}

type pageCall struct {
	token string
	code  *string
}

// scriptedVendor answers page n (1-based) with respond(n).
type scriptedVendor struct {
	calls   []pageCall
	respond func(step int) (*vendor.ScheduleAllAirlineResponse, error)
}

func (v *scriptedVendor) ScheduleAllAirline(ctx context.Context, accessToken string, query domain.ScheduleQuery, accessCode *string, timeout time.Duration) (*vendor.ScheduleAllAirlineResponse, error) {
	v.calls = append(v.calls, pageCall{token: accessToken, code: accessCode})
	return v.respond(len(v.calls))
}

func journey(id string) domain.JourneySegment {
	return domain.JourneySegment{AirlineID: id, Origin: "CGK", Destination: "DPS"}
}

func successPage(total, index int, code string, departs ...domain.JourneySegment) *vendor.ScheduleAllAirlineResponse {
	return &vendor.ScheduleAllAirlineResponse{
		Status:            "SUCCESS",
		TotalAirline:      total,
		AirlineIndex:      index,
		AirlineAccessCode: code,
		JourneyDepart:     departs,
	}
}

func newTestPaginator(tokens *MockTokenSource, v *scriptedVendor, opts ...PaginatorOption) *Paginator {
	opts = append([]PaginatorOption{WithStepInterval(0)}, opts...)
	return NewPaginator(tokens, v, opts...)
}

var testQuery = domain.ScheduleQuery{TripType: "OneWay", Origin: "CGK", Destination: "DPS", DepartDate: "2025-03-10", PaxAdult: 1}

func TestPaginator_StopsWhenIndexReachesTotal(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("fresh-token", nil).Once()

	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		return successPage(3, step, fmt.Sprintf("code-%d", step), journey(fmt.Sprintf("A%d", step))), nil
	}}

	result, err := newTestPaginator(tokens, v).Aggregate(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Len(t, result.Departures, 3)
	assert.Equal(t, 3, result.Steps)
	assert.Equal(t, 3, result.TotalAirline)
	assert.True(t, result.Complete)
	assert.Empty(t, result.Message)
	require.Len(t, v.calls, 3)

	// First call has no continuation code, later calls feed back the previous one.
	assert.Nil(t, v.calls[0].code)
	assert.Equal(t, "code-1", *v.calls[1].code)
	assert.Equal(t, "code-2", *v.calls[2].code)
	for _, c := range v.calls {
		assert.Equal(t, "fresh-token", c.token)
	}
	tokens.AssertExpectations(t)
	tokens.AssertNotCalled(t, "Token", mock.Anything, false)
}

func TestPaginator_SafetyCap(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		return successPage(5, 0, "same", journey("X")), nil
	}}

	result, err := newTestPaginator(tokens, v).Aggregate(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Equal(t, 30, result.Steps)
	assert.Len(t, v.calls, 30)
	assert.Len(t, result.Departures, 30)
	assert.False(t, result.Complete)
	assert.Contains(t, result.Message, "30 steps")
}

func TestPaginator_VendorFailureReturnsPartial(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		if step == 2 {
			return &vendor.ScheduleAllAirlineResponse{Status: "FAILED", RespMessage: "session expired"}, nil
		}
		return successPage(4, step, "c", journey("A")), nil
	}}

	result, err := newTestPaginator(tokens, v).Aggregate(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Len(t, v.calls, 2)
	assert.Len(t, result.Departures, 1)
	assert.False(t, result.Complete)
	assert.Equal(t, "session expired", result.Message)
	assert.Equal(t, 2, result.Steps)
}

func TestPaginator_ZeroAirlinesEndsAfterOneCall(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		return successPage(0, 0, ""), nil
	}}

	result, err := newTestPaginator(tokens, v).Aggregate(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Len(t, v.calls, 1)
	assert.Empty(t, result.Departures)
	assert.NotNil(t, result.Departures)
	assert.Equal(t, 0, result.TotalAirline)
}

func TestPaginator_TotalDroppingToZeroIsPartial(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		if step == 1 {
			return successPage(3, 1, "c", journey("A")), nil
		}
		return successPage(0, 0, ""), nil
	}}

	result, err := newTestPaginator(tokens, v).Aggregate(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Len(t, v.calls, 2)
	assert.Len(t, result.Departures, 1)
	assert.False(t, result.Complete)
	assert.Contains(t, result.Message, "announcing 3")
}

func TestPaginator_EmptyPagesDoNotEndTheRun(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		page := successPage(3, step, "c")
		if step == 3 {
			page.JourneyDepart = []domain.JourneySegment{journey("LAST")}
			page.JourneyReturn = []domain.JourneySegment{journey("BACK")}
		}
		return page, nil
	}}

	result, err := newTestPaginator(tokens, v).Aggregate(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Len(t, v.calls, 3)
	require.Len(t, result.Departures, 1)
	assert.Equal(t, "LAST", result.Departures[0].AirlineID)
	require.Len(t, result.Returns, 1)
	assert.True(t, result.Complete)
}

func TestPaginator_TransportErrorIsRetriedWithSameCode(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		switch step {
		case 1:
			return successPage(2, 1, "after-1", journey("A")), nil
		case 2:
			return nil, &vendor.Error{Kind: domain.ErrVendorTransport, Message: "timeout"}
		default:
			return successPage(2, 2, "after-3", journey("B")), nil
		}
	}}

	result, err := newTestPaginator(tokens, v).Aggregate(context.Background(), testQuery)

	require.NoError(t, err)
	require.Len(t, v.calls, 3)
	assert.Equal(t, "after-1", *v.calls[1].code)
	assert.Equal(t, "after-1", *v.calls[2].code)
	assert.Len(t, result.Departures, 2)
	assert.True(t, result.Complete)
}

func TestPaginator_TransportErrorWithoutAnyPage(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		return nil, &vendor.Error{Kind: domain.ErrVendorTransport, Message: "connection refused"}
	}}

	_, err := newTestPaginator(tokens, v, WithMaxSteps(3)).Aggregate(context.Background(), testQuery)

	assert.ErrorIs(t, err, domain.ErrVendorTransport)
	assert.Len(t, v.calls, 3)
}

func TestPaginator_AuthErrorInvalidatesToken(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()
	tokens.On("InvalidateIf", "tok").Return(true).Once()

	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		if step == 1 {
			return successPage(3, 1, "c", journey("A")), nil
		}
		return nil, &vendor.Error{Kind: domain.ErrVendorAuth, StatusCode: 401}
	}}

	result, err := newTestPaginator(tokens, v).Aggregate(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Len(t, v.calls, 2)
	assert.Len(t, result.Departures, 1)
	assert.False(t, result.Complete)
	assert.NotEmpty(t, result.Message)
	tokens.AssertExpectations(t)
}

func TestPaginator_TokenRefreshFailure(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("", domain.ErrVendorAuth).Once()
	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		t.Fatal("vendor must not be called without a token")
		return nil, nil
	}}

	_, err := newTestPaginator(tokens, v).Aggregate(context.Background(), testQuery)

	assert.ErrorIs(t, err, domain.ErrVendorAuth)
	assert.Empty(t, v.calls)
}

func TestPaginator_ThrottlesBetweenSteps(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		return successPage(3, step, "c"), nil
	}}

	interval := 30 * time.Millisecond
	start := time.Now()
	result, err := NewPaginator(tokens, v, WithStepInterval(interval)).Aggregate(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Steps)
	// Two pauses between three calls, none after the last one.
	assert.GreaterOrEqual(t, time.Since(start), 2*interval)
}

func TestPaginator_CancelledDuringThrottle(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		cancel()
		return successPage(3, step, "c"), nil
	}}

	_, err := NewPaginator(tokens, v, WithStepInterval(time.Hour)).Aggregate(ctx, testQuery)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, v.calls, 1)
}

// ctxFetcher answers with respond and hands it the call context.
type ctxFetcher struct {
	calls   int
	respond func(ctx context.Context, step int) (*vendor.ScheduleAllAirlineResponse, error)
}

func (f *ctxFetcher) ScheduleAllAirline(ctx context.Context, accessToken string, query domain.ScheduleQuery, accessCode *string, timeout time.Duration) (*vendor.ScheduleAllAirlineResponse, error) {
	f.calls++
	return f.respond(ctx, f.calls)
}

func TestPaginator_ConsecutiveTransportFailuresEndRun(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	v := &scriptedVendor{respond: func(step int) (*vendor.ScheduleAllAirlineResponse, error) {
		if step == 1 {
			return successPage(5, 1, "c", journey("A")), nil
		}
		return nil, &vendor.Error{Kind: domain.ErrVendorTransport, Message: "timeout"}
	}}

	result, err := newTestPaginator(tokens, v, WithMaxTransportFailures(2)).Aggregate(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Len(t, v.calls, 3)
	assert.False(t, result.Complete)
	assert.Contains(t, result.Message, "timeout")
}

func TestPaginator_RunTimeoutBoundsRetries(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	f := &ctxFetcher{respond: func(ctx context.Context, step int) (*vendor.ScheduleAllAirlineResponse, error) {
		<-ctx.Done()
		return nil, &vendor.Error{Kind: domain.ErrVendorTransport, Message: "request failed", Err: ctx.Err()}
	}}

	start := time.Now()
	_, err := NewPaginator(tokens, f,
		WithStepInterval(0),
		WithStepTimeout(time.Hour),
		WithRunTimeout(50*time.Millisecond),
	).Aggregate(context.Background(), testQuery)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.calls)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPaginator_RunTimeoutKeepsReceivedPages(t *testing.T) {
	tokens := &MockTokenSource{}
	tokens.On("Token", mock.Anything, true).Return("tok", nil).Once()

	f := &ctxFetcher{respond: func(ctx context.Context, step int) (*vendor.ScheduleAllAirlineResponse, error) {
		if step == 1 {
			return successPage(3, 1, "c", journey("A")), nil
		}
		<-ctx.Done()
		return nil, &vendor.Error{Kind: domain.ErrVendorTransport, Message: "request failed", Err: ctx.Err()}
	}}

	result, err := NewPaginator(tokens, f,
		WithStepInterval(0),
		WithRunTimeout(50*time.Millisecond),
	).Aggregate(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
	assert.Len(t, result.Departures, 1)
	assert.False(t, result.Complete)
	assert.Contains(t, result.Message, "schedule run exceeded")
}
