package risk

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Wednesday.
var today = time.Date(2026, 1, 21, 9, 0, 0, 0, time.UTC)

func TestHeuristic_Estimate(t *testing.T) {
	h := &Heuristic{now: func() time.Time { return today }}
	ctx := context.Background()

	testCases := []struct {
		name   string
		date   time.Time
		booked int
		score  int
		label  string
	}{
		// 30 days out, Saturday, empty: 10 + 20
		{name: "far weekend", date: time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC), booked: 0, score: 30, label: LabelSafe},
		// tomorrow (Thursday), half full: 10 + 50 + 25
		{name: "tomorrow half full", date: time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC), booked: 15, score: 85, label: LabelHigh},
		// 6 days out (Tuesday), empty: 10 + 15
		{name: "within a week", date: time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC), booked: 0, score: 25, label: LabelSafe},
		// 3 days out (Saturday), full: 10 + 30 + 20 + 50, capped
		{name: "capped", date: time.Date(2026, 1, 24, 0, 0, 0, 0, time.UTC), booked: 30, score: 99, label: LabelHigh},
		// 2 days out (Friday), empty: 10 + 30 + 20
		{name: "medium", date: time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC), booked: 0, score: 60, label: LabelMedium},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.Estimate(ctx, tc.date, 30, tc.booked)
			require.NoError(t, err)
			assert.Equal(t, tc.score, got.Score)
			assert.Equal(t, tc.label, got.Label)
		})
	}
}

const dataset = `Journey_Date,Day_Type,Days_Before_Travel,Booked_Seats,Total_Seats,Occupancy_Percent,Outcome_Label
2025-12-01,Monday,30,3,30,10%,Safe
2025-12-02,Tuesday,28,4,30,13%,Safe
2025-12-03,Wednesday,25,5,30,16%,Safe
2025-12-05,Friday,2,27,30,90%,Sell Out Likely
2025-12-06,Saturday,1,28,30,93%,Sell Out Likely
2025-12-07,Sunday,3,24,30,80%,High Risk
2025-12-08,Monday,5,15,30,50%,Medium Risk
broken,row
2025-12-09,Tuesday,x,15,30,50%,Medium Risk
`

func TestKNN_Estimate(t *testing.T) {
	k, err := ReadKNN(strings.NewReader(dataset))
	require.NoError(t, err)
	assert.Equal(t, 7, k.Size())
	k.now = func() time.Time { return today }
	ctx := context.Background()

	// every sample is a neighbour, so the score is an inverse-distance mean
	// dominated by the three nearly identical "Safe" rows
	safe, err := k.Estimate(ctx, time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC), 30, 3)
	require.NoError(t, err)
	assert.Equal(t, LabelSafe, safe.Label)
	assert.Less(t, safe.Score, 50)

	full, err := k.Estimate(ctx, time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC), 30, 28)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, full.Score, 95)
	assert.Equal(t, LabelSellOutLike, full.Label)
}

func TestReadKNN_Empty(t *testing.T) {
	_, err := ReadKNN(strings.NewReader("Journey_Date,Day_Type\n"))
	assert.Error(t, err)

	_, err = LoadKNN("/does/not/exist.csv")
	assert.Error(t, err)
}

type MockScoreCache struct {
	mock.Mock
}

func (m *MockScoreCache) GetRisk(ctx context.Context, key string) (*Score, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Score), args.Error(1)
}

func (m *MockScoreCache) SetRisk(ctx context.Context, key string, score Score) error {
	args := m.Called(ctx, key, score)
	return args.Error(0)
}

type stubEstimator struct {
	score Score
	err   error
	calls int
}

func (s *stubEstimator) Estimate(ctx context.Context, date time.Time, totalSeats, bookedSeats int) (Score, error) {
	s.calls++
	return s.score, s.err
}

func TestCached_Estimate(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC)
	key := "2026-01-23:30:4:2026-01-21"

	cache := &MockScoreCache{}
	next := &stubEstimator{score: Score{Score: 42, Label: LabelSafe}}
	c := NewCached(next, cache, zap.NewNop())
	c.now = func() time.Time { return today }

	cache.On("GetRisk", ctx, key).Return(nil, nil).Once()
	cache.On("SetRisk", ctx, key, next.score).Return(nil).Once()
	got, err := c.Estimate(ctx, date, 30, 4)
	require.NoError(t, err)
	assert.Equal(t, next.score, got)

	hit := Score{Score: 77, Label: LabelMedium}
	cache.On("GetRisk", ctx, key).Return(&hit, nil).Once()
	got, err = c.Estimate(ctx, date, 30, 4)
	require.NoError(t, err)
	assert.Equal(t, hit, got)
	assert.Equal(t, 1, next.calls)
	cache.AssertExpectations(t)
}

func TestCached_EstimatorError(t *testing.T) {
	ctx := context.Background()
	cache := &MockScoreCache{}
	boom := errors.New("model unavailable")
	c := NewCached(&stubEstimator{err: boom}, cache, zap.NewNop())

	cache.On("GetRisk", ctx, mock.Anything).Return(nil, errors.New("redis down")).Once()
	_, err := c.Estimate(ctx, today, 30, 4)
	assert.ErrorIs(t, err, boom)
	cache.AssertNotCalled(t, "SetRisk", mock.Anything, mock.Anything, mock.Anything)
}
