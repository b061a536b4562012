package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/risk"
	"github.com/Domenick1991/busbooking/internal/service/reservation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSeatUseCase struct {
	mock.Mock
}

func (m *MockSeatUseCase) List(ctx context.Context) ([]domain.Seat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Seat), args.Error(1)
}

func (m *MockSeatUseCase) ListActive(ctx context.Context) ([]domain.Seat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Seat), args.Error(1)
}

func catalogRouter(t *testing.T, svc reservation.UseCase, seatSvc *MockSeatUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewCatalogHandler(svc, seatSvc, testItinerary(t), domain.DefaultMeals(), 2, zap.NewNop()).Register(r.Group("/api"))
	r.GET("/healthz", Health)
	return r
}

func TestCatalogHandler_availability(t *testing.T) {
	svc := &MockReservationUseCase{}
	date := time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC)
	svc.On("CheckAvailability", mock.Anything, date, domain.Leg{From: 2, To: 5}).Return(&reservation.Availability{
		Seats: []reservation.SeatAvailability{
			{SeatNumber: "4 UB", Berth: domain.BerthUpper, Available: false, Gender: "Female", ReservationID: 3},
			{SeatNumber: "5 UB", Berth: domain.BerthUpper, Available: true},
		},
		TotalSeats:  2,
		BookedSeats: 1,
		Risk:        &risk.Score{Score: 55, Label: risk.LabelMedium},
	}, nil).Once()
	svc.On("CheckAvailability", mock.Anything, date, domain.Leg{From: 5, To: 2}).Return(nil, domain.ErrInvalidRequest).Once()

	r := catalogRouter(t, svc, &MockSeatUseCase{})

	w := do(r, http.MethodGet, "/api/availability?journeyDate=2026-01-23&fromIndex=2&toIndex=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Seats []struct {
			SeatNumber string `json:"seatNumber"`
			Available  bool   `json:"available"`
			Gender     string `json:"gender"`
			BookingID  int64  `json:"bookingId"`
		} `json:"seats"`
		BookedSeats int         `json:"bookedSeats"`
		Risk        *risk.Score `json:"risk"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Seats, 2)
	assert.False(t, got.Seats[0].Available)
	assert.Equal(t, "Female", got.Seats[0].Gender)
	assert.Equal(t, int64(3), got.Seats[0].BookingID)
	assert.Equal(t, 1, got.BookedSeats)
	assert.Equal(t, risk.LabelMedium, got.Risk.Label)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/availability?journeyDate=2026-01-23&fromIndex=5&toIndex=2", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/availability?journeyDate=tomorrow&fromIndex=0&toIndex=2", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/availability?journeyDate=2026-01-23&fromIndex=a&toIndex=2", nil).Code)
	svc.AssertExpectations(t)
}

func TestCatalogHandler_fare(t *testing.T) {
	r := catalogRouter(t, &MockReservationUseCase{}, &MockSeatUseCase{})

	w := do(r, http.MethodGet, "/api/fare?fromIndex=0&toIndex=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, float64(200+265*2), resp["farePerSeat"])
	assert.Equal(t, true, resp["mealsAvailable"])

	resp = decode(t, do(r, http.MethodGet, "/api/fare?fromIndex=3&toIndex=6", nil))
	assert.Equal(t, false, resp["mealsAvailable"])

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/fare?fromIndex=0&toIndex=9", nil).Code)
}

func TestCatalogHandler_staticLists(t *testing.T) {
	seatSvc := &MockSeatUseCase{}
	seatSvc.On("List", mock.Anything).Return(domain.DefaultSeatLayout(1), nil).Once()
	seatSvc.On("List", mock.Anything).Return(nil, errors.New("db down")).Once()

	r := catalogRouter(t, &MockReservationUseCase{}, seatSvc)

	var stops struct {
		Stops         []domain.Stop `json:"stops"`
		MealStopIndex int           `json:"mealStopIndex"`
	}
	w := do(r, http.MethodGet, "/api/stops", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stops))
	assert.Len(t, stops.Stops, 7)
	assert.Equal(t, "Bharuch", stops.Stops[stops.MealStopIndex].Name)

	var meals []domain.Meal
	require.NoError(t, json.Unmarshal(do(r, http.MethodGet, "/api/meals", nil).Body.Bytes(), &meals))
	assert.Equal(t, domain.DefaultMeals(), meals)

	var seatList []domain.Seat
	w = do(r, http.MethodGet, "/api/seats", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seatList))
	assert.Equal(t, []string{"1 LB", "1 UB"}, []string{seatList[0].SeatNumber, seatList[1].SeatNumber})
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/api/seats", nil).Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", nil).Code)
	seatSvc.AssertExpectations(t)
}
