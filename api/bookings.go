package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/reservation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service   reservation.UseCase
	itinerary *domain.Itinerary
	logger    *zap.Logger
}

type createBookingRequest struct {
	Email            string             `json:"email" binding:"required"`
	FullName         string             `json:"fullName"`
	JourneyDate      string             `json:"journeyDate" binding:"required"`
	FromIndex        *int               `json:"fromIndex" binding:"required"`
	ToIndex          *int               `json:"toIndex" binding:"required"`
	SeatIDs          []string           `json:"seatIds" binding:"required"`
	PassengerGenders []string           `json:"passengerGenders"`
	PassengerNames   []string           `json:"passengerNames"`
	Meals            []domain.MealOrder `json:"meals"`
	TotalAmount      int64              `json:"totalAmount"`
}

type cancelBookingRequest struct {
	BookingID int64 `json:"bookingId" binding:"required"`
}

type passengerResponse struct {
	SeatNumber    string `json:"seatNumber"`
	Gender        string `json:"gender,omitempty"`
	PassengerName string `json:"passengerName,omitempty"`
}

type bookingResponse struct {
	BookingID   int64               `json:"bookingId"`
	Email       string              `json:"email"`
	JourneyDate string              `json:"journeyDate"`
	FromIndex   int                 `json:"fromIndex"`
	ToIndex     int                 `json:"toIndex"`
	FromStop    string              `json:"fromStop"`
	ToStop      string              `json:"toStop"`
	Status      string              `json:"status"`
	TotalAmount int64               `json:"totalAmount"`
	CreatedAt   string              `json:"createdAt"`
	CancelledAt string              `json:"cancelledAt,omitempty"`
	Seats       []passengerResponse `json:"seats"`
	Meals       []domain.MealOrder  `json:"meals"`
}

func NewBookingHandler(service reservation.UseCase, itinerary *domain.Itinerary, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, itinerary: itinerary, logger: logger}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.POST("/cancel", h.cancelByBody)
	router.GET("/:id", h.get)
	router.DELETE("/:id", h.cancelByPath)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := domain.ParseDate(req.JourneyDate)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	res, err := h.service.CreateReservation(c.Request.Context(), reservation.ReserveInput{
		Email:          req.Email,
		FullName:       req.FullName,
		JourneyDate:    date,
		Leg:            domain.Leg{From: *req.FromIndex, To: *req.ToIndex},
		SeatNumbers:    req.SeatIDs,
		Genders:        req.PassengerGenders,
		PassengerNames: req.PassengerNames,
		Meals:          req.Meals,
		TotalAmount:    req.TotalAmount,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "bookingId": res.ID})
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	res, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(res))
}

func (h *BookingHandler) cancelByBody(c *gin.Context) {
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.cancel(c, req.BookingID)
}

func (h *BookingHandler) cancelByPath(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	h.cancel(c, id)
}

func (h *BookingHandler) cancel(c *gin.Context, id int64) {
	res, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bookingId": res.ID, "status": res.Status})
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *BookingHandler) toResponse(res *domain.Reservation) bookingResponse {
	out := bookingResponse{
		BookingID:   res.ID,
		Email:       res.Email,
		JourneyDate: res.JourneyDate.Format(domain.DateLayout),
		FromIndex:   res.Leg.From,
		ToIndex:     res.Leg.To,
		Status:      string(res.Status),
		TotalAmount: res.TotalAmount,
		CreatedAt:   res.CreatedAt.Format(time.RFC3339),
		Seats:       make([]passengerResponse, 0, len(res.Segments)),
		Meals:       res.Meals,
	}
	if s, ok := h.itinerary.Stop(res.Leg.From); ok {
		out.FromStop = s.Name
	}
	if s, ok := h.itinerary.Stop(res.Leg.To); ok {
		out.ToStop = s.Name
	}
	if res.CancelledAt != nil {
		out.CancelledAt = res.CancelledAt.Format(time.RFC3339)
	}
	for _, seg := range res.Segments {
		out.Seats = append(out.Seats, passengerResponse{SeatNumber: seg.SeatNumber, Gender: seg.Gender, PassengerName: seg.PassengerName})
	}
	if out.Meals == nil {
		out.Meals = []domain.MealOrder{}
	}
	return out
}
