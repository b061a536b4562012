package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/reservation"
	"github.com/Domenick1991/busbooking/internal/service/seats"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogHandler serves the read-only parts of the API: availability, the
// route, fares, meals and the seat layout.
type CatalogHandler struct {
	reservations reservation.UseCase
	seats        seats.SeatUseCase
	itinerary    *domain.Itinerary
	meals        []domain.Meal
	mealStop     int
	logger       *zap.Logger
}

func NewCatalogHandler(reservations reservation.UseCase, seatSvc seats.SeatUseCase, itinerary *domain.Itinerary, meals []domain.Meal, mealStop int, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		reservations: reservations,
		seats:        seatSvc,
		itinerary:    itinerary,
		meals:        meals,
		mealStop:     mealStop,
		logger:       logger,
	}
}

func (h *CatalogHandler) Register(router *gin.RouterGroup) {
	router.GET("/availability", h.availability)
	router.GET("/stops", h.stops)
	router.GET("/fare", h.fare)
	router.GET("/meals", h.listMeals)
	router.GET("/seats", h.listSeats)
}

func (h *CatalogHandler) availability(c *gin.Context) {
	date, err := domain.ParseDate(c.Query("journeyDate"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	leg, ok := legFromQuery(c)
	if !ok {
		return
	}

	avail, err := h.reservations.CheckAvailability(c.Request.Context(), date, leg)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

func (h *CatalogHandler) stops(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stops": h.itinerary.Stops(), "mealStopIndex": h.mealStop})
}

func (h *CatalogHandler) fare(c *gin.Context) {
	leg, ok := legFromQuery(c)
	if !ok {
		return
	}
	fare, err := h.itinerary.Fare(leg)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fromIndex": leg.From, "toIndex": leg.To, "farePerSeat": fare, "mealsAvailable": leg.Reaches(h.mealStop)})
}

func (h *CatalogHandler) listMeals(c *gin.Context) {
	c.JSON(http.StatusOK, h.meals)
}

func (h *CatalogHandler) listSeats(c *gin.Context) {
	list, err := h.seats.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func legFromQuery(c *gin.Context) (domain.Leg, bool) {
	from, err1 := strconv.Atoi(c.Query("fromIndex"))
	to, err2 := strconv.Atoi(c.Query("toIndex"))
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fromIndex and toIndex must be integers"})
		return domain.Leg{}, false
	}
	return domain.Leg{From: from, To: to}, true
}

// Health reports liveness only; it does not touch the store.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
