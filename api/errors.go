package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps domain errors to HTTP statuses. Unknown errors are logged
// and answered with an opaque 500.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var conflict *domain.SeatConflictError
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "seats": conflict.Seats})
	case errors.Is(err, domain.ErrInvalidSeat), errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
	case errors.Is(err, domain.ErrRetryable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": domain.ErrRetryable.Error()})
	default:
		logger.For(c.Request.Context(), log).Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
