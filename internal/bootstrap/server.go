package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/busbooking/api"
	"github.com/Domenick1991/busbooking/config"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

const swaggerSpec = "busbooking.swagger.json"

// Handlers are the API groups mounted under /api.
type Handlers struct {
	Bookings *api.BookingHandler
	Catalog  *api.CatalogHandler
}

// Run serves HTTP until ctx is cancelled or the server fails, then shuts
// down gracefully.
func Run(ctx context.Context, cfg *config.Config, h Handlers, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewRouter(cfg, h, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("http server stopped")
		return nil
	}
}

func NewRouter(cfg *config.Config, h Handlers, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), AccessLog(logger), Recovery(logger))

	router.GET("/healthz", api.Health)

	group := router.Group("/api")
	h.Catalog.Register(group)
	h.Bookings.Register(group.Group("/bookings"))

	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/swagger", cfg.HTTP.SwaggerDir)
		docs := httpSwagger.Handler(httpSwagger.URL("/swagger/" + swaggerSpec))
		router.GET("/docs", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
		})
		router.GET("/docs/*any", gin.WrapH(docs))
	}
	return router
}
