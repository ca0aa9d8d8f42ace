package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bag2go/bag2go/api"
	"github.com/bag2go/bag2go/config"
	"github.com/bag2go/bag2go/internal/auth"
	"github.com/bag2go/bag2go/internal/service/fulfillment"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, fulfillmentSvc fulfillment.FulfillmentUseCase) error {
	router := NewRouter(cfg, fulfillmentSvc)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(cfg *config.Config, fulfillmentSvc fulfillment.FulfillmentUseCase) *gin.Engine {
	router := gin.Default()

	authMW := auth.NewMiddleware(cfg.Auth.JWTSecret)
	orderHandler := api.NewOrderHandler(fulfillmentSvc)
	orderHandler.Register(router.Group("/api"), authMW.Require(auth.RoleUser))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	)))

	return router
}
