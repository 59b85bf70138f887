package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ridwanfathin/labellens-service/internal/config"
	"github.com/ridwanfathin/labellens-service/internal/connectivity"
	"github.com/ridwanfathin/labellens-service/internal/handler"
	"github.com/ridwanfathin/labellens-service/internal/middleware"
	"github.com/ridwanfathin/labellens-service/internal/model"
)

const shutdownTimeout = 10 * time.Second

// Handlers groups the HTTP handlers mounted by the server. Orders is
// optional; its routes are only registered when it is set.
type Handlers struct {
	Scan          *handler.ScanHandler
	Queue         *handler.QueueHandler
	Products      *handler.ProductHandler
	Notifications *handler.NotificationHandler
	Orders        *handler.OrderHandler
}

// Server represents the HTTP server for the label scanning service
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	monitor    *connectivity.Monitor
	logger     zerolog.Logger
}

// NewServer creates and configures a new server instance
func NewServer(cfg *config.Config, handlers Handlers, monitor *connectivity.Monitor, logger zerolog.Logger) *Server {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.Use(middleware.RequestLogger(logger, middleware.LoggerConfig{
		SkipPaths: []string{"/health"},
		Bodies:    true,
	}))

	server := &Server{
		router:  router,
		config:  cfg,
		monitor: monitor,
		logger:  logger.With().Str("component", "server").Logger(),
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	server.setupRoutes(handlers)

	return server
}

// GetRouter returns the gin router instance
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// setupRoutes configures all application routes
func (s *Server) setupRoutes(h Handlers) {
	s.router.GET("/health", s.health)

	// Swagger UI at http://localhost:8080/api-docs/index.html
	swaggerHandler := ginSwagger.WrapHandler(swaggerFiles.Handler)
	s.router.GET("/api-docs/*any", swaggerHandler)

	s.router.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api-docs/index.html")
	})

	v1 := s.router.Group("/v1")

	scan := v1.Group("/scan")
	{
		scan.POST("/files", h.Scan.SelectFiles)
		scan.POST("/queue", h.Scan.SelectQueued)
		scan.GET("/session", h.Scan.GetSession)
		scan.PATCH("/session/fields", h.Scan.ChangeField)
		scan.POST("/session/confirm", h.Scan.Confirm)
		scan.POST("/session/skip", h.Scan.Skip)
		scan.POST("/session/cancel", h.Scan.Cancel)
		scan.POST("/session/suggestion", h.Products.ApplySuggestion)
	}

	queue := v1.Group("/queue")
	{
		queue.GET("", h.Queue.ListQueue)
		queue.GET("/:id/image", h.Queue.GetQueueImage)
		queue.PATCH("/:id", h.Queue.UpdateQueueItem)
		queue.DELETE("/:id", h.Queue.DeleteQueueItem)
	}
	v1.POST("/sync", h.Queue.Sync)
	v1.GET("/connectivity", h.Queue.GetConnectivity)
	v1.PUT("/connectivity", h.Queue.SetConnectivity)

	products := v1.Group("/products")
	{
		products.GET("", h.Products.ListProducts)
		products.GET("/names", h.Products.ListProductNames)
		products.DELETE("", h.Products.DeleteAllProducts)
		products.DELETE("/:serial", h.Products.DeleteProduct)
		products.POST("/:serial/edit", h.Products.EditProduct)
	}
	v1.GET("/images/:ref", h.Products.GetImage)
	v1.GET("/notifications", h.Notifications.ListNotifications)

	if h.Orders != nil {
		orders := v1.Group("/orders")
		{
			orders.POST("", h.Orders.PlaceOrder)
			orders.GET("", h.Orders.ListMyOrders)
			orders.GET("/all", h.Orders.ListAllOrders)
			orders.PATCH("/:id/status", h.Orders.UpdateOrderStatus)
			orders.PUT("/:id/items", h.Orders.UpdateOrderItems)
		}
	}
}

// health handles the GET /health endpoint
// @Summary Liveness
// @Tags health
// @Produce json
// @Success 200 {object} model.HealthResponse
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{
		Status:  "ok",
		Online:  s.monitor.Online(),
		Backend: s.config.StoreBackend,
	})
}

// Start serves requests until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", s.config.Port).Msg("server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info().Msg("server exited gracefully")
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
