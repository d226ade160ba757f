package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rag-assistant/config"
	"rag-assistant/database"
	"rag-assistant/documents"
	"rag-assistant/rag"
	"rag-assistant/vectorstore"
	"rag-assistant/web/handlers"
	"rag-assistant/web/middleware"
)

type Server struct {
	router  *gin.Engine
	limiter *middleware.ClientRateLimiter
	logger  *zap.Logger
	config  *config.Config
}

func NewServer(
	cfg *config.Config,
	ragService *rag.RAG,
	store vectorstore.Store,
	registry *database.PostgresStore,
	extractor *documents.Extractor,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Set("logger", logger)
		c.Next()
	})

	limiter := middleware.NewClientRateLimiter(middleware.RateLimiterConfig{
		MessagesPerMinute: cfg.RateLimitMessagesPerMin,
		FilesPerHour:      cfg.RateLimitFilesPerHour,
		BurstSize:         cfg.RateLimitBurstSize,
	}, logger)

	server := &Server{
		router:  router,
		limiter: limiter,
		logger:  logger,
		config:  cfg,
	}

	server.setupRoutes(ragService, store, registry, extractor)
	return server
}

func (s *Server) setupRoutes(
	ragService *rag.RAG,
	store vectorstore.Store,
	registry *database.PostgresStore,
	extractor *documents.Extractor,
) {
	chatHandler := handlers.NewChatHandler(ragService, s.logger)
	searchHandler := handlers.NewSearchHandler(ragService, s.logger)
	documentsHandler := handlers.NewDocumentsHandler(s.config, ragService, registry, extractor, s.logger)
	healthHandler := handlers.NewHealthHandler(store, registry, s.logger)

	messageLimit := middleware.RateLimitMiddleware(s.limiter, "message")
	fileLimit := middleware.RateLimitMiddleware(s.limiter, "file")

	api := s.router.Group("/api")
	api.POST("/chat", messageLimit, chatHandler.Ask)
	api.POST("/search", messageLimit, searchHandler.Search)

	s.router.POST("/upload", fileLimit, documentsHandler.Upload)
	s.router.GET("/documents", documentsHandler.List)
	s.router.POST("/documents/delete", documentsHandler.Delete)
	s.router.POST("/purge", documentsHandler.Purge)
	s.router.GET("/health", healthHandler.Health)
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()

	s.logger.Info("Shutting down web server")
	s.limiter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
