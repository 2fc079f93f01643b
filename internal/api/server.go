package api

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatepass/internal/cache"
	"gatepass/internal/config"
	"gatepass/internal/database"
	"gatepass/internal/external"
	"gatepass/internal/handlers"
	"gatepass/internal/messaging"
	"gatepass/internal/middleware"
	"gatepass/internal/qr"
	"gatepass/internal/ratelimit"
	"gatepass/internal/repository"
	"gatepass/internal/service"
)

// Server представляет HTTP сервер API
type Server struct {
	router     *gin.Engine
	config     *config.Config
	db         *database.DB
	nats       *messaging.NATSClient
	stripe     *external.StripeClient
	eventCache *cache.EventCache
	service    *service.TransactionService
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config) *Server {
	// Устанавливаем режим Gin
	gin.SetMode(cfg.GinMode)

	// Подключаемся к базе данных
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Запускаем миграции
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Подключаемся к NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	// Создаем клиент платежного провайдера
	stripeClient := external.NewStripeClient(cfg.Stripe)

	// Дедупликация событий опциональна: без Redis каждая доставка обрабатывается
	var eventCache *cache.EventCache
	if cfg.RedisAddr != "" {
		eventCache, err = cache.NewEventCache(cfg.Cache)
		if err != nil {
			log.Printf("Event dedup cache unavailable, continuing without it: %v", err)
			eventCache = nil
		}
	}

	// Собираем цепочку обработки событий
	store := repository.NewDocumentStore(db)
	writer := repository.NewTransactionWriter(store)
	transactions := service.NewTransactionService(stripeClient, qr.NewGenerator(), writer, natsClient)

	// Создаем роутер
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Применяем middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	// Лимитер стоит перед проверкой подписи и при превышении отвечает 429.
	// Провайдер передоставит такое событие позже, а дедупликация и
	// merge-запись делают повторную обработку безопасной.
	router.Use(middleware.RateLimit(ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)))

	// Создаем сервер
	server := &Server{
		router:     router,
		config:     cfg,
		db:         db,
		nats:       natsClient,
		stripe:     stripeClient,
		eventCache: eventCache,
		service:    transactions,
	}

	// Настраиваем роуты
	server.setupRoutes()

	return server
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	var dedup handlers.Deduplicator
	if s.eventCache != nil {
		dedup = s.eventCache
	}

	h := handlers.NewHandlers(s.stripe, s.service, dedup, s.db)

	api := s.router.Group("/api")
	{
		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/stripe", h.HandleWebhook)
		}
	}

	s.router.GET("/healthz", h.Healthz)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.eventCache != nil {
		if err := s.eventCache.Close(); err != nil {
			log.Printf("Error closing event cache: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}
