package server

import (
	"VoiceHub/config"
	"VoiceHub/events"
	"VoiceHub/handlers"
	"VoiceHub/limiter"
	custommiddleware "VoiceHub/middleware"
	"VoiceHub/models"
	"VoiceHub/redis"
	"VoiceHub/services"
	"VoiceHub/ws"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Server struct {
	Echo            *echo.Echo
	DB              *gorm.DB
	Config          *config.Config
	AuthHandler     *handlers.AuthHandler
	RoomHandler     *handlers.RoomHandler
	MicHandler      *handlers.MicHandler
	GiftHandler     *handlers.GiftHandler
	EarningsHandler *handlers.EarningsHandler
	WSHandler       *ws.Handler
}

func NewServer() *Server {
	// 加载配置，经济常量缺失直接启动失败
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := models.AutoMigrateAll(db); err != nil {
		log.Fatal("Failed to auto-migrate database:", err)
	}

	// Redis 和 Kafka 都是可选依赖：连不上降级运行，在线列表和事件流缺失而已
	var redisClient *redis.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, presence and rate limiting disabled:", err)
			redisClient = nil
		}
	}

	var producer *events.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		saramaCfg, err := events.NewSaramaConfig(&cfg.Kafka)
		if err != nil {
			log.Fatal("Invalid kafka configuration:", err)
		}
		producer, err = events.NewProducer(cfg.Kafka.Brokers, saramaCfg)
		if err != nil {
			log.Warn("Kafka unavailable, events disabled:", err)
			producer = nil
		}
	}

	// 初始化 Echo
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.PATCH},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentLength},
		MaxAge:           86400,
	}))

	hub := ws.NewRoomManager()
	authService := services.NewAuthService(db, &cfg.Auth)
	roomService := services.NewRoomService(db, redisClient)
	micService := services.NewMicService(db)
	giftService := services.NewGiftService(db, producer)
	closingService := services.NewClosingService(db, cfg.Economy, producer)
	payoutService := services.NewPayoutService(db, producer)

	s := &Server{
		Echo:            e,
		DB:              db,
		Config:          &cfg,
		AuthHandler:     handlers.NewAuthHandler(authService),
		RoomHandler:     handlers.NewRoomHandler(roomService, hub),
		MicHandler:      handlers.NewMicHandler(micService, hub),
		GiftHandler:     handlers.NewGiftHandler(giftService, hub),
		EarningsHandler: handlers.NewEarningsHandler(closingService, payoutService),
		WSHandler:       ws.NewHandler(hub, roomService),
	}

	// --- 设置路由 ---
	authMiddleware := custommiddleware.AuthMiddleware(authService)
	adminMiddleware := custommiddleware.AdminMiddleware()
	var giftLimit echo.MiddlewareFunc
	if redisClient != nil && cfg.Redis.GiftRateLimit > 0 {
		manager := limiter.NewManager(redisClient.Client, &limiter.FixedWindowStrategy{})
		window := time.Duration(cfg.Redis.GiftRateWindow) * time.Second
		if window <= 0 {
			window = time.Minute
		}
		giftLimit = custommiddleware.GiftRateLimitMiddleware(manager, cfg.Redis.GiftRateLimit, window)
	}
	s.SetupRoutes(authMiddleware, adminMiddleware, giftLimit)
	return s
}

func (s *Server) Start(addr string) {
	log.Fatal(s.Echo.Start(addr))
}
