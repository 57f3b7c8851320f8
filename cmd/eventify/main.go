package main

import (
	"context"
	"database/sql"

	config "github.com/davicafu/eventify/internal/config"
	eventApp "github.com/davicafu/eventify/internal/event/application"
	eventDomain "github.com/davicafu/eventify/internal/event/domain"
	eventHttp "github.com/davicafu/eventify/internal/event/infra/inbound/http"
	eventMongo "github.com/davicafu/eventify/internal/event/infra/outbound/db/mongodb"
	eventSQLite "github.com/davicafu/eventify/internal/event/infra/outbound/db/sqlite"
	orderApp "github.com/davicafu/eventify/internal/order/application"
	orderDomain "github.com/davicafu/eventify/internal/order/domain"
	orderHttp "github.com/davicafu/eventify/internal/order/infra/inbound/http"
	orderClickhouse "github.com/davicafu/eventify/internal/order/infra/outbound/analytics/clickhouse"
	orderMongo "github.com/davicafu/eventify/internal/order/infra/outbound/db/mongodb"
	orderPostgres "github.com/davicafu/eventify/internal/order/infra/outbound/db/postgres"
	orderSQLite "github.com/davicafu/eventify/internal/order/infra/outbound/db/sqlite"
	"github.com/davicafu/eventify/internal/order/infra/outbound/payment"
	"github.com/davicafu/eventify/internal/routeguard"
	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	sharedDomainEvents "github.com/davicafu/eventify/internal/shared/domain/events"
	infraEvents "github.com/davicafu/eventify/internal/shared/infra/events"
	infraRelayer "github.com/davicafu/eventify/internal/shared/infra/relayer"
	sharedBus "github.com/davicafu/eventify/internal/shared/infra/platform/bus"
	userApp "github.com/davicafu/eventify/internal/user/application"
	userDomain "github.com/davicafu/eventify/internal/user/domain"
	userEvents "github.com/davicafu/eventify/internal/user/infra/inbound/events"
	userHttp "github.com/davicafu/eventify/internal/user/infra/inbound/http"
	userCache "github.com/davicafu/eventify/internal/user/infra/outbound/cache"
	userMongo "github.com/davicafu/eventify/internal/user/infra/outbound/db/mongodb"
	userSQLite "github.com/davicafu/eventify/internal/user/infra/outbound/db/sqlite"
	"github.com/davicafu/eventify/internal/user/infra/outbound/identity"

	"github.com/davicafu/eventify/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	// ---------------- DB ----------------
	var userRepository userDomain.UserRepository
	var eventRepository eventDomain.EventRepository
	var orderRepository orderDomain.OrderRepository

	// Repos que alimentan a los outbox workers. En SQLite la tabla outbox es
	// compartida, así que basta un repo por almacén físico.
	var outboxSources []sharedDomain.OutboxRepository

	if cfg.LocalDeployment {
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping SQLite", zap.Error(err))
		}

		if err := userSQLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite", zap.Error(err))
		}
		if err := eventSQLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite events", zap.Error(err))
		}
		if err := orderSQLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite orders", zap.Error(err))
		}

		userRepo := userSQLite.NewUserRepoSQLite(db)
		userRepository = userRepo
		eventRepository = eventSQLite.NewEventRepoSQLite(db)
		orderRepository = orderSQLite.NewOrderRepoSQLite(db)

		outboxSources = append(outboxSources, userRepo)
	} else {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer client.Disconnect(ctx)

		userRepo, err := userMongo.NewUserRepoMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			log.Fatal("failed to initialize Mongo user repo", zap.Error(err))
		}
		userRepository = userRepo

		eventRepository, err = eventMongo.NewEventRepoMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			log.Fatal("failed to initialize Mongo event repo", zap.Error(err))
		}

		outboxSources = append(outboxSources, userRepo)

		if cfg.PostgresDSN != "" {
			pgdb, err := sql.Open("pgx", cfg.PostgresDSN)
			if err != nil {
				log.Fatal("failed to open Postgres", zap.Error(err))
			}
			defer pgdb.Close()

			if err := orderPostgres.InitPostgres(pgdb); err != nil {
				log.Fatal("failed to initialize Postgres", zap.Error(err))
			}

			orderRepo := orderPostgres.NewOrderRepoPostgres(pgdb)
			orderRepository = orderRepo
			outboxSources = append(outboxSources, orderRepo)
		} else {
			orderRepo, err := orderMongo.NewOrderRepoMongoDB(ctx, client, cfg.MongoDB)
			if err != nil {
				log.Fatal("failed to initialize Mongo order repo", zap.Error(err))
			}
			// El outbox de órdenes vive en la misma colección que el de
			// usuarios: ya lo drena el worker de Mongo.
			orderRepository = orderRepo
		}
	}

	// ---------------- Cache ----------------
	var cacheInstance userDomain.UserCache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria:", zap.Error(err))
		cacheInstance = userCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		cacheInstance = userCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ------------- Proveedores externos -------------
	var metadataPusher userDomain.MetadataPusher
	if cfg.ClerkSecretKey != "" {
		pusher, err := identity.NewClerkMetadataClient(cfg.ClerkSecretKey)
		if err != nil {
			log.Fatal("failed to initialize Clerk client", zap.Error(err))
		}
		metadataPusher = pusher
	} else {
		log.Warn("⚠️ CLERK_SECRET_KEY ausente: sin push de metadatos al proveedor de identidad")
	}

	var gateway orderDomain.PaymentGateway
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		g, err := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, log)
		if err != nil {
			log.Fatal("failed to initialize payment gateway", zap.Error(err))
		}
		gateway = g
	} else {
		log.Warn("⚠️ Credenciales de Razorpay ausentes: los checkouts de pago se abortarán")
	}

	var checkoutLog orderDomain.CheckoutLog
	if cfg.ClickHouseAddr != "" {
		analytics, err := orderClickhouse.NewOrderAnalyticsRepo(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, sin analítica de checkout", zap.Error(err))
		} else if err := analytics.InitSchema(); err != nil {
			log.Warn("⚠️ No se pudo inicializar el esquema de ClickHouse", zap.Error(err))
		} else {
			checkoutLog = analytics
			log.Info("✅ ClickHouse conectado, analítica de checkout habilitada")
		}
	}

	// --------------- Servicios --------------
	userService := userApp.NewUserSyncService(userRepository, cacheInstance, metadataPusher, log)
	eventService := eventApp.NewEventService(eventRepository, log)
	checkoutService := orderApp.NewCheckoutService(
		eventService,
		orderRepository,
		gateway,
		checkoutLog,
		cfg.ServerURL,
		cfg.RazorpayKeyID,
		log,
	)

	// ---------------- Events ---------------
	var eventPublisher sharedBus.EventPublisher

	directoryConsumer := userEvents.NewUserDirectoryConsumer(cacheInstance, log)

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		writer := kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   userDomain.UserTopic,
		})
		defer writer.Close()

		eventPublisher = infraEvents.NewKafkaPublisher(writer, log)

		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    userDomain.UserTopic,
			GroupID:  "eventify-directory",
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		})
		defer reader.Close()

		consumerAdapter := infraEvents.NewConsumerAdapter(reader, directoryConsumer, log)
		consumerAdapter.Start(ctx)
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")

		inMemoryBus := infraEvents.NewInMemoryEventBus(userDomain.UserTopic)
		eventPublisher = inMemoryBus

		log.Info("🎧 Iniciando listener en memoria para eventos de usuario")
		userEvents.BackgroundConsumerChan(ctx, inMemoryBus.Subscribe(10), directoryConsumer)
	}

	// ------------ Outbox Worker ------------
	// Se podría ejecutar externamente
	eventRegistry := make(map[string]sharedDomainEvents.EventMetadata)

	// Merge de los registros de cada dominio
	for k, v := range userDomain.NewEventRegistry() {
		eventRegistry[k] = v
	}
	for k, v := range eventDomain.NewEventRegistry() {
		eventRegistry[k] = v
	}
	for k, v := range orderDomain.NewEventRegistry() {
		eventRegistry[k] = v
	}

	for _, source := range outboxSources {
		worker := infraRelayer.NewOutboxWorker(source, eventPublisher, eventRegistry, cfg.OutboxPeriod, cfg.OutboxLimit, log)
		worker.Start(ctx)
	}

	// ---------------- HTTP ----------------
	router := gin.Default()

	classifier := routeguard.NewClassifier(routeguard.DefaultPublicRoutes(), routeguard.DefaultIgnoredRoutes())
	var sessionVerifier routeguard.SessionVerifier
	if cfg.ClerkJWKSURL != "" {
		verifier, err := routeguard.NewClerkSessionVerifier(cfg.ClerkJWKSURL)
		if err != nil {
			log.Fatal("failed to initialize session verifier", zap.Error(err))
		}
		sessionVerifier = verifier
	} else {
		log.Warn("⚠️ CLERK_JWKS_URL ausente: las rutas protegidas redirigirán siempre al sign-in")
	}
	router.Use(routeguard.Middleware(classifier, sessionVerifier, cfg.SignInURL, log))

	webhookHandler := userHttp.NewWebhookHandler(cfg.WebhookSecret, userService, log)
	userHandler := userHttp.NewUserHandler(userService)
	eventHandler := eventHttp.NewEventHandler(eventService)
	checkoutHandler := orderHttp.NewCheckoutHandler(checkoutService)

	userHttp.RegisterWebhookRoutes(router, webhookHandler)
	userHttp.RegisterUserRoutes(router, userHandler)
	eventHttp.RegisterEventRoutes(router, eventHandler)
	orderHttp.RegisterCheckoutRoutes(router, checkoutHandler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTPPort),
	)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server: %v", zap.Error(err))
	}
}
