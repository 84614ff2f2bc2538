package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/grpc/admin"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/repository/mongostore"
	"github.com/fjod/go_storefront/internal/repository/sqlstore"
	"github.com/fjod/go_storefront/internal/service"
	sig "github.com/fjod/go_storefront/internal/signal"
	"github.com/fjod/go_storefront/internal/sweeper"
	"github.com/fjod/go_storefront/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Relational store: products, orders and (by default) cart lines
	store, err := openStore(cfg)
	if err != nil {
		log.Fatal("failed to open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer store.Close()
	if err := store.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("migrations completed", zap.String("driver", store.Dialect()))

	var carts repository.CartRepository = store
	if cfg.CartBackend == "mongo" {
		mongoCarts, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatal("failed to open MongoDB cart store", zap.Error(err))
		}
		defer mongoCarts.Close(context.Background())
		carts = mongoCarts
		log.Info("cart lines stored in MongoDB", zap.String("db", cfg.MongoDBName))
	}

	var redisClient *redis.Client
	var cartCache cache.CartCache = cache.Nop{}
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		cartCache = cache.NewRedisCache(redisClient)
		log.Info("Redis ping succeeded", zap.String("addr", cfg.RedisAddr))
	}

	notifier, closeNotifier := buildNotifier(cfg, log, redisClient)
	defer closeNotifier()

	if cfg.TossSecretKey == "" {
		log.Warn("TOSS_SECRET_KEY is not set, payment confirmation will fail")
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set, every authenticated request will be refused")
	}
	paymentClient := payment.NewClient(cfg.TossBaseURL, cfg.TossSecretKey, cfg.PaymentTimeout, log)

	cartService := service.NewCartService(carts, store, cartCache, notifier, log)
	orderService := service.NewOrderService(cartService, store, notifier, log)
	paymentService := service.NewPaymentService(store, paymentClient, notifier, log, cfg.PaymentTimeout)
	adminService := service.NewAdminService(store, notifier, log)

	validator := h.NewValidator()
	router := h.NewRouter(h.RouterConfig{
		JWTSecret:          cfg.JWTSecret,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, h.Handlers{
		Cart:     h.NewCartHandler(cartService, validator, log, cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(orderService, validator, log, cfg.RequestTimeout),
		Payments: h.NewPaymentsHandler(paymentService, validator, log, cfg.RequestTimeout),
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront HTTP API starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Back-office admin gRPC
	grpcServer := grpc.NewServer(append(
		admin.ServerOptions(cfg.JWTSecret, log),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)...)
	admin.RegisterOrderAdminServer(grpcServer, admin.NewServer(adminService, log))
	// Enable reflection for grpcurl (admin token required)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.AdminGRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.String("port", cfg.AdminGRPCPort), zap.Error(err))
	}
	go func() {
		log.Info("admin gRPC listening", zap.String("port", cfg.AdminGRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("admin gRPC stopped", zap.Error(err))
		}
	}()

	go sweeper.New(store, log, cfg.OrphanSweepInterval, cfg.OrphanGrace).Run(ctx)

	// Graceful shutdown
	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	log.Info("storefront stopped")
}

func openStore(cfg *config.Config) (*sqlstore.Repository, error) {
	switch cfg.DBDriver {
	case "postgres":
		return sqlstore.NewPostgres(&cfg.DB)
	case "sqlite":
		return sqlstore.NewSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// buildNotifier connects the configured signal backends. A backend that cannot be reached is
// skipped with a warning; signals are best effort.
func buildNotifier(cfg *config.Config, log *zap.Logger, redisClient *redis.Client) (service.Notifier, func()) {
	var publishers []sig.Publisher
	var closers []func()

	if cfg.HasSignalBackend("kafka") {
		if len(cfg.KafkaBrokers) == 0 {
			log.Warn("kafka signals requested but KAFKA_BROKERS is empty")
		} else {
			publishers = append(publishers, sig.NewKafkaPublisher(log, cfg.KafkaTopic, true, cfg.KafkaBrokers...))
		}
	}

	if cfg.HasSignalBackend("rabbitmq") {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Warn("rabbitmq unavailable, signals disabled for it", zap.Error(err))
		} else {
			p, err := sig.NewRabbitPublisher(conn, cfg.RabbitMQQueue)
			if err != nil {
				log.Warn("rabbitmq publisher setup failed", zap.Error(err))
				conn.Close()
			} else {
				publishers = append(publishers, p)
				closers = append(closers, func() { conn.Close() })
			}
		}
	}

	if cfg.HasSignalBackend("redis") {
		if redisClient == nil {
			log.Warn("redis signals requested but REDIS_ADDR is empty")
		} else {
			publishers = append(publishers, sig.NewRedisPublisher(redisClient, sig.DefaultRedisChannel))
		}
	}

	if len(publishers) == 0 {
		return sig.Nop{}, func() {}
	}

	fanout := sig.NewFanout(log, 2*time.Second, publishers...)
	return fanout, func() {
		if err := fanout.Close(); err != nil {
			log.Warn("failed to close signal publishers", zap.Error(err))
		}
		for _, c := range closers {
			c()
		}
	}
}
