package main

// @title           Insurance Calc API
// @version         1.0
// @description     Cargo insurance rates: upload, query, update and calculate insurance with audited batch uploads.

// @contact.name   Insurance Calc maintainers
// @contact.url    https://github.com/custodia-labs/insurance-calc/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /api
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/custodia-labs/insurance-calc/docs"
	"github.com/custodia-labs/insurance-calc/internal/adapters/driven/auth"
	"github.com/custodia-labs/insurance-calc/internal/adapters/driven/kafka"
	"github.com/custodia-labs/insurance-calc/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/insurance-calc/internal/adapters/driven/redis"
	"github.com/custodia-labs/insurance-calc/internal/adapters/driving/http"
	"github.com/custodia-labs/insurance-calc/internal/config"
	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driving"
	"github.com/custodia-labs/insurance-calc/internal/core/services"
	"github.com/custodia-labs/insurance-calc/internal/seed"
	"github.com/custodia-labs/insurance-calc/internal/worker"
)

var version = "dev"

// Run modes
const (
	modeDeploy = "deploy"
	modeRun    = "run"
	modeAll    = "all"
)

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := os.Getenv("RUN_MODE")
	if mode == "" {
		mode = modeAll
	}
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	logger.Info("insurance-calc starting", "version", version, "mode", mode, "environment", cfg.Environment)

	// Cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, mode, cfg, logger); err != nil {
		logger.Error("insurance-calc stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, mode string, cfg *config.Config, logger *slog.Logger) error {
	switch mode {
	case modeDeploy, modeRun, modeAll:
	default:
		return fmt.Errorf("unknown mode: %s (use: deploy, run, or all)", mode)
	}

	// ===== Initialize PostgreSQL =====
	logger.Info("connecting to PostgreSQL", "host", cfg.DBHost, "database", cfg.DBBase)
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.DatabaseURL(),
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		StorageTimeout:  cfg.StorageTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if redisURL := cfg.RedisURL(); redisURL != "" {
		logger.Info("connecting to Redis", "host", cfg.RedisHost)
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
	}

	// ===== Driven adapters =====
	hasher := auth.NewHasherWithCost(cfg.BcryptCost, 0)
	signer, err := auth.NewTokenSigner(cfg.SecretKey, cfg.Algorithm, auth.WithTTL(cfg.TokenTTL()))
	if err != nil {
		return fmt.Errorf("create token signer: %w", err)
	}
	credentialStore := postgres.NewCredentialStore(db)
	rateStore := postgres.NewRateStore(db)

	authService := services.NewAuthService(credentialStore, hasher, signer)

	if mode == modeDeploy || mode == modeAll {
		// Deploy never audits: seeding goes through Upsert only
		insuranceService := services.NewInsuranceService(rateStore, rateStore, nil)
		if err := deploy(ctx, cfg, db, redisClient, authService, insuranceService, logger); err != nil {
			return err
		}
		if mode == modeDeploy {
			return nil
		}
	}

	// ===== Audit pipeline =====
	producer, err := newEventProducer(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	publisher := services.NewAuditPublisher(services.AuditPublisherConfig{
		Producer: producer,
		Logger:   logger.With("component", "audit"),
	})
	auditWorker := worker.NewWorker(worker.WorkerConfig{
		Publisher:      publisher,
		Logger:         logger.With("component", "audit-worker"),
		Concurrency:    cfg.AuditWorkers,
		QueueSize:      cfg.AuditQueueSize,
		PublishTimeout: cfg.PublishTimeout,
	})
	if err := auditWorker.Start(ctx); err != nil {
		return fmt.Errorf("start audit worker: %w", err)
	}
	defer auditWorker.Stop()

	insuranceService := services.NewInsuranceService(rateStore, rateStore, auditWorker)

	// ===== HTTP API =====
	var redisPinger http.Pinger
	if redisClient != nil {
		redisPinger = http.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	serverCfg := http.DefaultConfig()
	serverCfg.Host = cfg.Host
	serverCfg.Port = cfg.Port
	serverCfg.Version = version
	serverCfg.Logger = logger.With("component", "http")

	server := http.NewServer(serverCfg, authService, insuranceService, db, redisPinger)
	return server.Start(ctx)
}

// deploy initializes the schema and applies the seed under the deploy lock
func deploy(
	ctx context.Context,
	cfg *config.Config,
	db *postgres.DB,
	redisClient *redis.Client,
	authService driving.AuthService,
	insuranceService driving.InsuranceService,
	logger *slog.Logger,
) error {
	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	logger.Info("schema initialized")

	// Distributed lock (Redis if available, otherwise PostgreSQL advisory locks)
	var lock driven.DistributedLock
	if redisClient != nil {
		lock = redisadapter.NewLock(redisClient)
		logger.Info("using Redis distributed lock")
	} else {
		lock = postgres.NewAdvisoryLock(db)
		logger.Info("using PostgreSQL advisory lock")
	}

	data, err := seed.Load(cfg.SeedFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load seed: %w", err)
		}
		logger.Warn("seed file not found, creating administrator only", "path", cfg.SeedFile)
		data = &domain.SeedData{}
	}

	bootstrapper := services.NewBootstrapper(services.BootstrapConfig{
		Auth:          authService,
		Insurance:     insuranceService,
		Lock:          lock,
		AdminUsername: cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		Logger:        logger.With("component", "deploy"),
	})

	result, err := bootstrapper.Deploy(ctx, data)
	if err != nil {
		return fmt.Errorf("deploy: %w", err)
	}
	if result.Skipped {
		logger.Info("deploy skipped, lock held elsewhere")
	}
	return nil
}

// newEventProducer builds the audit transport selected by AUDIT_TRANSPORT
func newEventProducer(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (driven.EventProducer, error) {
	switch cfg.AuditTransport {
	case config.TransportRedis:
		producer, err := redisadapter.NewStreamProducer(redisClient, redisadapter.StreamProducerConfig{})
		if err != nil {
			return nil, fmt.Errorf("create redis audit producer: %w", err)
		}
		if err := producer.EnsureTopic(ctx, domain.AuditTopicInsurance, cfg.AuditTopicPartitions); err != nil {
			return nil, fmt.Errorf("register audit topic: %w", err)
		}
		slog.Info("using Redis streams audit transport", "partitions", cfg.AuditTopicPartitions)
		return producer, nil
	default:
		producer, err := kafka.NewProducer(kafka.Config{
			BootstrapServers: cfg.KafkaBootstrapServers,
			ClientID:         "insurance-calc",
		})
		if err != nil {
			return nil, fmt.Errorf("create kafka audit producer: %w", err)
		}
		slog.Info("using Kafka audit transport", "brokers", producer.Brokers())
		return producer, nil
	}
}
