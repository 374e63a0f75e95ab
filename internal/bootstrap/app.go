package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"myapp-api/internal/app"
	"myapp-api/internal/cache"
	"myapp-api/internal/config"
	"myapp-api/internal/logging"
	"myapp-api/internal/model"
	mysqlClient "myapp-api/internal/platform/mysql"
	rabbitmqClient "myapp-api/internal/platform/rabbitmq"
	redisClient "myapp-api/internal/platform/redis"
	s3Client "myapp-api/internal/platform/s3"
	"myapp-api/internal/repository"
	"myapp-api/internal/storage"
	"myapp-api/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger
	MySQL  *gorm.DB
	// Redis and MQConn are nil when their address is not configured.
	Redis       *redis.Client
	MQConn      *amqp.Connection
	EventWorker *worker.AccountEventWorker
	Blobs       app.BlobStore
	// LocalUploadDir is set when uploads are written to disk and served
	// under /uploads.
	LocalUploadDir string

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := logging.New(cfg.App.Env)
	if cfg.UsesDefaultSecret() {
		logger.Warn("using the default secret key; set SECRET_KEY outside development")
	}

	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}

	a.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := a.MySQL.AutoMigrate(&model.User{}, &model.AccountEvent{}); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	if cfg.Redis.Addr != "" {
		a.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	} else {
		logger.Info("redis disabled, account cache off")
	}

	if cfg.RabbitMQ.URL != "" {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.AccountEventQueue)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		eventRepo := repository.NewAccountEventRepository(a.MySQL)
		a.EventWorker = worker.NewAccountEventWorker(a.MQConn, eventRepo, cfg.RabbitMQ.AccountEventQueue, logger)
		if err := a.EventWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start account event worker failed: %w", err)
		}
	} else {
		logger.Info("rabbitmq disabled, account events off")
	}

	if err := a.initBlobs(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	logger.Info("bootstrap complete",
		"env", cfg.App.Env,
		"upload_backend", cfg.Upload.Backend,
		"algorithm", cfg.Auth.Algorithm,
	)
	return a, nil
}

func (a *App) initBlobs(ctx context.Context) error {
	up := a.Config.Upload
	switch up.Backend {
	case "s3":
		client, err := s3Client.New(ctx, s3Client.Options{
			Region:    up.S3Region,
			Endpoint:  up.S3Endpoint,
			AccessKey: up.S3AccessKey,
			SecretKey: up.S3SecretKey,
		})
		if err != nil {
			return err
		}
		a.Blobs = storage.NewS3Store(client, up.S3Bucket, up.S3PublicBase)
	default:
		local, err := storage.NewLocalStore(up.Dir)
		if err != nil {
			return fmt.Errorf("prepare upload dir failed: %w", err)
		}
		a.Blobs = local
		a.LocalUploadDir = local.Root()
	}
	return nil
}

// AccountCache returns nil when redis is disabled so callers get an untyped
// nil interface.
func (a *App) AccountCache() app.AccountCache {
	if a.Redis == nil {
		return nil
	}
	return cache.NewAccountCache(a.Redis, a.Config.AccountCacheTTL())
}

// EventPublisher returns nil when rabbitmq is disabled.
func (a *App) EventPublisher() app.EventPublisher {
	if a.MQConn == nil {
		return nil
	}
	return rabbitmqClient.NewEventPublisher(a.MQConn, a.Config.RabbitMQ.AccountEventQueue)
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
