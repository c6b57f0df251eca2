package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	httpapi "github.com/immxrtalbeast/burnchat/internal/api/http"
	"github.com/immxrtalbeast/burnchat/internal/config"
	"github.com/immxrtalbeast/burnchat/internal/realtime"
	"github.com/immxrtalbeast/burnchat/internal/repository"
	"github.com/immxrtalbeast/burnchat/internal/service"
	"github.com/immxrtalbeast/burnchat/lib/logger/sl"
	"github.com/immxrtalbeast/burnchat/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

// store is everything the services and the health check need from storage.
type store interface {
	repository.RoomRepository
	repository.MessageRepository
	httpapi.Pinger
}

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	var client *redis.Client
	if needsRedis(cfg) {
		var err error
		client, err = connectRedis(cfg.Redis)
		if err != nil {
			log.Error("failed to connect redis", sl.Err(err))
			os.Exit(1)
		}
	}

	st := setupStore(cfg.Storage, client, log)

	broker, err := setupBroker(cfg.Realtime, client, log)
	if err != nil {
		log.Error("failed to set up realtime broker", sl.Err(err))
		os.Exit(1)
	}

	emitter := realtime.NewEmitter(broker)
	settings := service.RoomSettings{
		TTL:             cfg.Room.TTL,
		DefaultMaxUsers: cfg.Room.DefaultMaxUsers,
		MinUsers:        cfg.Room.MinUsers,
		MaxUsers:        cfg.Room.MaxUsers,
	}

	gate := service.NewGate(st, log)
	roomService := service.NewRoomService(st, emitter, settings, log)
	messageService := service.NewMessageService(st, service.NewTTLSynchronizer(st, log), emitter, log)

	router := httpapi.SetupRouter(
		httpapi.RouterOptions{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			RequestTimeout: cfg.HTTP.RequestTimeout,
			SecureCookies:  cfg.HTTP.SecureCookies,
		},
		gate,
		st,
		httpapi.NewRoomController(roomService, log),
		httpapi.NewMessageController(messageService),
		httpapi.NewRealtimeController(broker, cfg.HTTP.AllowedOrigins, log),
	)

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("starting application",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("storage", cfg.Storage.Driver),
			slog.String("realtime", cfg.Realtime.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", sl.Err(err))
			os.Exit(1)
		}
	}()

	ops := map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
		"realtime": func(ctx context.Context) error {
			return broker.Close()
		},
	}
	if client != nil {
		ops["redis"] = func(ctx context.Context) error {
			return client.Close()
		}
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, ops)
	exitCode := <-wait
	log.Info("application stopped", slog.Int("exit_code", exitCode))
	os.Exit(exitCode)
}

func needsRedis(cfg *config.Config) bool {
	if cfg.Storage.Driver != config.DriverMemory {
		return true
	}
	return cfg.Realtime.Driver != config.DriverNATS && cfg.Realtime.Driver != config.DriverMemory
}

func connectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout+time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func setupStore(cfg config.StorageConfig, client *redis.Client, log *slog.Logger) store {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using in-memory storage, rooms will not survive a restart")
		return repository.NewInMemoryStore()
	}
	return repository.NewRedisStore(client)
}

func setupBroker(cfg config.RealtimeConfig, client *redis.Client, log *slog.Logger) (realtime.Broker, error) {
	switch cfg.Driver {
	case config.DriverNATS:
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("burnchat"))
		if err != nil {
			return nil, fmt.Errorf("connect nats %s: %w", cfg.NATSURL, err)
		}
		return realtime.NewNATSBroker(nc, cfg.SubscriberBuffer, log), nil
	case config.DriverMemory:
		return realtime.NewMemoryBroker(cfg.SubscriberBuffer, log), nil
	default:
		return realtime.NewRedisBroker(client, cfg.SubscriberBuffer, log), nil
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
