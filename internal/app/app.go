package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinesync/server/internal/catalog"
	"github.com/cinesync/server/internal/controller"
	"github.com/cinesync/server/internal/registry"
	"github.com/cinesync/server/internal/relay"
	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/ctxlogger"
	"github.com/cinesync/server/pkg/redisclient"
)

type AppConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	LogLevel       string `json:"log_level"`
	ChatLogLimit   int    `json:"chat_log_limit"`
	MembersLimit   int    `json:"members_limit"`
	RoomCodeLength int    `json:"room_code_length"`
	CatalogURL     string `json:"catalog_url"`
	RedisHost      string `json:"redis_host"`
	RedisPort      int    `json:"redis_port"`
	RedisPassword  string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.ChatLogLimit < 1 {
		return fmt.Errorf("chat log limit must be greater than 0")
	}
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.RoomCodeLength < 4 {
		return fmt.Errorf("room code length must be at least 4")
	}
	if cfg.CatalogURL == "" {
		return fmt.Errorf("catalog url must be set")
	}

	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}
	logger := slog.New(&h)

	// the catalog cache is optional; without redis every lookup hits the
	// catalog service directly
	var catalogCache *redis.Client
	if cfg.RedisHost != "" {
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()
		catalogCache = rc
	}

	eventRelay := relay.New(logger)
	roomRegistry := registry.New(eventRelay, &registry.Config{
		ChatLogLimit: cfg.ChatLogLimit,
		CodeLength:   cfg.RoomCodeLength,
		MembersLimit: cfg.MembersLimit,
	}, logger)
	catalogClient := catalog.NewClient(cfg.CatalogURL, catalogCache, logger)
	roomService := room.NewService(roomRegistry, eventRelay, catalogClient, logger)
	ctrl := controller.NewController(roomService, eventRelay, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: ctrl.GetMux(),
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
