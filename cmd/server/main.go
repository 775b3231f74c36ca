package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-feed/config"
	"github.com/d60-Lab/social-feed/internal/api"
	"github.com/d60-Lab/social-feed/internal/api/handler"
	"github.com/d60-Lab/social-feed/internal/model"
	"github.com/d60-Lab/social-feed/internal/realtime"
	"github.com/d60-Lab/social-feed/internal/repository"
	"github.com/d60-Lab/social-feed/internal/service"
	"github.com/d60-Lab/social-feed/pkg/database"
	"github.com/d60-Lab/social-feed/pkg/logger"
	"github.com/d60-Lab/social-feed/pkg/tracing"
)

// @title Social Feed API
// @version 1.0
// @description 帖子、评论树、乐观点赞与实时通知
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var migrate bool
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and live session server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	serve.Flags().BoolVar(&migrate, "migrate", false, "run AutoMigrate before serving")

	root := &cobra.Command{
		Use:           "social-feed",
		Short:         "Social feed aggregation and interaction service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(*cobra.Command, []string) error {
			return runMigrate()
		},
	})
	return root
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if err := database.AutoMigrate(db, model.All()...); err != nil {
		return err
	}
	logger.Info("migration complete", zap.String("driver", cfg.Database.Driver))
	return nil
}

func runServe(parent context.Context, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			SampleRate:       cfg.Sentry.SampleRate,
			AttachStacktrace: true,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if migrate {
		if err := database.AutoMigrate(db, model.All()...); err != nil {
			return err
		}
	}

	bus, closeBus, err := newBus(ctx, cfg)
	if err != nil {
		return err
	}

	posts := repository.NewPostRepository(db)
	profiles := repository.NewProfileRepository(db)
	comments := repository.NewCommentRepository(db)
	notes := repository.NewNotificationRepository(db)

	emitter := service.NewNotificationEmitter(notes, bus, cfg.Realtime.QueueSize)
	stopEmitter := emitter.Start(cfg.Realtime.Workers)

	h := handler.NewHandler(
		service.NewFeedService(posts, profiles, cfg.Feed),
		service.NewInteractionService(posts, comments, repository.NewLikeRepository(db), emitter, cfg.Feed),
		service.NewProfileService(profiles),
		service.NewNotificationService(notes),
		bus,
		cfg.Feed,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.SetupRouter(cfg, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("realtime", cfg.Realtime.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := stopEmitter(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained", zap.Int("pending", emitter.QueueLen()), zap.Error(err))
	}
	if err := closeBus(); err != nil {
		logger.Warn("close realtime bus", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
	return nil
}

// newBus 按配置选择事件总线；返回的 close 同时释放 redis 连接
func newBus(ctx context.Context, cfg *config.Config) (realtime.Bus, func() error, error) {
	switch cfg.Realtime.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		bus := realtime.NewRedisBus(client, cfg.Realtime.Buffer)
		return bus, func() error {
			return errors.Join(bus.Close(), client.Close())
		}, nil
	case "memory", "":
		bus := realtime.NewMemoryBus(cfg.Realtime.Buffer)
		return bus, bus.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported realtime driver %q", cfg.Realtime.Driver)
}
