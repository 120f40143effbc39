package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aescanero/fftdetect/internal/application/detections"
	"github.com/aescanero/fftdetect/internal/application/health"
	"github.com/aescanero/fftdetect/internal/application/workers"
	"github.com/aescanero/fftdetect/internal/config"
	"github.com/aescanero/fftdetect/internal/logging"
	"github.com/aescanero/fftdetect/pkg/adapters/events"
	"github.com/aescanero/fftdetect/pkg/adapters/events/memory"
	"github.com/aescanero/fftdetect/pkg/adapters/events/redis"
	"github.com/aescanero/fftdetect/pkg/adapters/host"
	"github.com/aescanero/fftdetect/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/fftdetect/pkg/api/grpc"
	"github.com/aescanero/fftdetect/pkg/api/http"
	"github.com/aescanero/fftdetect/pkg/api/websocket"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

// hubBuffer is the per-subscriber backlog of the live stream
const hubBuffer = 64

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, closeLogs, err := logging.New(logging.Config{
		Dir:        cfg.Logs.Dir,
		Level:      cfg.LogLevel,
		MaxSizeMB:  cfg.Logs.MaxSizeMB,
		MaxBackups: cfg.Logs.MaxBackups,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeLogs() }()

	logger.Debug("starting FFT detection server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	journal, err := logging.NewJournal(cfg.Logs.Dir)
	if err != nil {
		logger.Fatal("failed to create journal", zap.Error(err))
	}

	metricsCollector := prometheus.NewCollector()

	// Event sinks: the in-process hub always, Redis Streams when configured
	hub := memory.NewHub(hubBuffer, logger)
	sinks := []events.Sink{{Name: "memory", Publisher: hub}}

	var redisClient *goredis.Client
	if cfg.RedisEnabled() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		// Test Redis connection
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Debug("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		forwarder := workers.NewPool(
			redis.NewStreamsPublisher(redisClient, cfg.Redis.Stream, cfg.Redis.StreamMaxLen, logger),
			workers.Config{
				Name:      "redis",
				Size:      cfg.Redis.ForwardWorkers,
				QueueSize: cfg.Redis.ForwardQueue,
				Timeout:   cfg.Redis.WriteTimeout,
				OnFailure: metricsCollector.RecordPublishFailure,
				Logger:    logger,
			},
		)
		forwarder.Start()

		sinks = append(sinks, events.Sink{Name: "redis", Publisher: forwarder})
	}
	publisher := events.NewMulti(metricsCollector.RecordPublishFailure, sinks...)

	// Initialize application components
	probe := host.NewProbe(cfg.HTTPPort)
	recorder := detections.NewRecorder(journal, publisher, metricsCollector, logger)
	reporter := health.NewReporter(probe)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Addr:     cfg.GetHTTPAddr(),
		Recorder: recorder,
		Reporter: reporter,
		Journal:  journal,
		Metrics:  metricsCollector,
		Logger:   logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(hub, metricsCollector, logger)
	httpServer.SetupWebSocket(wsHandler)

	var grpcServer *grpc.Server
	if addr := cfg.GetGRPCAddr(); addr != "" {
		grpcServer, err = grpc.NewServer(&grpc.Config{
			Addr:   addr,
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("failed to create gRPC server", zap.Error(err))
		}
	}

	logDir, err := filepath.Abs(cfg.Logs.Dir)
	if err != nil {
		logDir = cfg.Logs.Dir
	}
	network, err := probe.NetworkInfo()
	if err != nil {
		logger.Warn("failed to enumerate network interfaces", zap.Error(err))
	}
	printBanner(os.Stdout, network, httpServer.Routes(), logDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Start servers
	g.Go(httpServer.Start)
	if grpcServer != nil {
		g.Go(grpcServer.Start)
	}

	// Graceful shutdown once a signal arrives or a server fails
	g.Go(func() error {
		<-gctx.Done()
		logger.Debug("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		listeners := []shutdowner{httpServer}
		if grpcServer != nil {
			listeners = append(listeners, grpcServer)
		}
		closers := []io.Closer{publisher}
		if redisClient != nil {
			closers = append(closers, redisClient)
		}
		return shutdown(shutdownCtx, listeners, closers)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		_ = closeLogs()
		os.Exit(1)
	}

	logger.Debug("FFT detection server shut down complete")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdown drains the listeners before closing the event sinks, so requests
// still in flight can publish their detections. Live streams are hijacked
// connections the HTTP server does not wait for; closing the hub ends them.
func shutdown(ctx context.Context, listeners []shutdowner, closers []io.Closer) error {
	var errs []error
	for _, l := range listeners {
		errs = append(errs, l.Shutdown(ctx))
	}
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
