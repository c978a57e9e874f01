package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/claims-tracker/internal/app"
	"github.com/joseph-ayodele/claims-tracker/internal/async"
	"github.com/joseph-ayodele/claims-tracker/internal/common"
	"github.com/joseph-ayodele/claims-tracker/internal/ingest"
)

// pipelineService is the health service name reported alongside the overall status.
const pipelineService = "claims.Pipeline"

func main() {
	configPath := flag.String("config", "", "YAML config file overlaid on the environment")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// the supervisor stamps time
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{WithStore: true})
	if err != nil {
		logger.Error("failed to initialize", "error", err, "class", common.Classify(err))
		os.Exit(1)
	}
	defer a.Close()

	queue := async.NewProcessorQueue(app.ProcessHandler(a.Processor, cfg.Server.UploadDir), logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(512),
		async.WithProcessTimeout(cfg.LLM.Timeout*3+cfg.Scoring.Timeout),
	)

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Server.InboxDir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to watch inbox", "inbox", cfg.Server.InboxDir, "error", err)
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(pipelineService, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	logger.Info("claimsd listening", "addr", addr, "inbox", cfg.Server.InboxDir, "workers", cfg.Server.Workers)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()

	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case path, ok := <-events:
			if !ok {
				done = true
				break
			}
			job := async.Job{Path: path, SubmittedAt: time.Now(), TraceID: uuid.NewString()}
			if err := queue.Enqueue(ctx, job); err != nil {
				logger.Warn("failed to enqueue document", "path", path, "error", err)
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				break
			}
			logger.Warn("inbox watcher error", "error", err)
		}
	}

	logger.Info("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(pipelineService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("stopped")
}
