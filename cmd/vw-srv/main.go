package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/fatelord/visionworkbench/internal/buildinfo"
	vw "github.com/fatelord/visionworkbench/internal/config"
	"github.com/fatelord/visionworkbench/internal/export"
	"github.com/fatelord/visionworkbench/internal/ingest"
	"github.com/fatelord/visionworkbench/internal/logging"
	"github.com/fatelord/visionworkbench/internal/metrics"
	"github.com/fatelord/visionworkbench/internal/query"
	"github.com/fatelord/visionworkbench/internal/server"
	"github.com/fatelord/visionworkbench/internal/setup"
	"github.com/fatelord/visionworkbench/internal/shutdown"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintf(
		os.Stdout,
		"%s: %s, %s\n",
		buildinfo.Info.Name(),
		buildinfo.Info.Time(),
		buildinfo.Info.Tag(),
	)

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	if err := run(ctx, done); err != nil {
		logger.Fatal(err)
	}

	defer done()
}

func run(ctx context.Context, cancel func()) error {
	var (
		shutdownCh    chan error
		shutdownCount = 2
	)
	config := vw.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}

	if config.SvcModeType == vw.SvcModeTypeScrape {
		shutdownCount++
	}

	shutdownCh = make(chan error, shutdownCount)
	notifier, err := env.ProvideNotifier()(shutdownCh)
	if err != nil {
		return fmt.Errorf("notifier provider function error: %w", err)
	}
	reg, err := env.ProvideRegistry()(notifier, shutdownCh)
	if err != nil {
		return fmt.Errorf("registry provider function error: %w", err)
	}

	if config.SvcModeType == vw.SvcModeTypeScrape {
		scrapper, err := env.ProvideScrapper()(reg, shutdownCh)
		if err != nil {
			return fmt.Errorf("scrapperCaller: %w", err)
		}
		if err := scrapper.Run(ctx); err != nil {
			return fmt.Errorf("scrapperRun: %w", err)
		}
	} else if err := reg.Run(ctx); err != nil {
		return fmt.Errorf("registry.Run: %w", err)
	}

	srv, err := server.New(config.SrvAddr, config.MaxConns)
	if err != nil {
		return fmt.Errorf("sever.New: %w", err)
	}

	mux := http.NewServeMux()

	queryHandler, err := query.NewHandler(&config.Query, reg)
	if err != nil {
		return fmt.Errorf("query.NewHandler: %w", err)
	}
	exportHandler, err := export.NewHandler(&config.Export, reg, env.Cacher())
	if err != nil {
		return fmt.Errorf("export.NewHandler: %w", err)
	}
	metricsHandler, err := metrics.NewExporter()
	if err != nil {
		return fmt.Errorf("metrics.NewExporter: %w", err)
	}

	mux.Handle("/query", queryHandler)
	mux.Handle("/export", exportHandler)
	mux.Handle("/metrics", metricsHandler)
	mux.Handle("/health", server.HandleHealth(ctx))

	if config.SvcModeType == vw.SvcModeTypeIngest {
		ingestHandler, err := ingest.NewHandler(&config.Ingest, reg)
		if err != nil {
			return fmt.Errorf("ingest.NewHandler: %w", err)
		}
		mux.Handle("/ingest", ingestHandler)
	}

	if config.GRPCAddr != "" {
		grpcSrv := grpc.NewServer()
		healthSvc := health.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, healthSvc)
		healthSvc.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		grpcServer, err := server.New(config.GRPCAddr, config.MaxConns)
		if err != nil {
			return fmt.Errorf("sever.New: %w", err)
		}
		go func() {
			if err := grpcServer.ServeGRPC(ctx, grpcSrv); err != nil {
				cancel()
			}
		}()
	}

	go func() {
		if err := srv.ServeHTTPHandler(ctx, mux); err != nil {
			cancel()
		}
	}()

	go func() {
		if err := http.ListenAndServe("0.0.0.0:8080", nil); err != nil {
			cancel()
		}
	}()

	return <-shutdownCh
}
