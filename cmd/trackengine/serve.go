// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/trackengine/pkg/logging"
	"github.com/AleutianAI/trackengine/services/trackengine/config"
	"github.com/AleutianAI/trackengine/services/trackengine/geometry"
	"github.com/AleutianAI/trackengine/services/trackengine/observability"
	"github.com/AleutianAI/trackengine/services/trackengine/resilience"
	"github.com/AleutianAI/trackengine/services/trackengine/routes"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the track generation HTTP and websocket server",
	RunE:  runServe,
}

// initTracer wires the OTLP gRPC exporter when a collector endpoint is
// configured. Returns a nil cleanup when tracing is disabled.
func initTracer(ctx context.Context, log *logging.Logger) (func(context.Context), error) {
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		log.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return nil, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("trackengine-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			log.Error("failed to shutdown OTLP exporter", "error", err.Error())
		}
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		LogDir:  cfg.LogDir,
		Service: "trackengine",
		JSON:    true,
	})
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanup, err := initTracer(ctx, log)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup(context.Background())
	}

	observability.InitMetrics()
	metrics := observability.DefaultMetrics

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		OpenDuration:     cfg.Breaker.OpenDuration.Std(),
		OnStateChange: func(from, to resilience.CircuitState) {
			metrics.BreakerTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
			log.Warn("circuit breaker state change",
				"from", from.String(), "to", to.String())
		},
	})
	limiter := resilience.NewAdmissionLimiter(
		cfg.RateLimit.Limit, cfg.RateLimit.Window.Std())
	pipeline := geometry.NewPipeline(log)
	manager := config.NewManager(cfg)

	router := gin.New()
	router.Use(gin.Recovery())
	if cleanup != nil {
		router.Use(otelgin.Middleware("trackengine-service"))
	}
	routes.SetupRoutes(router, pipeline, breaker, limiter, manager, log)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if configPath != "" {
		g.Go(func() error {
			if err := manager.Watch(ctx, configPath, log); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
