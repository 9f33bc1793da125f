package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"llm-router/internal/llm-router/api"
	"llm-router/internal/llm-router/config"
	"llm-router/internal/llm-router/journal"
	"llm-router/internal/llm-router/metrics"
	"llm-router/internal/llm-router/service"
	"llm-router/internal/llm-router/service/llm"
	"llm-router/internal/llm-router/service/registry"
	"llm-router/internal/llm-router/service/routing"
	"llm-router/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Backend credentials may live in a local .env file
	_ = godotenv.Load()

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.NewLogger(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})

	reg, err := registry.FromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to build backend registry: %v", err)
	}
	state := routing.NewState(reg.IDs())
	providers := llm.NewProviders(reg, &http.Client{})

	var attempts service.AttemptJournal
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Fatalf("Failed to open attempt journal: %v", err)
		}
		defer store.Close()
		attempts = store
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	routerService := service.NewRouterService(cfg, service.Dependencies{
		Registry:  reg,
		State:     state,
		Providers: providers,
		Journal:   attempts,
		Metrics:   metrics.NewMetrics(promRegistry),
	})

	reporter, err := service.NewStatsReporter(cfg.Routing.StatsSchedule, state)
	if err != nil {
		log.Fatalf("Failed to schedule routing stats: %v", err)
	}
	reporter.Start()
	defer reporter.Stop()

	// Initialize router
	router := api.NewRouter(cfg, routerService, promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.WriteTimeout(),
	}

	go func() {
		logger.Info("Starting server", "address", addr, "backends", reg.Available(cfg.RoutingOrder()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
}
