package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evetools/indy/internal/db"
	"github.com/evetools/indy/internal/gateway"
	"github.com/evetools/indy/internal/platform/config"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/utils"
	"github.com/evetools/indy/internal/worker"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := config.Apply(log); err != nil {
		log.Fatal("Config file load failed", "error", err)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	structureRepo := repos.NewStructureRepo(thePG, log)
	marketOrderRepo := repos.NewMarketOrderRepo(thePG, log)
	industryIndexRepo := repos.NewIndustryIndexRepo(thePG, log)
	industryJobRepo := repos.NewIndustryJobRepo(thePG, log)
	ownedRepo := repos.NewOwnedRepo(thePG, log)
	contractRepo := repos.NewContractRepo(thePG, log)
	itemRepo := repos.NewItemRepo(thePG, log)
	workerTaskRepo := repos.NewWorkerTaskRepo(thePG, log)
	workerRegistryRepo := repos.NewWorkerRegistryRepo(thePG, log)

	// Gateway
	gatewayClient := gateway.NewClient(log)
	credentials := gateway.NewCredentialCache()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := worker.NewMetrics(registry)

	metricsAddr := utils.GetEnv("SERVICE_ADDRESS", ":9090", log)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		log.Info("Starting metrics server", "address", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Warn("Metrics server stopped", "error", err)
		}
	}()

	// Runner
	tasks := worker.NewTasks(
		log, gatewayClient, credentials,
		marketOrderRepo, industryIndexRepo, industryJobRepo,
		ownedRepo, contractRepo, itemRepo, structureRepo,
		workerTaskRepo, thePG,
	)
	runner := worker.NewRunner(log, workerTaskRepo, workerRegistryRepo, tasks, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal("Worker runner failed", "error", err)
	}
}
