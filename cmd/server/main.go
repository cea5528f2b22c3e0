package main

import (
	"context"
	"fmt"
	"os"

	"github.com/evetools/indy/internal/db"
	"github.com/evetools/indy/internal/handlers"
	"github.com/evetools/indy/internal/middleware"
	"github.com/evetools/indy/internal/platform/config"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/sde"
	"github.com/evetools/indy/internal/server"
	"github.com/evetools/indy/internal/services"
	"github.com/evetools/indy/internal/solver"
	"github.com/evetools/indy/internal/utils"
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

	// Static data
	log.Info("Loading static data...")
	static, err := sde.Load(context.Background(), thePG, log)
	if err != nil {
		log.Fatal("Static data load failed", "error", err)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	structureRepo := repos.NewStructureRepo(thePG, log)
	projectRepo := repos.NewProjectRepo(thePG, log)
	projectJobRepo := repos.NewProjectJobRepo(thePG, log)
	marketOrderRepo := repos.NewMarketOrderRepo(thePG, log)
	industryIndexRepo := repos.NewIndustryIndexRepo(thePG, log)
	industryJobRepo := repos.NewIndustryJobRepo(thePG, log)
	assignmentRepo := repos.NewAssignmentRepo(thePG, log)
	workerTaskRepo := repos.NewWorkerTaskRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	marketSolver := solver.New(log)
	projectService := services.NewProjectService(log, thePG, static, projectRepo, projectJobRepo, structureRepo, industryIndexRepo)
	startableService := services.NewStartableService(log, static, projectRepo, projectJobRepo)
	reconcileService := services.NewReconcileService(log, thePG, projectRepo, projectJobRepo, industryJobRepo)
	shoppingService := services.NewShoppingService(log, marketSolver, projectRepo, marketOrderRepo)
	assignmentService := services.NewAssignmentService(log, thePG, assignmentRepo, projectRepo, projectJobRepo)

	// Middleware
	authMiddleware, err := middleware.NewAuthMiddleware(log)
	if err != nil {
		log.Fatal("Auth middleware init failed", "error", err)
	}

	// Handlers
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:    authMiddleware,
		ProjectHandler:    handlers.NewProjectHandler(projectService, startableService),
		StructureHandler:  handlers.NewStructureHandler(structureRepo),
		ShoppingHandler:   handlers.NewShoppingHandler(shoppingService),
		ReconcileHandler:  handlers.NewReconcileHandler(reconcileService),
		AssignmentHandler: handlers.NewAssignmentHandler(assignmentService),
		TaskHandler:       handlers.NewTaskHandler(workerTaskRepo),
	})

	addr := utils.GetEnv("APP_ADDRESS", ":8080", log)
	log.Info("Starting HTTP server", "address", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal("HTTP server failed", "error", err)
	}
}
