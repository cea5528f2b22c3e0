package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/evetools/indy/internal/handlers"
	"github.com/evetools/indy/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware    *middleware.AuthMiddleware
	ProjectHandler    *handlers.ProjectHandler
	StructureHandler  *handlers.StructureHandler
	ShoppingHandler   *handlers.ShoppingHandler
	ReconcileHandler  *handlers.ReconcileHandler
	AssignmentHandler *handlers.AssignmentHandler
	TaskHandler       *handlers.TaskHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Structures
	protected.POST("/structures", cfg.StructureHandler.Create)
	protected.GET("/structures", cfg.StructureHandler.List)
	protected.PUT("/structures/:id", cfg.StructureHandler.Update)
	protected.DELETE("/structures/:id", cfg.StructureHandler.Delete)

	// Planning and projects
	protected.POST("/plan", cfg.ProjectHandler.Plan)
	protected.POST("/projects", cfg.ProjectHandler.Create)
	protected.GET("/projects", cfg.ProjectHandler.List)
	protected.GET("/projects/:id", cfg.ProjectHandler.Get)
	protected.PATCH("/projects/:id/status", cfg.ProjectHandler.UpdateStatus)
	protected.DELETE("/projects/:id", cfg.ProjectHandler.Delete)
	protected.PUT("/projects/:id/stock", cfg.ProjectHandler.SetStock)
	protected.POST("/projects/:id/misc", cfg.ProjectHandler.AddMisc)
	protected.GET("/projects/:id/startable", cfg.ProjectHandler.Startable)
	protected.POST("/projects/:id/ready", cfg.ProjectHandler.MarkReady)

	// Shopping
	protected.POST("/projects/:id/price", cfg.ShoppingHandler.Price)

	// Reconciliation
	protected.GET("/reconcile/candidates", cfg.ReconcileHandler.Candidates)
	protected.POST("/reconcile/assign", cfg.ReconcileHandler.Assign)
	protected.POST("/reconcile/unassign", cfg.ReconcileHandler.Unassign)
	protected.POST("/reconcile/replace", cfg.ReconcileHandler.Replace)
	protected.POST("/reconcile/done", cfg.ReconcileHandler.MarkDone)

	// Assignments
	protected.POST("/assignments", cfg.AssignmentHandler.Create)
	protected.GET("/assignments", cfg.AssignmentHandler.List)
	protected.GET("/assignments/:id", cfg.AssignmentHandler.Get)
	protected.POST("/assignments/:id/started", cfg.AssignmentHandler.MarkStarted)
	protected.DELETE("/assignments/:id", cfg.AssignmentHandler.Delete)

	// Worker queue (read only)
	protected.GET("/tasks", cfg.TaskHandler.List)
	protected.GET("/tasks/:id", cfg.TaskHandler.Get)

	return router
}
