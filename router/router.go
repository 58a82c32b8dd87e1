package router

import (
	"time"

	"github.com/NomadCrew/ap-workbench/config"
	"github.com/NomadCrew/ap-workbench/handlers"
	"github.com/NomadCrew/ap-workbench/internal/websocket"
	"github.com/NomadCrew/ap-workbench/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies holds everything the routes are built from.
type Dependencies struct {
	Config          *config.Config
	RedisClient     *redis.Client // nil disables rate limiting
	SessionHandler  *handlers.SessionHandler
	CopilotHandler  *handlers.CopilotHandler
	JobHandler      *handlers.JobHandler
	DocumentHandler *handlers.DocumentHandler
	InvoiceHandler  *handlers.InvoiceHandler
	RulesHandler    *handlers.RulesHandler
	HealthHandler   *handlers.HealthHandler
	EventsHandler   *websocket.Handler
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))

	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API docs, generated from the handler annotations by swag init
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	copilotLimit := middleware.SessionRateLimiter(deps.RedisClient, "copilot", deps.Config.RateLimit.CopilotPerMinute, time.Minute)
	uploadLimit := middleware.SessionRateLimiter(deps.RedisClient, "uploads", deps.Config.RateLimit.UploadsPerMinute, time.Minute)

	v1 := r.Group("/v1")
	{
		v1.POST("/sessions", deps.SessionHandler.CreateSessionHandler)

		sessionRoutes := v1.Group("/sessions/:sid")
		sessionRoutes.Use(middleware.RequireSessionID())
		{
			sessionRoutes.GET("", deps.SessionHandler.GetSessionHandler)
			sessionRoutes.DELETE("", deps.SessionHandler.CloseSessionHandler)
			sessionRoutes.GET("/events", deps.EventsHandler.HandleEvents)

			// Review
			sessionRoutes.POST("/invoices/:invoiceId", deps.SessionHandler.SelectInvoiceHandler)
			sessionRoutes.DELETE("/invoice", deps.SessionHandler.CloseInvoiceHandler)
			sessionRoutes.GET("/dossier", deps.SessionHandler.GetSessionHandler)
			sessionRoutes.POST("/dossier/refresh", deps.SessionHandler.RefreshDossierHandler)
			sessionRoutes.PUT("/edits", deps.SessionHandler.SetFieldHandler)
			sessionRoutes.DELETE("/edits", deps.SessionHandler.DiscardEditsHandler)
			sessionRoutes.POST("/edits/save", deps.SessionHandler.SaveEditsHandler)
			sessionRoutes.PUT("/notes", deps.SessionHandler.SaveNotesHandler)
			sessionRoutes.PUT("/gl-code", deps.SessionHandler.SaveGLCodeHandler)
			sessionRoutes.POST("/transition", deps.SessionHandler.TransitionHandler)

			// Assistant and side canvas
			sessionRoutes.POST("/copilot", copilotLimit, deps.CopilotHandler.AskHandler)
			sessionRoutes.DELETE("/canvas", deps.SessionHandler.CloseCanvasHandler)

			// Ingestion
			sessionRoutes.GET("/jobs", deps.JobHandler.ActiveJobsHandler)
			sessionRoutes.POST("/jobs/upload", uploadLimit, deps.JobHandler.UploadHandler)
			sessionRoutes.POST("/jobs/sync", uploadLimit, deps.JobHandler.SyncHandler)

			// Document viewer
			sessionRoutes.GET("/documents", deps.DocumentHandler.ListDocumentsHandler)
			sessionRoutes.POST("/documents", deps.DocumentHandler.OpenDocumentHandler)
		}

		documentRoutes := v1.Group("/documents")
		{
			documentRoutes.GET("/:handle", deps.DocumentHandler.StreamDocumentHandler)
			documentRoutes.DELETE("/:handle", deps.DocumentHandler.ReleaseDocumentHandler)
		}

		jobRoutes := v1.Group("/jobs")
		{
			jobRoutes.GET("", deps.JobHandler.ListJobsHandler)
			jobRoutes.GET("/:id", deps.JobHandler.GetJobHandler)
			jobRoutes.GET("/:id/invoices", deps.JobHandler.JobInvoicesHandler)
		}

		invoiceRoutes := v1.Group("/invoices")
		{
			invoiceRoutes.GET("", deps.InvoiceHandler.ListInvoicesHandler)
			invoiceRoutes.POST("/search", deps.InvoiceHandler.SearchHandler)
			invoiceRoutes.GET("/:invoiceId/comments", deps.InvoiceHandler.CommentsHandler)
			invoiceRoutes.POST("/:invoiceId/comments", deps.InvoiceHandler.AddCommentHandler)
			invoiceRoutes.GET("/:invoiceId/audit-log", deps.InvoiceHandler.AuditLogHandler)
		}

		ruleRoutes := v1.Group("/rules")
		{
			ruleRoutes.GET("", deps.RulesHandler.ListRulesHandler)
			ruleRoutes.POST("", deps.RulesHandler.CreateRuleHandler)
			ruleRoutes.GET("/export", deps.RulesHandler.ExportRulesHandler)
			ruleRoutes.POST("/import", deps.RulesHandler.ImportRulesHandler)
			ruleRoutes.PUT("/:id", deps.RulesHandler.UpdateRuleHandler)
			ruleRoutes.DELETE("/:id", deps.RulesHandler.DeleteRuleHandler)
		}

		v1.GET("/heuristics", deps.RulesHandler.HeuristicsHandler)
		v1.POST("/heuristics/:id/promote", deps.RulesHandler.PromoteHeuristicHandler)
	}

	return r
}
