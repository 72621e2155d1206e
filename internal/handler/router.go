package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-docs-api/internal/middleware"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/internal/service"
	"github.com/noah-isme/compliance-docs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/compliance-docs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/compliance-docs-api/pkg/middleware/requestid"
)

// RouterConfig carries the HTTP-level settings of the router.
type RouterConfig struct {
	APIPrefix      string
	ServiceName    string
	AllowedOrigins []string
	EnableDocs     bool
	MaxUploadBytes int64
}

// Handlers groups every HTTP handler. Files is nil unless the local file store is used.
type Handlers struct {
	Companies     *CompanyHandler
	Projects      *ProjectHandler
	Categories    *CategoryHandler
	Users         *UserHandler
	Documents     *DocumentHandler
	RecordFormats *DocumentHandler
	RecordEntries *RecordEntryHandler
	Dashboard     *DashboardHandler
	Reports       *ReportHandler
	Admin         *AdminHandler
	Metrics       *MetricsHandler
	Files         *FileHandler
}

// RouterDeps is everything NewRouter needs.
type RouterDeps struct {
	Config   RouterConfig
	Handlers Handlers
	Auth     middleware.Authenticator
	Metrics  *service.MetricsService
	Audit    middleware.AuditWriter
	Logger   *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := gin.New()
	if deps.Config.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = deps.Config.MaxUploadBytes
	}
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(deps.Config.AllowedOrigins))
	r.Use(middleware.Tracing(deps.Config.ServiceName))
	r.Use(middleware.Metrics(deps.Metrics))

	h := deps.Handlers
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if deps.Config.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if h.Files != nil {
		r.GET("/files/download", h.Files.Download)
	}

	prefix := deps.Config.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta(), middleware.Auth(deps.Auth))

	companies := api.Group("/companies")
	companies.GET("", h.Companies.List)
	companies.GET("/:id", h.Companies.Get)
	companies.POST("", middleware.RequireAdmin(), h.Companies.Create)
	companies.PUT("/:id", middleware.RequireAdmin(), h.Companies.Update)
	companies.DELETE("/:id", middleware.RequireAdmin(), h.Companies.Delete)

	projects := api.Group("/projects")
	projects.GET("", h.Projects.List)
	projects.GET("/:id", h.Projects.Get)
	projects.POST("", middleware.RequireAdmin(), h.Projects.Create)
	projects.PUT("/:id", middleware.RequireAdmin(), h.Projects.Update)
	projects.DELETE("/:id", middleware.RequireAdmin(), h.Projects.Delete)

	categories := api.Group("/categories")
	categories.GET("", h.Categories.List)
	categories.GET("/:id", h.Categories.Get)
	categories.POST("", middleware.RequireAdmin(), h.Categories.Create)
	categories.POST("/import", middleware.RequireAdmin(), h.Categories.Import)
	categories.PUT("/:id", middleware.RequireAdmin(), h.Categories.Update)
	categories.DELETE("/:id", middleware.RequireAdmin(), h.Categories.Delete)

	api.GET("/me", h.Users.Me)
	users := api.Group("/users")
	users.GET("", h.Users.List)
	users.GET("/:id", h.Users.Get)
	users.POST("", middleware.RequireAdmin(), h.Users.Create)
	users.PUT("/:id", middleware.RequireAdmin(), h.Users.Update)
	users.DELETE("/:id", middleware.RequireAdmin(), h.Users.Deactivate)

	registerTrack(api.Group("/documents"), h.Documents, deps.Audit, "document")
	formats := api.Group("/record-formats")
	registerTrack(formats, h.RecordFormats, deps.Audit, "record_format")
	formats.POST("/:id/entries", h.RecordEntries.Create)

	entries := api.Group("/record-entries")
	entries.GET("", h.RecordEntries.List)
	entries.GET("/:id", h.RecordEntries.Get)
	entries.POST("/:id/decision", h.RecordEntries.Decide)
	entries.GET("/:id/download", middleware.Audit(deps.Audit, models.AuditActionFileDownload, "record_entry"), h.RecordEntries.Download)
	entries.DELETE("/:id", middleware.RequireAdmin(), h.RecordEntries.Delete)

	api.GET("/dashboard", h.Dashboard.Summary)
	api.GET("/reports/compliance", h.Reports.Compliance)

	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.POST("/expirations/reconcile", h.Admin.Reconcile)
	admin.GET("/audit-logs", h.Admin.AuditLogs)
	admin.GET("/metrics", h.Metrics.Snapshot)

	return r
}

func registerTrack(g *gin.RouterGroup, h *DocumentHandler, audit middleware.AuditWriter, resource string) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.POST("/:id/versions", h.AddVersion)
	g.PUT("/:id/versions/:versionId/activate", middleware.RequireAdmin(), h.ActivateVersion)
	g.POST("/:id/versions/deactivate", middleware.RequireAdmin(), h.DeactivateVersions)
	g.POST("/:id/status", h.Transition)
	g.GET("/:id/versions/:versionId/download", middleware.Audit(audit, models.AuditActionFileDownload, resource), h.Download)
	g.DELETE("/:id", middleware.RequireAdmin(), h.Delete)
}
