package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/config"
	"github.com/uniresearch/research-portal-backend/internal/about"
	"github.com/uniresearch/research-portal-backend/internal/auditlog"
	"github.com/uniresearch/research-portal-backend/internal/auth"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/charts"
	"github.com/uniresearch/research-portal-backend/internal/equipment"
	"github.com/uniresearch/research-portal-backend/internal/event"
	"github.com/uniresearch/research-portal-backend/internal/grant"
	"github.com/uniresearch/research-portal-backend/internal/lab"
	"github.com/uniresearch/research-portal-backend/internal/metrics"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/partner"
	"github.com/uniresearch/research-portal-backend/internal/publication"
	"github.com/uniresearch/research-portal-backend/internal/spreadsheet"
	"github.com/uniresearch/research-portal-backend/internal/storage"
	"github.com/uniresearch/research-portal-backend/internal/validation"
	"github.com/uniresearch/research-portal-backend/middleware"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/uniresearch/research-portal-backend/docs"
)

// Deps are the long-lived collaborators main builds before routing.
type Deps struct {
	DB      *gorm.DB
	Storage *storage.Service
	Feed    changefeed.Feed
	Tokens  auth.TokenStore
	Charts  charts.Cache // nil means per-process memory cache
}

// Models lists every table the portal migrates at startup.
func Models() []interface{} {
	return []interface{}{
		&auth.User{},
		&auditlog.AuditLog{},
		&event.Event{},
		&grant.Grant{},
		&publication.Publication{},
		&equipment.Equipment{},
		&lab.Lab{},
		&equipment.LabEquipment{},
		&partner.Partner{},
		&about.AboutContent{},
	}
}

func corsConfig(cfg *config.Config) cors.Config {
	return cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Content-Length", "X-Requested-With", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

func Setup(r *gin.Engine, cfg *config.Config, d Deps) {
	validation.UseJSONFieldNames()

	r.Use(cors.New(corsConfig(cfg)))
	r.Use(metrics.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		status, code := "OK", http.StatusOK
		if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "DB_UNAVAILABLE", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status})
	})
	r.GET("/metrics", metrics.Handler())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	storageHandler := storage.NewHandler(d.Storage)
	r.GET("/storage/:bucket/*path", storageHandler.Serve)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimiter(cfg.RateLimitPerMinute))
	api.Use(middleware.AuditMiddleware()) // client ip for the audit log

	// ========== Shared services ==========
	auditSvc := auditlog.NewService(auditlog.NewRepository(d.DB))
	recorder := mutation.NewRecorder(auditSvc, d.Feed)

	authSvc := auth.NewService(auth.NewRepository(d.DB), cfg, d.Tokens)
	authHandler := auth.NewHandler(authSvc)

	eventSvc := event.NewService(event.NewRepository(d.DB), recorder, d.Storage)
	grantSvc := grant.NewService(grant.NewRepository(d.DB), recorder, d.Storage)
	publicationSvc := publication.NewService(publication.NewRepository(d.DB), recorder)
	equipmentSvc := equipment.NewService(equipment.NewRepository(d.DB), recorder)
	labSvc := lab.NewService(lab.NewRepository(d.DB), recorder)
	partnerSvc := partner.NewService(partner.NewRepository(d.DB), recorder, d.Storage)
	aboutSvc := about.NewService(d.DB, recorder)

	chartSvc := charts.NewService(d.DB, d.Charts)
	d.Feed.Subscribe(chartSvc.Invalidate)

	eventHandler := event.NewHandler(eventSvc)
	grantHandler := grant.NewHandler(grantSvc)
	publicationHandler := publication.NewHandler(publicationSvc)
	equipmentHandler := equipment.NewHandler(equipmentSvc)
	labHandler := lab.NewHandler(labSvc)
	partnerHandler := partner.NewHandler(partnerSvc)
	aboutHandler := about.NewHandler(aboutSvc)
	auditHandler := auditlog.NewHandler(auditSvc)

	exportHandler := spreadsheet.NewHandler(map[string]spreadsheet.Source{
		"events":       eventSvc,
		"grants":       grantSvc,
		"publications": publicationSvc,
		"labs":         labSvc,
		"equipment":    equipmentSvc,
		"partners":     partnerSvc,
		"audit-logs":   auditSvc,
	})

	// ========== Auth ==========
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/session", middleware.OptionalAuth(cfg, authSvc), authHandler.Session)
	}

	// ========== Public ==========
	api.GET("/events", eventHandler.ListEvents)
	api.GET("/events/:id", eventHandler.GetEvent)
	api.GET("/grants", grantHandler.ListGrants)
	api.GET("/grants/:id", grantHandler.GetGrant)
	api.GET("/publications", publicationHandler.ListPublications)
	api.GET("/publications/:id", publicationHandler.GetPublication)
	api.GET("/labs", labHandler.ListLabs)
	api.GET("/labs/:id", labHandler.GetLab)
	api.GET("/labs/:id/equipment", labHandler.ListLabEquipment)
	api.GET("/equipment", equipmentHandler.ListEquipment)
	api.GET("/partners", partnerHandler.ListPartners)
	api.GET("/about", aboutHandler.GetAbout)

	charts.NewHandler(chartSvc).Register(api)

	// ========== Admin ==========
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg, authSvc))
	admin.Use(middleware.RBACMiddleware(auth.RoleAdmin, auth.RoleEditor, auth.RoleViewer))
	admin.Use(middleware.RequireWriteAccess())
	{
		admin.GET("/events", eventHandler.ListAdminEvents)
		admin.GET("/events/stats", eventHandler.GetStats)
		admin.POST("/events", eventHandler.CreateEvent)
		admin.PUT("/events/:id", eventHandler.UpdateEvent)
		admin.DELETE("/events/:id", eventHandler.DeleteEvent)
		admin.POST("/events/:id/image", eventHandler.UploadImage)

		admin.GET("/grants", grantHandler.ListAdminGrants)
		admin.POST("/grants", grantHandler.CreateGrant)
		admin.POST("/grants/import", grantHandler.ImportGrants)
		admin.GET("/grants/imports", grantHandler.ListImportFiles)
		admin.PUT("/grants/:id", grantHandler.UpdateGrant)
		admin.DELETE("/grants/:id", grantHandler.DeleteGrant)

		admin.GET("/publications", publicationHandler.ListAdminPublications)
		admin.POST("/publications", publicationHandler.CreatePublication)
		admin.PUT("/publications/:id", publicationHandler.UpdatePublication)
		admin.DELETE("/publications/:id", publicationHandler.DeletePublication)

		admin.GET("/labs", labHandler.ListAdminLabs)
		admin.POST("/labs", labHandler.CreateLab)
		admin.PUT("/labs/:id", labHandler.UpdateLab)
		admin.DELETE("/labs/:id", labHandler.DeleteLab)
		admin.POST("/labs/:id/equipment", labHandler.AssignEquipment)
		admin.PUT("/labs/:id/equipment/:equipmentId", labHandler.UpdateEquipmentQuantity)
		admin.DELETE("/labs/:id/equipment/:equipmentId", labHandler.RemoveEquipment)

		admin.GET("/equipment", equipmentHandler.ListAdminEquipment)
		admin.POST("/equipment", equipmentHandler.CreateEquipment)
		admin.PUT("/equipment/:id", equipmentHandler.UpdateEquipment)
		admin.DELETE("/equipment/:id", equipmentHandler.DeleteEquipment)

		admin.GET("/partners", partnerHandler.ListAdminPartners)
		admin.POST("/partners", partnerHandler.CreatePartner)
		admin.PUT("/partners/:id", partnerHandler.UpdatePartner)
		admin.DELETE("/partners/:id", partnerHandler.DeletePartner)
		admin.POST("/partners/:id/logo", partnerHandler.UploadLogo)

		admin.PUT("/about", aboutHandler.UpdateAbout)

		for _, entity := range exportHandler.Entities() {
			if entity == "audit-logs" {
				continue
			}
			admin.GET("/"+entity+"/export", exportHandler.For(entity))
		}
	}

	// ========== Audit Logs (admin only) ==========
	auditRoutes := admin.Group("/audit-logs")
	auditRoutes.Use(middleware.RBACMiddleware(auth.RoleAdmin))
	{
		auditRoutes.GET("", auditHandler.GetAuditLogs)
		auditRoutes.GET("/stats", auditHandler.GetAuditLogStats)
		auditRoutes.GET("/export", exportHandler.For("audit-logs"))
		auditRoutes.GET("/:id", auditHandler.GetAuditLogByID)
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
