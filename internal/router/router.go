package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edusetu/school-onboard-api/internal/handler"
	"github.com/edusetu/school-onboard-api/internal/middleware"
	"github.com/edusetu/school-onboard-api/internal/models"
	"github.com/edusetu/school-onboard-api/internal/repository"
	"github.com/edusetu/school-onboard-api/internal/service"
	"github.com/edusetu/school-onboard-api/pkg/config"
	"github.com/edusetu/school-onboard-api/pkg/logger"
	corsmiddleware "github.com/edusetu/school-onboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edusetu/school-onboard-api/pkg/middleware/requestid"
	"github.com/edusetu/school-onboard-api/pkg/storage"
)

// Dependencies carries everything the router needs to wire routes.
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	AuthService  *service.AuthService
	Registration *service.RegistrationService
	Teachers     *service.TeacherService
	Rosters      *service.RosterService
	Metrics      *service.MetricsService
	Users        *repository.UserRepository
	Uploads      *storage.LocalStorage
}

// New builds the gin engine with all routes and middleware attached.
func New(deps Dependencies) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	authHandler := handler.NewAuthHandler(deps.AuthService)
	registrationHandler := handler.NewRegistrationHandler(deps.Registration)
	teacherHandler := handler.NewTeacherHandler(deps.Teachers)
	rosterHandler := handler.NewRosterHandler(deps.Rosters, deps.Metrics, deps.Uploads)
	metricsHandler := handler.NewMetricsHandler(deps.Metrics)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(deps.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/teacher-login", authHandler.TeacherLogin)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(deps.AuthService), authHandler.Logout)
		auth.GET("/me", middleware.JWT(deps.AuthService), authHandler.Me)
	}

	registration := api.Group("/registration")
	{
		registration.POST("/principals", registrationHandler.RegisterPrincipal)
	}

	principals := api.Group("/principals")
	principals.Use(middleware.JWT(deps.AuthService), middleware.RequireRoles(models.RoleAdmin))
	{
		principals.PATCH("/:id/verify",
			middleware.Audit(deps.Users, models.AuditActionPrincipalVerify, "principal"),
			registrationHandler.VerifyPrincipal)
	}

	teachers := api.Group("/teachers")
	teachers.Use(middleware.JWT(deps.AuthService), middleware.RequireRoles(models.RolePrincipal))
	{
		teachers.GET("", teacherHandler.List)
		teachers.POST("", teacherHandler.Create)
		teachers.PUT("/:id", teacherHandler.Update)
		teachers.DELETE("/:id", teacherHandler.Delete)
	}

	rosters := api.Group("/rosters")
	rosters.Use(middleware.JWT(deps.AuthService), middleware.RequireRoles(models.RolePrincipal, models.RoleTeacher))
	{
		rosters.GET("", rosterHandler.List)
		rosters.POST("", rosterHandler.Create)
		rosters.PUT("/:id", rosterHandler.Update)
		rosters.DELETE("/:id", rosterHandler.Delete)
		rosters.GET("/:id/history", rosterHandler.History)
		rosters.POST("/import", rosterHandler.Import)
		rosters.POST("/final-submit", rosterHandler.FinalSubmit)
		rosters.GET("/export", rosterHandler.Export)
	}

	return r
}
