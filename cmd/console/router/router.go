package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"sw360-console/cmd/console/auth"
	"sw360-console/cmd/console/dto"
	"sw360-console/cmd/console/handlers"
	"sw360-console/cmd/console/middleware"
	"sw360-console/cmd/console/views"
	_ "sw360-console/docs"
)

const apiPrefix = "/api/v1"

func New(env *handlers.Env, tokens *auth.JWTManager, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace(), apiCORS(allowedOrigins))
	r.SetHTMLTemplate(views.Templates())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := env.Client.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, dto.HealthResponseDTO{Status: "degraded", Backend: "down", Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, dto.HealthResponseDTO{Status: "ok"})
	})

	// Swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET(middleware.SignInPath, handlers.SignInPageHandler(env))
	r.POST(middleware.SignInPath, handlers.SignInHandler(env))

	pages := r.Group("/", middleware.SessionGuard(env.Cookie, tokens, env.Sessions))
	{
		pages.GET("/", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, "/components") })
		pages.POST("/signout", handlers.SignOutHandler(env))
		pages.POST("/notifications/:id/dismiss", handlers.NotificationDismissHandler(env))

		for _, res := range env.Resources {
			pages.GET("/"+res.Name(), handlers.ListHandler(env, res))
			pages.POST("/"+res.Name()+"/refresh", handlers.RefreshListHandler(env, res))
		}

		pages.GET("/components/:id", handlers.ComponentDetailHandler(env))
		editors := pages.Group("/components/:id", middleware.RequireUnrestricted())
		editors.GET("/edit", handlers.ComponentEditPageHandler(env))
		editors.POST("/edit", handlers.ComponentEditHandler(env))
		editors.POST("/delete", handlers.ComponentDeleteHandler(env))
	}

	// v1 routes
	api := r.Group(apiPrefix, middleware.RequestLoggingMiddleware())
	{
		api.GET("/resources", handlers.ListResourcesHandler(env))
		api.GET("/:resource", handlers.APIListHandler(env))
	}

	return r
}

// apiCORS applies CORS to the JSON API only and answers its preflight requests.
func apiCORS(allowedOrigins []string) gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-Span-Id"},
		MaxAge:         600,
	})
	return func(ctx *gin.Context) {
		if !strings.HasPrefix(ctx.Request.URL.Path, apiPrefix+"/") {
			ctx.Next()
			return
		}
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != "" {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}
