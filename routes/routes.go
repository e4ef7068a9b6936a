package routes

import (
	"net/http"
	"time"

	userRepo "subzero/database/repository/user"
	"subzero/handlers"
	"subzero/middleware"
	"subzero/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps carries what route registration needs besides the handlers.
type Deps struct {
	UserRepo  userRepo.UserRepository
	AuthCache *redis.Client
	Gatherer  prometheus.Gatherer
}

// RegisterUserRoutes registers account endpoints.
func RegisterUserRoutes(r *gin.Engine, hb *handlers.HandlerBundle, deps Deps) {
	api := r.Group("/api/users")
	{
		api.POST("/register", hb.User.RegisterHandler)
		api.POST("/login", hb.User.LoginHandler)

		api.Use(middleware.JWTAuthUserMiddleware(deps.UserRepo, deps.AuthCache))
		api.GET("/me", hb.User.MeHandler)
		api.POST("/logout", hb.User.LogoutHandler)
	}
}

// RegisterDeviceRoutes registers the fingerprint and restriction check endpoints.
func RegisterDeviceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/device")
	{
		api.POST("/fingerprint", hb.Device.FingerprintHandler)
		api.POST("/check", hb.Device.CheckHandler)
	}
}

// RegisterChatRoutes registers the websocket endpoint. Browsers cannot set
// headers on upgrades, so the token also travels as a query parameter.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle, deps Deps) {
	r.GET("/api/chat/ws", middleware.JWTAuthUserMiddleware(deps.UserRepo, deps.AuthCache), hb.Chat.ServeWS)
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle, deps Deps) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.JWTAuthUserMiddleware(deps.UserRepo, deps.AuthCache))
		adminGroup.Use(middleware.RequireAdmin(deps.UserRepo))

		adminGroup.GET("/users", hb.Admin.ListUsersHandler)
		adminGroup.POST("/users/:id/ban", hb.Admin.BanUserHandler)
		adminGroup.POST("/users/:id/unban", hb.Admin.UnbanUserHandler)

		adminGroup.GET("/devices", hb.Admin.ListDevicesHandler)
		adminGroup.POST("/devices/block", hb.Admin.BlockDeviceHandler)
		adminGroup.POST("/devices/unblock", hb.Admin.UnblockDeviceHandler)
		adminGroup.PUT("/devices/:id/limit", hb.Admin.SetDeviceLimitHandler)
		adminGroup.DELETE("/devices/:id", hb.Admin.ResetDeviceHandler)

		adminGroup.GET("/chat/restrictions", hb.Admin.ListChatRestrictionsHandler)
		adminGroup.DELETE("/chat/messages", hb.Admin.ClearChatHandler)
		adminGroup.POST("/chat/prune", hb.Admin.PruneChatHandler)
	}
}

// RegisterHealthRoute registers the health and metrics endpoints.
func RegisterHealthRoute(r *gin.Engine, deps Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, deps Deps) {
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterUserRoutes(r, hb, deps)
	RegisterDeviceRoutes(r, hb)
	RegisterChatRoutes(r, hb, deps)
	RegisterHealthRoute(r, deps)
	RegisterAdminRoutes(r, hb, deps)
}
