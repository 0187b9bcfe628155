package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/bitlend/internal/config"
	"github.com/polkiloo/bitlend/internal/server/http/handlers"
	"github.com/polkiloo/bitlend/internal/server/http/middleware"
)

const walletConnectPath = "/api/user/wallet/connect"

// Params groups router dependencies.
type Params struct {
	fx.In

	Facade handlers.LendingFacade
	Health handlers.HealthChecker
	Config *config.Config
	Logger *slog.Logger
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(p.Logger))
	engine.Use(middleware.CORS(p.Config.CORSOrigins))
	engine.Use(middleware.DecompressRequest())
	// hijacked WebSocket connections cannot be gzip-wrapped
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{walletConnectPath})))

	authHandler := handlers.NewAuthHandler(p.Facade)
	loanHandler := handlers.NewLoanHandler(p.Facade)

	engine.GET("/healthz", handlers.Health(p.Health))

	api := engine.Group("/api")
	user := api.Group("/user")
	user.POST("/register", authHandler.Register)
	user.POST("/login", authHandler.Login)
	user.POST("/logout", authHandler.Logout)
	user.GET("/session", authHandler.Session)
	user.GET("/wallet/connect", authHandler.ConnectWallet)

	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired(p.Facade))
	authorized.GET("/user/stats", loanHandler.Stats)
	authorized.GET("/transactions", loanHandler.Transactions)

	loans := authorized.Group("/loans")
	loans.POST("", loanHandler.Create)
	loans.GET("/active", loanHandler.Active)
	loans.GET("/marketplace", loanHandler.Marketplace)
	loans.GET("/:id", loanHandler.Get)
	loans.POST("/:id/publish", loanHandler.Publish)
	loans.POST("/:id/accept", loanHandler.Accept)
	loans.POST("/:id/disburse", loanHandler.Disburse)
	loans.POST("/:id/repay", loanHandler.Repay)
	loans.POST("/:id/cancel", loanHandler.Cancel)

	return engine
}
