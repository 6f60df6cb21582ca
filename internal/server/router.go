package server

import (
	"github.com/askarov/filevault/internal/auth"
	"github.com/askarov/filevault/internal/config"
	"github.com/askarov/filevault/internal/metrics"
	"github.com/askarov/filevault/internal/vault"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
)

// Dependencies groups the services required by the HTTP router. DB and
// ObjectStore stay nil when the memory/local backends are selected; the
// readiness probe skips them.
type Dependencies struct {
	Config       config.Config
	DB           *pgxpool.Pool
	ObjectStore  *minio.Client
	AuthService  *auth.Service
	VaultService *vault.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	metrics.InitMetrics()
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.AuthService != nil {
		auth.RegisterRoutes(api, deps.AuthService)

		protected := api.Group("/")
		protected.Use(auth.AuthMiddleware(deps.AuthService))

		if deps.VaultService != nil {
			vault.RegisterRoutes(protected, deps.VaultService)
		}
	}

	return router
}
