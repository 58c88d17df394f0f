package httpservice

import (
	"net/http"

	"github.com/arkade-os/bridged/internal/core/application"
	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/interface/http/handlers"
	"github.com/arkade-os/bridged/internal/interface/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBodySize fits a hex encoded payload of the max size plus the other fields.
const maxRequestBodySize = 2*domain.MaxPayloadSize + 64<<10

type routers struct {
	public  *gin.Engine
	admin   *gin.Engine
	limiter *middleware.RateLimiter
}

func (r routers) close() {
	if r.limiter != nil {
		r.limiter.Stop()
	}
}

// newRouters mounts the bridge API under /v1 and the admin API under
// /v1/admin. The admin engine is the public one unless withAdminPort is set.
func newRouters(
	version string, cfg Config, withAdminPort bool,
	appSvc application.Service, adminSvc application.AdminService,
	registry *prometheus.Registry,
) routers {
	metrics := middleware.NewMetrics(registry)

	public := newEngine(version, metrics)
	v1 := public.Group("/v1")

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute)
		v1.Use(limiter.Handler())
	}
	handlers.NewBridgeHandler(appSvc).RegisterRoutes(v1)

	admin := public
	if withAdminPort {
		admin = newEngine(version, metrics)
	}
	adminGroup := admin.Group("/v1/admin", middleware.AdminAuth([]byte(cfg.AdminJWTSecret)))
	handlers.NewAdminHandler(adminSvc, appSvc).RegisterRoutes(adminGroup)
	admin.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return routers{public: public, admin: admin, limiter: limiter}
}

func newEngine(version string, metrics *middleware.Metrics) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.RequestId(),
		middleware.Logger(),
		middleware.Recovery(),
		metrics.Handler(),
		middleware.BodyLimit(maxRequestBodySize),
	)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
	})
	return engine
}
