package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/superstorecomercio/novoguia-notifier/internal/handler"
	"github.com/superstorecomercio/novoguia-notifier/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit rate.Limit
	RateBurst int
}

type Router struct {
	engine  *gin.Engine
	healthH *handler.HealthHandler
	apiH    []Handler
	cfg     Config
}

func New(cfg Config, healthH *handler.HealthHandler, apiHandlers ...Handler) *Router {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	return &Router{
		engine:  gin.New(),
		healthH: healthH,
		apiH:    apiHandlers,
		cfg:     cfg,
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Setup() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger())
	r.engine.Use(middleware.Recovery())

	r.healthH.RegisterRoutes(r.engine)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(r.cfg.RateLimit, r.cfg.RateBurst)
	api := r.engine.Group("/api/v1", limiter.RateLimit())
	for _, h := range r.apiH {
		h.RegisterRoutes(api)
	}
}
