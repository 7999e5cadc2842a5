package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"venue-admin-backend/internal/mw"
)

// RouterConfig holds the HTTP-layer settings.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	// ScheduleCacheTTL bounds how long a rendered schedule is served from
	// the response cache; change events flush it earlier.
	ScheduleCacheTTL time.Duration
	// Gatherer is exposed at /metrics when set.
	Gatherer prometheus.Gatherer
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = 10
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 5
	}
	if cfg.ScheduleCacheTTL <= 0 {
		cfg.ScheduleCacheTTL = 5 * time.Minute
	}

	rateLimiter := mw.RateLimiter(mw.NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, 10*time.Minute))

	h.schedules = mw.NewResponseCache(cfg.ScheduleCacheTTL)
	h.cache.Events().SubscribeAll(h.schedules.OnChange())

	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		rooms := h.cache.RoomsApplier()
		api.GET("/rooms", listCollection(h, h.cache.Rooms))
		api.POST("/rooms", createItems(h, rooms))
		api.POST("/rooms/delete", removeItems(h, rooms))
		api.PUT("/rooms/:id", upsertItem(h, rooms))
		api.DELETE("/rooms/:id", removeItem(h, rooms))

		bookings := h.cache.BookingsApplier()
		api.GET("/bookings", listCollection(h, h.cache.Bookings))
		api.POST("/bookings", createItems(h, bookings))
		api.POST("/bookings/delete", removeItems(h, bookings))
		api.PUT("/bookings/:id", upsertItem(h, bookings))
		api.DELETE("/bookings/:id", removeItem(h, bookings))

		api.GET("/schedule", h.schedules.Middleware(), h.GetSchedule)

		api.GET("/cache/status", h.GetCacheStatus)
		api.POST("/cache/refresh", h.RefreshCache)
		api.POST("/session/end", h.EndSession)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
