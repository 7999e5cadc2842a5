// Package api exposes the resource cache, the schedule grid and push
// subscriptions over HTTP.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"venue-admin-backend/internal/cache"
	"venue-admin-backend/internal/logger"
	"venue-admin-backend/internal/mw"
	"venue-admin-backend/internal/schedule"
	"venue-admin-backend/internal/syncer"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	cache   *cache.Manager
	db      *gorm.DB
	webpush *webpush.Options
	loc     *time.Location
	now     func() time.Time
	log     *zap.SugaredLogger

	// schedules caches rendered schedules; set by NewRouter.
	schedules *mw.ResponseCache
}

// NewHandler creates a new API handler. db may be nil when push
// subscriptions are not stored; loc is the facility's time zone.
func NewHandler(m *cache.Manager, db *gorm.DB, webpushOptions *webpush.Options, loc *time.Location, log *zap.SugaredLogger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		cache:   m,
		db:      db,
		webpush: webpushOptions,
		loc:     loc,
		now:     time.Now,
		log:     logger.OrNop(log),
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// fail maps err to a status: a backend fetch failure with nothing cached is
// a bad gateway, invalid grid parameters are the caller's fault, anything
// else is ours.
func (h *Handler) fail(c *gin.Context, err error) {
	var ferr *syncer.FetchError
	switch {
	case errors.As(err, &ferr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, schedule.ErrInvalidLayout):
		badRequest(c, err.Error())
	default:
		h.log.Errorw("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
