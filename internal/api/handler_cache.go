package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCacheStatus reports the sync state of every cached resource.
func (h *Handler) GetCacheStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"storageAvailable": h.cache.StorageAvailable(),
		"resources":        h.cache.Status(c.Request.Context()),
	})
}

// RefreshCache refetches both collections regardless of freshness.
func (h *Handler) RefreshCache(c *gin.Context) {
	ctx := c.Request.Context()
	rooms, rerr := h.cache.RefreshRooms(ctx)
	bookings, berr := h.cache.RefreshBookings(ctx)
	if h.schedules != nil {
		h.schedules.Flush()
	}
	if err := errors.Join(rerr, berr); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rooms":    len(rooms),
		"bookings": len(bookings),
	})
}

// EndSession drops everything cached for the current session.
func (h *Handler) EndSession(c *gin.Context) {
	if err := h.cache.EndSession(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
