package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GetSchedule lays out one day of the cached rooms and bookings. date
// defaults to today in the facility's time zone; interval to the
// configured slot size.
func (h *Handler) GetSchedule(c *gin.Context) {
	day := h.now().In(h.loc)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, h.loc)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	interval := 0
	if raw := c.Query("interval"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "interval must be a positive number of minutes")
			return
		}
		interval = n
	}

	grid, err := h.cache.Schedule(c.Request.Context(), day, interval)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, grid.View())
}
