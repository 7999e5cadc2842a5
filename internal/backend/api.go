package backend

import (
	"net/url"
	"time"

	"venue-admin-backend/internal/model"
)

// ApiResponse models the top-level structure of the upstream API's paginated
// list responses.
type ApiResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    struct {
		Page     int `json:"page"`
		PageSize int `json:"pageSize"`
		Total    int `json:"total"`
		Items    []T `json:"items"`
	} `json:"data"`
}

// BookingFilters narrows a bookings fetch. The zero value fetches everything,
// which is what the cache stores.
type BookingFilters struct {
	From     time.Time
	To       time.Time
	SpaceID  string
	Statuses []model.BookingStatus
}

func (f BookingFilters) query() url.Values {
	q := url.Values{}
	if !f.From.IsZero() {
		q.Set("from", f.From.Format(time.DateOnly))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.Format(time.DateOnly))
	}
	if f.SpaceID != "" {
		q.Set("spaceId", f.SpaceID)
	}
	for _, s := range f.Statuses {
		q.Add("status", string(s))
	}
	return q
}
