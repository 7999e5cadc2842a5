package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-admin-backend/config"
	"venue-admin-backend/internal/model"
)

func writePage[T any](w http.ResponseWriter, page, pageSize, total int, items []T) {
	var resp ApiResponse[T]
	resp.Data.Page = page
	resp.Data.PageSize = pageSize
	resp.Data.Total = total
	resp.Data.Items = items
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, url string, mutate func(*config.BackendConfig)) *Client {
	t.Helper()
	cfg := config.BackendConfig{
		BaseURL:        url,
		RoomsPath:      "/api/rooms",
		BookingsPath:   "/api/bookings",
		PageSize:       2,
		TimeoutSeconds: 5,
		MaxRetries:     2,
		Headers:        map[string]string{"Authorization": "Bearer test-token"},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c := NewClient(cfg, nil)
	c.backOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestClient_FetchRoomsPaginates(t *testing.T) {
	all := []model.Space{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}}
	var pages []int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rooms", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("pageSize"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()

		start := (page - 1) * 2
		end := min(start+2, len(all))
		writePage(w, page, 2, len(all), all[start:end])
	}))
	defer server.Close()

	rooms, err := newTestClient(t, server.URL, nil).FetchRooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, all, rooms)
	assert.Equal(t, []int{1, 2}, pages)
}

func TestClient_EmptyCollectionIsNotNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writePage[model.Space](w, 1, 2, 0, nil)
	}))
	defer server.Close()

	rooms, err := newTestClient(t, server.URL, nil).FetchRooms(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rooms)
	assert.Empty(t, rooms)
}

func TestClient_FetchBookingsSendsFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/bookings", r.URL.Path)
		assert.Equal(t, "2026-10-15", q.Get("from"))
		assert.Equal(t, "2026-10-16", q.Get("to"))
		assert.Equal(t, "room-1", q.Get("spaceId"))
		assert.Equal(t, []string{"confirmed", "pending"}, q["status"])
		writePage(w, 1, 2, 1, []model.Booking{{ID: "b1", SpaceID: "room-1"}})
	}))
	defer server.Close()

	bookings, err := newTestClient(t, server.URL, nil).FetchBookings(context.Background(), BookingFilters{
		From:     time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		SpaceID:  "room-1",
		Statuses: []model.BookingStatus{model.StatusConfirmed, model.StatusPending},
	})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "b1", bookings[0].ID)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writePage(w, 1, 2, 1, []model.Space{{ID: "r1"}})
	}))
	defer server.Close()

	rooms, err := newTestClient(t, server.URL, nil).FetchRooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, func(c *config.BackendConfig) { c.MaxRetries = 1 }).FetchRooms(context.Background())
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusServiceUnavailable, serr.StatusCode)
	assert.EqualValues(t, 2, calls.Load())
}

func TestClient_ClientErrorsArePermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, nil).FetchRooms(context.Background())
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_ApplicationErrorCodeIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"code": 4031, "message": "tenant suspended"})
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, nil).FetchRooms(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant suspended")
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_FailingPageFailsWholeFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writePage(w, 1, 2, 3, []model.Space{{ID: "r1"}, {ID: "r2"}})
	}))
	defer server.Close()

	rooms, err := newTestClient(t, server.URL, nil).FetchRooms(context.Background())
	assert.Error(t, err)
	assert.Nil(t, rooms)
}

func TestClient_InvalidBaseURL(t *testing.T) {
	_, err := newTestClient(t, "not a url", nil).FetchRooms(context.Background())
	assert.Error(t, err)
}

func TestClient_Fetchers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("from"))
		writePage(w, 1, 2, 1, []model.Booking{{ID: "b1"}})
	}))
	defer server.Close()

	f := newTestClient(t, server.URL, nil).Fetchers()
	bookings, err := f.Bookings(context.Background())
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

type fakeRevalidator struct {
	warmups     atomic.Int32
	revalidates atomic.Int32
	warmupErr   error
	revalidated chan struct{}
}

func (f *fakeRevalidator) Warmup(context.Context) error {
	f.warmups.Add(1)
	return f.warmupErr
}

func (f *fakeRevalidator) Revalidate(context.Context) error {
	if f.revalidates.Add(1) == 2 {
		close(f.revalidated)
	}
	return nil
}

func TestService_RunWarmsUpAndRevalidates(t *testing.T) {
	rv := &fakeRevalidator{warmupErr: errors.New("cold backend"), revalidated: make(chan struct{})}
	svc := NewService(rv, 5*time.Millisecond, true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()

	select {
	case <-rv.revalidated:
	case <-time.After(2 * time.Second):
		t.Fatal("revalidation did not run")
	}
	cancel()
	<-done
	assert.EqualValues(t, 1, rv.warmups.Load())
}

func TestService_RunWithoutIntervalReturns(t *testing.T) {
	rv := &fakeRevalidator{revalidated: make(chan struct{})}
	NewService(rv, 0, false, nil).Run(context.Background())
	assert.Zero(t, rv.warmups.Load())
	assert.Zero(t, rv.revalidates.Load())
}
