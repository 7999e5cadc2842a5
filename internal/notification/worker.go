// Package notification pushes cache change events to browser views that
// registered a Web Push subscription.
package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"venue-admin-backend/internal/events"
	"venue-admin-backend/internal/logger"
	"venue-admin-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Message is the push payload. It names what changed; receivers re-read
// the collection instead of patching their state.
type Message struct {
	EventID     string           `json:"eventId"`
	Resource    model.Resource   `json:"resource"`
	Operation   events.Operation `json:"operation"`
	AffectedIDs []string         `json:"affectedIds,omitempty"`
	At          time.Time        `json:"at"`
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan events.ChangeEvent
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.SugaredLogger
}

// NewWorkerPool creates a new worker pool with a job queue of queueSize.
func NewWorkerPool(size, queueSize int, db *gorm.DB, webpushOptions *webpush.Options, log *zap.SugaredLogger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan events.ChangeEvent, queueSize),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     logger.OrNop(log),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debugw("notification worker started", "worker", id)
	for {
		select {
		case ev := <-wp.jobs:
			wp.sendNotificationsForEvent(ctx, ev)
		case <-ctx.Done():
			wp.log.Debugw("notification worker shutting down", "worker", id)
			return
		}
	}
}

// Dispatch queues ev without blocking. It reports false when the queue is
// full and the event was dropped.
func (wp *WorkerPool) Dispatch(ev events.ChangeEvent) bool {
	select {
	case wp.jobs <- ev:
		return true
	default:
		wp.log.Warnw("notification queue full, dropping event",
			"resource", ev.Resource, "operation", ev.Operation, "event", ev.ID)
		return false
	}
}

// Handler returns a bus handler that dispatches every event to the pool.
func (wp *WorkerPool) Handler() events.Handler {
	return func(ev events.ChangeEvent) { wp.Dispatch(ev) }
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan events.ChangeEvent {
	return wp.jobs
}

// sendNotificationsForEvent fetches the subscriptions listening to the
// event's resource and pushes the event to each.
func (wp *WorkerPool) sendNotificationsForEvent(ctx context.Context, ev events.ChangeEvent) {
	var candidates []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Where("topics LIKE ?", "%"+string(ev.Resource)+"%").
		Find(&candidates).Error
	if err != nil {
		wp.log.Errorw("failed to load push subscriptions", "resource", ev.Resource, "error", err)
		return
	}

	subscriptions := candidates[:0]
	for _, sub := range candidates {
		if slices.Contains(sub.TopicList(), ev.Resource) {
			subscriptions = append(subscriptions, sub)
		}
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(Message{
		EventID:     ev.ID.String(),
		Resource:    ev.Resource,
		Operation:   ev.Operation,
		AffectedIDs: ev.AffectedIDs,
		At:          ev.At,
	})
	if err != nil {
		wp.log.Errorw("failed to encode push payload", "event", ev.ID, "error", err)
		return
	}

	wp.log.Debugw("sending change notifications", "resource", ev.Resource, "operation", ev.Operation, "subscriptions", len(subscriptions))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification and deletes the
// subscription if the push service reports it gone.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warnw("failed to send notification", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Infow("push subscription expired, deleting", "endpoint", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.Warnw("failed to delete expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
