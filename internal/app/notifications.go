package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quote-keeper/internal/platform/logging"
	"github.com/jsamuelsen/quote-keeper/internal/ports"
)

// DefaultNotificationCapacity bounds the feed when no capacity is given.
const DefaultNotificationCapacity = 20

// Notification is a message raised for the presentation layer.
type Notification struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NotificationFeed implements ports.Notifier for a pull-based presentation
// layer: it keeps the most recent messages and a version counter. The version
// bumps on every OnCollectionChanged, which the sync engine raises after a
// changing cycle and the repository raises after each local add, import or
// replace when the feed is set as its Notifier.
type NotificationFeed struct {
	mu       sync.RWMutex
	items    []Notification
	capacity int
	version  uint64
	now      func() time.Time
}

var _ ports.Notifier = (*NotificationFeed)(nil)

// NewNotificationFeed creates a feed keeping at most capacity messages.
func NewNotificationFeed(capacity int) *NotificationFeed {
	if capacity <= 0 {
		capacity = DefaultNotificationCapacity
	}

	return &NotificationFeed{
		items:    make([]Notification, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// OnCollectionChanged bumps the change version.
func (f *NotificationFeed) OnCollectionChanged(ctx context.Context) {
	f.mu.Lock()
	f.version++
	version := f.version
	f.mu.Unlock()

	logging.FromContext(ctx).DebugContext(ctx, "collection changed", slog.Uint64("version", version))
}

// OnNotify records message, evicting the oldest entry when full.
func (f *NotificationFeed) OnNotify(ctx context.Context, message string) {
	f.mu.Lock()

	if len(f.items) == f.capacity {
		copy(f.items, f.items[1:])
		f.items = f.items[:len(f.items)-1]
	}

	f.items = append(f.items, Notification{Message: message, At: f.now()})
	f.mu.Unlock()

	logging.FromContext(ctx).InfoContext(ctx, message)
}

// Snapshot returns the change version and the retained messages, oldest first.
func (f *NotificationFeed) Snapshot() (uint64, []Notification) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.version, append(make([]Notification, 0, len(f.items)), f.items...)
}
