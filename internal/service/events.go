package service

import (
	"context"

	"github.com/google/uuid"
)

// Notifier receives post-commit events. *ws.Hub satisfies it.
type Notifier interface {
	Publish(tenantID uuid.UUID, action, text string, data interface{})
}

// ReportCache is the read-through cache used by ReportService. Writers only invalidate.
// Entries live under a per-tenant version that Invalidate advances; readers fetch the
// version before computing and use that same version for Get and Set.
type ReportCache interface {
	Version(ctx context.Context, tenantID uuid.UUID) (int64, error)
	Get(ctx context.Context, tenantID uuid.UUID, version int64, key string, dest interface{}) bool
	Set(ctx context.Context, tenantID uuid.UUID, version int64, key string, value interface{})
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

type nopNotifier struct{}

func (nopNotifier) Publish(uuid.UUID, string, string, interface{}) {}

type nopCache struct{}

func (nopCache) Version(context.Context, uuid.UUID) (int64, error)               { return 0, nil }
func (nopCache) Get(context.Context, uuid.UUID, int64, string, interface{}) bool { return false }
func (nopCache) Set(context.Context, uuid.UUID, int64, string, interface{})      {}
func (nopCache) Invalidate(context.Context, uuid.UUID)                           {}

// changeFeed is what every writing service does once its unit of work has committed
type changeFeed struct {
	cache  ReportCache
	events Notifier
}

func newChangeFeed(cache ReportCache, events Notifier) changeFeed {
	if cache == nil {
		cache = nopCache{}
	}
	if events == nil {
		events = nopNotifier{}
	}
	return changeFeed{cache: cache, events: events}
}

// committed must only be called after the write is durable. The request context may already
// be cancelled by then, so invalidation runs detached from it.
func (f changeFeed) committed(ctx context.Context, tenantID uuid.UUID, action, text string, data interface{}) {
	f.cache.Invalidate(context.WithoutCancel(ctx), tenantID)
	f.events.Publish(tenantID, action, text, data)
}
