package events

import (
	"context"

	"userdb/internal/shared/eventbus"
	"userdb/internal/shared/logger"
	"userdb/internal/users/domain/model"
)

// Bridge forwards user lifecycle events from the in-process bus to the
// Redis feed. Usecases only ever talk to the bus; Redis stays an adapter
// concern.
type Bridge struct {
	store  *RedisEventStore
	logger logger.Logger
}

// NewBridge creates a bridge targeting the given store.
func NewBridge(store *RedisEventStore, log logger.Logger) *Bridge {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Bridge{
		store:  store,
		logger: log.WithComponent("event_bridge"),
	}
}

// Attach subscribes the bridge to every user lifecycle event type.
func (b *Bridge) Attach(bus eventbus.Bus) {
	for _, eventType := range []string{
		eventbus.EventTypeUserCreated,
		eventbus.EventTypeUserUpdated,
		eventbus.EventTypeUserDeleted,
		eventbus.EventTypeUserAuthenticated,
		eventbus.EventTypeUserLoggedOut,
	} {
		bus.Subscribe(eventType, b.handle)
	}
}

func (b *Bridge) handle(ctx context.Context, event eventbus.Event) error {
	user, _ := event.Data().(*model.User)
	return b.store.StoreEvent(ctx, NewUserEvent(event.Type(), user))
}
