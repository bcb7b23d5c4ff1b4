package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pocketmint/backend/entities"
)

// TransactionApplied is published after every committed transaction and
// consumed by the achievement evaluator and the leaderboard aggregator.
type TransactionApplied struct {
	TransactionID uuid.UUID
	WalletID      uuid.UUID
	UserID        uuid.UUID
	Amount        int64
	Type          entities.TransactionType
	Balance       int64
	OccurredAt    time.Time
}

type TransactionListener func(ctx context.Context, event TransactionApplied)

// EventBus fans TransactionApplied events out to registered listeners,
// synchronously and in subscription order. Listeners own their own error
// handling; a failing listener must not block the ledger.
type EventBus struct {
	mu        sync.RWMutex
	listeners []TransactionListener
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Subscribe(listener TransactionListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

func (b *EventBus) Publish(ctx context.Context, event TransactionApplied) {
	b.mu.RLock()
	listeners := b.listeners
	b.mu.RUnlock()

	for _, listener := range listeners {
		listener(ctx, event)
	}
}
