package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ez-dapp/gasless-server/internal/voucher"
)

// publish is best effort: the state change has already been committed, so a
// failed publish is logged and not returned.
func (l *Ledger) publish(ctx context.Context, ev voucher.Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		l.log.Error("ledger: marshal event", zap.Error(err))
		return
	}
	if err := l.rdb.Publish(ctx, EventsChannel, raw).Err(); err != nil {
		l.log.Warn("ledger: publish event",
			zap.String("kind", string(ev.Kind)),
			zap.String("voucher", ev.ID.Hex()),
			zap.Error(err),
		)
	}
}

// Watch subscribes to lifecycle events published by any Ledger on the same
// Redis. Only events published after Watch returns are delivered.
func (l *Ledger) Watch(ctx context.Context, filter voucher.EventFilter) (voucher.Subscription, error) {
	pubsub := l.rdb.Subscribe(ctx, EventsChannel)
	// Wait for the subscription confirmation so no event is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}

	return voucher.NewSubscription(func(quit <-chan struct{}, sink chan<- voucher.Event) error {
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return errors.New("ledger: event channel closed")
				}
				var ev voucher.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					l.log.Warn("ledger: bad event payload", zap.String("payload", msg.Payload), zap.Error(err))
					continue
				}
				if !filter.Match(ev) {
					continue
				}
				select {
				case sink <- ev:
				case <-quit:
					return nil
				}
			case <-quit:
				return nil
			}
		}
	}), nil
}
