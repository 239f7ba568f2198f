package voucher

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/event"
)

// Registry is the external voucher registry. It owns all voucher state;
// implementations must not be assumed to cache anything.
//
// Get returns (nil, nil) when the id does not resolve. ListByAccount returns
// vouchers in the registry's enumeration order.
type Registry interface {
	Issue(ctx context.Context, account Account, programs []ProgramID, amount *big.Int, durationSec uint64) (ID, error)
	Prolong(ctx context.Context, id ID, account Account, balance *big.Int, durationSec uint64) error
	Revoke(ctx context.Context, id ID, account Account) error
	Get(ctx context.Context, id ID) (*Voucher, error)
	ListByAccount(ctx context.Context, account Account) ([]Voucher, error)
}

// EventKind names a voucher lifecycle transition.
type EventKind string

const (
	EventIssued    EventKind = "issued"
	EventProlonged EventKind = "prolonged"
	EventRevoked   EventKind = "revoked"
)

// Event is a lifecycle transition reported by a registry. For issued and
// prolonged events Balance is the new balance; for revoked events it is the
// amount returned to the issuer.
type Event struct {
	Kind    EventKind `json:"kind"`
	ID      ID        `json:"id"`
	Account Account   `json:"account"`
	Balance *big.Int  `json:"balance"`
	Expiry  int64     `json:"expiry,omitempty"`
}

// EventFilter narrows a subscription. Empty fields match everything.
type EventFilter struct {
	Accounts []Account
	Kinds    []EventKind
}

// Match reports whether e passes the filter.
func (f EventFilter) Match(e Event) bool {
	if len(f.Kinds) > 0 {
		ok := false
		for _, k := range f.Kinds {
			if k == e.Kind {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Accounts) > 0 {
		for _, a := range f.Accounts {
			if a == e.Account {
				return true
			}
		}
		return false
	}
	return true
}

// Subscription is a live, non-restartable stream of events. Events is closed
// once the subscription ends; Err delivers the terminal error, if any.
// Unsubscribe releases the underlying connection and may be called more than
// once.
type Subscription interface {
	Events() <-chan Event
	Err() <-chan error
	Unsubscribe()
}

// Watcher is implemented by registries that can stream lifecycle events.
type Watcher interface {
	Watch(ctx context.Context, filter EventFilter) (Subscription, error)
}

type subscription struct {
	event.Subscription
	events chan Event
}

func (s *subscription) Events() <-chan Event { return s.events }

// NewSubscription runs producer in its own goroutine. The producer sends on
// sink until quit is closed or it fails; its return value is delivered on
// Err.
func NewSubscription(producer func(quit <-chan struct{}, sink chan<- Event) error) Subscription {
	s := &subscription{events: make(chan Event)}
	s.Subscription = event.NewSubscription(func(quit <-chan struct{}) error {
		defer close(s.events)
		return producer(quit, s.events)
	})
	return s
}
