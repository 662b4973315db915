package ledger

import (
	"context"
	"time"
)

type EventKind string

const (
	EventRegistered   EventKind = "registered"
	EventConverted    EventKind = "converted"
	EventPaid         EventKind = "paid"
	EventKYCSubmitted EventKind = "kyc_submitted"
	EventKYCReviewed  EventKind = "kyc_reviewed"
)

// Event describes a committed ledger change.
type Event struct {
	Kind         EventKind     `json:"kind"`
	At           time.Time     `json:"at"`
	UserID       string        `json:"user_id"`
	User         *User         `json:"user,omitempty"`
	Counterparty *User         `json:"counterparty,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
	Document     *KYCDocument  `json:"document,omitempty"`
}

// Observer is notified after a ledger operation commits. A returned error
// is logged and does not affect the operation.
type Observer interface {
	Observe(ctx context.Context, e Event) error
}

type ObserverFunc func(ctx context.Context, e Event) error

func (f ObserverFunc) Observe(ctx context.Context, e Event) error {
	return f(ctx, e)
}
