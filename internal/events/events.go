package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Routing keys published on the events exchange.
const (
	AccountCreated    = "account.created"
	AccountUpdated    = "account.updated"
	AccountDeleted    = "account.deleted"
	IdentityDeleted   = "identity.deleted"
	PurchaseCompleted = "purchase.completed"
)

// Publisher is implemented by types that can publish domain events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
	Close()
}

// AccountEvent describes an account lifecycle change.
type AccountEvent struct {
	Kind      string `json:"kind"`
	AccountID uint   `json:"account_id"`
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	Balance   int64  `json:"balance"`
}

// PurchaseEvent describes a committed purchase.
type PurchaseEvent struct {
	TransactionID   uint  `json:"transaction_id"`
	CustomerID      uint  `json:"customer_id"`
	MerchantID      uint  `json:"merchant_id"`
	Amount          int64 `json:"amount"`
	CustomerBalance int64 `json:"customer_balance"`
	MerchantBalance int64 `json:"merchant_balance"`
}

// LogPublisher writes events to the logger. It is used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, routingKey string, body any) error {
	logrus.WithFields(logrus.Fields{
		"routing_key": routingKey,
		"body":        body,
	}).Info("Event")
	return nil
}

func (LogPublisher) Close() {}

// Emit publishes and logs failures; events never fail the request that produced them.
func Emit(ctx context.Context, p Publisher, routingKey string, body any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, routingKey, body); err != nil {
		logrus.WithFields(logrus.Fields{
			"routing_key": routingKey,
			"error":       err.Error(),
		}).Warn("Event publish failed")
	}
}
