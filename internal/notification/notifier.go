// Package notification delivers trading alerts (drawdown pauses, execution
// failures, trade fills) to the user. Delivery is fire-and-forget: a failed
// send is logged and never blocks trading logic.
package notification

import (
	"context"
	"log"
)

// AlertType classifies a notification for the user-facing feed.
type AlertType string

const (
	TypeTradeOpened      AlertType = "trade_opened"
	TypeTradeClosed      AlertType = "trade_closed"
	TypeExecutionFailure AlertType = "execution_failure"
	TypeDrawdownPause    AlertType = "drawdown_pause"
)

// Alert is one notification addressed to a user.
type Alert struct {
	UserID  int64     `json:"user_id"`
	Type    AlertType `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts instead of delivering them (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] user=%d [%s] %s: %s", alert.UserID, alert.Type, alert.Title, alert.Message)
	return nil
}

// AlertStore persists notifications for the user-facing feed.
type AlertStore interface {
	InsertNotification(ctx context.Context, userID int64, typ, title, message string) error
}

// StoreNotifier writes alerts to the notifications relation.
type StoreNotifier struct {
	store AlertStore
}

// NewStoreNotifier creates a store-backed notifier.
func NewStoreNotifier(store AlertStore) *StoreNotifier {
	return &StoreNotifier{store: store}
}

func (n *StoreNotifier) Send(ctx context.Context, alert Alert) error {
	return n.store.InsertNotification(ctx, alert.UserID, string(alert.Type), alert.Title, alert.Message)
}

// Multi fans one alert out to several backends. Each backend failure is
// logged; Send itself never fails.
type Multi struct {
	backends []Notifier
}

// NewMulti creates a fan-out notifier.
func NewMulti(backends ...Notifier) *Multi {
	return &Multi{backends: backends}
}

func (m *Multi) Send(ctx context.Context, alert Alert) error {
	for _, b := range m.backends {
		if err := b.Send(ctx, alert); err != nil {
			log.Printf("[notify] backend %T failed: %v", b, err)
		}
	}
	return nil
}
