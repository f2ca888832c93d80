// Package platform defines the notification platform seen by the scheduler:
// a permission gate plus a dispatch call. Concrete platforms live in
// subpackages.
package platform

import (
	"context"
	"errors"
	"strconv"

	"ordernotify/internal/order"
)

// ErrNotPermitted is returned by Deliver when the platform refuses delivery.
var ErrNotPermitted = errors.New("notification permission not granted")

// Metadata is attached to every order notification.
type Metadata struct {
	OrderID string `json:"orderId"`
	Amount  string `json:"amount"`
	Items   int    `json:"items"`
}

// Notification is one user-visible alert.
type Notification struct {
	ID       string   `json:"id,omitempty"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Icon     string   `json:"icon,omitempty"`
	Tag      string   `json:"tag"`
	Metadata Metadata `json:"metadata"`
}

// Platform grants permission and delivers notifications.
type Platform interface {
	Name() string
	RequestPermission(ctx context.Context) (bool, error)
	Deliver(ctx context.Context, n Notification) error
}

// ForOrder builds the notification for o with the already formatted body.
// nowMS makes the tag unique per emission.
func ForOrder(o order.Order, body, icon string, nowMS int64) Notification {
	return Notification{
		Title: order.Title(o),
		Body:  body,
		Icon:  icon,
		Tag:   "order-" + o.OrderID + "-" + strconv.FormatInt(nowMS, 10),
		Metadata: Metadata{
			OrderID: o.OrderID,
			Amount:  o.Amount,
			Items:   o.Items,
		},
	}
}
