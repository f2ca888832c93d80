package notifier

import (
	"errors"
	"time"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

// Config controls the dispatch pipeline.
type Config struct {
	Workers     int
	QueueSize   int
	RatePerSec  float64
	SendTimeout time.Duration
}

// DeliveryEvent is the Data of notifier.* bus events.
type DeliveryEvent struct {
	ID       string    `json:"id"`
	Platform string    `json:"platform"`
	Tag      string    `json:"tag"`
	OrderID  string    `json:"order_id"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}
