// Package order produces the synthetic orders behind every notification and
// renders the notification body from a user template.
package order

// Order is a simulated order. Treat it as immutable once created.
type Order struct {
	Items     int    `json:"items"`
	Amount    string `json:"amount"`
	Store     string `json:"store"`
	Timestamp int64  `json:"timestamp"` // unix milli
	OrderID   string `json:"orderId"`
}

const (
	welcomeItems  = 1
	welcomeAmount = "49.99"
	welcomeID     = "#1001"
)

// Welcome returns the fixed order sent once notifications are enabled.
func Welcome(store string, nowMS int64) Order {
	return Order{
		Items:     welcomeItems,
		Amount:    welcomeAmount,
		Store:     store,
		Timestamp: nowMS,
		OrderID:   welcomeID,
	}
}
