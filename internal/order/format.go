package order

import (
	"strconv"
	"strings"
)

// Template placeholders understood by Format.
const (
	TokenItems   = "{items}"
	TokenAmount  = "{amount}"
	TokenStore   = "{store}"
	TokenOrderID = "{orderId}"
)

// Format substitutes order fields into template.
//
// Only the first occurrence of each token is replaced, in the order items,
// amount, store, orderId. Later occurrences of a token stay literal.
func Format(template string, o Order) string {
	out := template
	out = strings.Replace(out, TokenItems, strconv.Itoa(o.Items), 1)
	out = strings.Replace(out, TokenAmount, o.Amount, 1)
	out = strings.Replace(out, TokenStore, o.Store, 1)
	out = strings.Replace(out, TokenOrderID, o.OrderID, 1)
	return out
}

// Title is the notification title for o.
func Title(o Order) string {
	return "Order " + o.OrderID
}
