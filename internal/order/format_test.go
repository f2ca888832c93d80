package order

import "testing"

func TestFormat(t *testing.T) {
	t.Parallel()
	o := Order{Items: 3, Amount: "42.50", Store: "Acme", OrderID: "#1234"}
	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{name: "all tokens", tmpl: "{store} {items} {amount} {orderId}", want: "Acme 3 42.50 #1234"},
		{name: "no tokens", tmpl: "plain text", want: "plain text"},
		{name: "empty", tmpl: "", want: ""},
		{name: "first occurrence only", tmpl: "{items}/{items} {store}{store}", want: "3/{items} Acme{store}"},
		{
			name: "default body",
			tmpl: "You have a new order for {items} item(s) totaling ${amount} from {store}.",
			want: "You have a new order for 3 item(s) totaling $42.50 from Acme.",
		},
		{name: "unknown token kept", tmpl: "{customer} {amount}", want: "{customer} 42.50"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.tmpl, o); got != tt.want {
				t.Fatalf("Format(%q) = %q, want %q", tt.tmpl, got, tt.want)
			}
		})
	}
}

func TestFormatSequentialReplacement(t *testing.T) {
	t.Parallel()
	// A store name containing a later token is substituted by that later pass.
	o := Order{Items: 1, Amount: "9.99", Store: "{orderId} Shop", OrderID: "#5555"}
	if got := Format("{store}", o); got != "#5555 Shop" {
		t.Fatalf("got %q", got)
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()
	if got := Title(Order{OrderID: "#1001"}); got != "Order #1001" {
		t.Fatalf("Title = %q", got)
	}
}
