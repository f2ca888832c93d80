package order

import (
	"math/rand"
	"regexp"
	"strconv"
	"testing"
	"time"

	"ordernotify/internal/clock"
)

var reOrderID = regexp.MustCompile(`^#\d{4}$`)

func TestGenerateBounds(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	g := NewGenerator(clock.NewFake(now), rand.New(rand.NewSource(42)))

	for i := 0; i < 2000; i++ {
		o := g.Generate("Shop", 0)
		if o.Items < 1 || o.Items > 5 {
			t.Fatalf("items out of range: %d", o.Items)
		}
		if !reOrderID.MatchString(o.OrderID) {
			t.Fatalf("bad order id %q", o.OrderID)
		}
		n, _ := strconv.Atoi(o.OrderID[1:])
		if n < 1000 || n > 9999 {
			t.Fatalf("order id out of range: %d", n)
		}
		amt, err := ParseAmount(o.Amount)
		if err != nil {
			t.Fatalf("amount %q: %v", o.Amount, err)
		}
		if amt < 25 || amt >= 175.005 {
			t.Fatalf("amount out of range: %v", amt)
		}
		if o.Store != "Shop" {
			t.Fatalf("store = %q", o.Store)
		}
		if o.Timestamp != now.UnixMilli() {
			t.Fatalf("timestamp = %d", o.Timestamp)
		}
	}
}

func TestGenerateRespectsThreshold(t *testing.T) {
	t.Parallel()
	g := NewGenerator(nil, rand.New(rand.NewSource(7)))
	for _, th := range []float64{0, 10, 25, 99.99, 174.5, 500, 1234.567} {
		for i := 0; i < 200; i++ {
			o := g.Generate("s", th)
			amt, err := ParseAmount(o.Amount)
			if err != nil {
				t.Fatalf("amount %q: %v", o.Amount, err)
			}
			if amt < th {
				t.Fatalf("threshold %v: amount %v below floor", th, amt)
			}
		}
	}
}

func TestGenerateAmountHasTwoDecimals(t *testing.T) {
	t.Parallel()
	re := regexp.MustCompile(`^\d+\.\d{2}$`)
	g := NewGenerator(nil, rand.New(rand.NewSource(1)))
	for i := 0; i < 100; i++ {
		if o := g.Generate("s", 300); !re.MatchString(o.Amount) || o.Amount != "300.00" {
			t.Fatalf("amount = %q, want 300.00", o.Amount)
		}
	}
}

func TestWelcomeOrder(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(clock.NewFake(now), nil)
	o := g.Welcome("HoH Fashion")
	want := Order{Items: 1, Amount: "49.99", Store: "HoH Fashion", Timestamp: now.UnixMilli(), OrderID: "#1001"}
	if o != want {
		t.Fatalf("Welcome = %+v, want %+v", o, want)
	}
}
