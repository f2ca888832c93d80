package order

import (
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"ordernotify/internal/clock"
)

const (
	minItems = 1
	maxItems = 5

	baseAmountMin  = 25.0
	baseAmountSpan = 150.0

	orderIDMin  = 1000
	orderIDSpan = 9000
)

// Generator builds random orders. The zero value is not usable; use NewGenerator.
//
// It is safe for concurrent use.
type Generator struct {
	clk clock.Clock

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a Generator. A nil clock means real time; a nil rng is
// seeded from the current time.
func NewGenerator(clk clock.Clock, rng *rand.Rand) *Generator {
	if clk == nil {
		clk = clock.Real{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{clk: clk, rng: rng}
}

var defaultGenerator = NewGenerator(nil, nil)

// Generate returns a random order for storeName whose amount is never below threshold.
func Generate(storeName string, threshold float64) Order {
	return defaultGenerator.Generate(storeName, threshold)
}

func (g *Generator) Generate(storeName string, threshold float64) Order {
	g.mu.Lock()
	items := minItems + g.rng.Intn(maxItems-minItems+1)
	base := baseAmountMin + g.rng.Float64()*baseAmountSpan
	id := orderIDMin + g.rng.Intn(orderIDSpan)
	g.mu.Unlock()

	return Order{
		Items:     items,
		Amount:    floorAmount(base, threshold),
		Store:     storeName,
		Timestamp: g.clk.Now().UnixMilli(),
		OrderID:   "#" + strconv.Itoa(id),
	}
}

// Welcome returns the fixed welcome order stamped with the generator clock.
func (g *Generator) Welcome(storeName string) Order {
	return Welcome(storeName, g.clk.Now().UnixMilli())
}

// floorAmount formats max(base, threshold), rounding up to the next cent when
// plain rounding would land under threshold.
func floorAmount(base, threshold float64) string {
	s := FormatAmount(math.Max(base, threshold))
	if v, err := ParseAmount(s); err == nil && v < threshold {
		s = FormatAmount(math.Ceil(threshold*100) / 100)
	}
	return s
}

// FormatAmount renders v with exactly two fraction digits.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ParseAmount parses an order amount. Malformed amounts yield an error.
func ParseAmount(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
