package settings

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"ordernotify/internal/storage"
	logx "ordernotify/pkg/logx"
)

type failingKV struct{ storage.Store }

func (failingKV) Set(context.Context, string, string) error { return errors.New("disk full") }

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.Frequency != "5" || d.MaxNotifications != 10 || d.OrderThreshold != 0 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	if d.StoreName != "Online Store" || d.CustomBody != DefaultBody || d.CustomLogo != nil {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	if err := Validate(d); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Settings)
		field string
	}{
		{"blank frequency", func(s *Settings) { s.Frequency = "  " }, "frequency"},
		{"zero cap", func(s *Settings) { s.MaxNotifications = 0 }, "maxNotifications"},
		{"cap too high", func(s *Settings) { s.MaxNotifications = 101 }, "maxNotifications"},
		{"negative threshold", func(s *Settings) { s.OrderThreshold = -1 }, "orderThreshold"},
		{"infinite threshold", func(s *Settings) { s.OrderThreshold = math.Inf(1) }, "orderThreshold"},
		{"NaN threshold", func(s *Settings) { s.OrderThreshold = math.NaN() }, "orderThreshold"},
		{"threshold too high", func(s *Settings) { s.OrderThreshold = 2e6 }, "orderThreshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.edit(&s)
			err := Validate(s)
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if _, ok := ve[tt.field]; !ok {
				t.Fatalf("fields = %v, want %s", ve.Fields(), tt.field)
			}
		})
	}
}

func TestStoreLoadDefaultsAndMerge(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	st := NewStore(kv, Defaults(), logx.Nop())

	got, err := st.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != Defaults() {
		t.Fatalf("empty store should load defaults, got %+v", got)
	}

	_ = kv.Set(ctx, Key, `{"frequency":"10s","storeName":"Acme"}`)
	got, err = st.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Frequency != "10s" || got.StoreName != "Acme" || got.MaxNotifications != 10 {
		t.Fatalf("merge failed: %+v", got)
	}

	_ = kv.Set(ctx, Key, `{not json`)
	got, _ = st.Load(ctx)
	if got != Defaults() {
		t.Fatalf("malformed document should load defaults, got %+v", got)
	}
}

func TestStoreSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	st := NewStore(kv, Defaults(), logx.Nop())

	logo := "https://example.com/logo.png"
	next := Defaults()
	next.Frequency = "30s"
	next.CustomLogo = &logo
	if err := st.Save(ctx, next); err != nil {
		t.Fatal(err)
	}

	raw, ok, _ := kv.Get(ctx, Key)
	if !ok {
		t.Fatal("settings not persisted")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	if m["frequency"] != "30s" || m["customLogo"] != logo {
		t.Fatalf("persisted = %v", m)
	}

	fresh := NewStore(kv, Defaults(), logx.Nop())
	got, _ := fresh.Load(ctx)
	if got.Logo() != logo || got.Frequency != "30s" {
		t.Fatalf("reload = %+v", got)
	}
}

func TestStoreSaveRejectsInvalid(t *testing.T) {
	st := NewStore(storage.NewMemory(), Defaults(), logx.Nop())
	bad := Defaults()
	bad.MaxNotifications = 0
	if err := st.Save(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
	if st.Current().MaxNotifications != 10 {
		t.Fatal("invalid settings must not become current")
	}
}

func TestStoreSaveKeepsValueOnPersistFailure(t *testing.T) {
	st := NewStore(failingKV{storage.NewMemory()}, Defaults(), logx.Nop())
	next := Defaults()
	next.StoreName = "Kept"
	if err := st.Save(context.Background(), next); err == nil {
		t.Fatal("expected persistence error")
	}
	if st.Current().StoreName != "Kept" {
		t.Fatalf("current = %+v", st.Current())
	}
}

func TestSetField(t *testing.T) {
	s := Defaults()
	tests := []struct {
		field, value string
		check        func(Settings) bool
	}{
		{"frequency", "10s", func(o Settings) bool { return o.Frequency == "10s" }},
		{"maxNotifications", "25", func(o Settings) bool { return o.MaxNotifications == 25 }},
		{"ORDERTHRESHOLD", "$99.5", func(o Settings) bool { return o.OrderThreshold == 99.5 }},
		{"storeName", " Acme ", func(o Settings) bool { return o.StoreName == "Acme" }},
		{"customLogo", "/tmp/logo.png", func(o Settings) bool { return o.Logo() == "/tmp/logo.png" }},
		{"customLogo", "none", func(o Settings) bool { return o.CustomLogo == nil }},
	}
	for _, tt := range tests {
		out, err := s.Set(tt.field, tt.value)
		if err != nil {
			t.Fatalf("Set(%s, %s): %v", tt.field, tt.value, err)
		}
		if !tt.check(out) {
			t.Fatalf("Set(%s, %s) = %+v", tt.field, tt.value, out)
		}
	}
	if _, err := s.Set("maxNotifications", "lots"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := s.Set("color", "red"); err == nil {
		t.Fatal("expected unknown field error")
	}
	for _, v := range []string{"inf", "+Inf", "-inf", "NaN", "$Infinity"} {
		if out, err := s.Set("orderThreshold", v); err == nil {
			t.Fatalf("Set(orderThreshold, %s) = %v, want error", v, out.OrderThreshold)
		}
	}
}

func TestStoreSaveRejectsNonFiniteThreshold(t *testing.T) {
	kv := storage.NewMemory()
	st := NewStore(kv, Defaults(), logx.Nop())
	bad := Defaults()
	bad.OrderThreshold = math.Inf(1)
	if err := st.Save(context.Background(), bad); err == nil {
		t.Fatal("expected error for infinite threshold")
	}
	if got := st.Current().OrderThreshold; got != 0 {
		t.Fatalf("current threshold = %v, want unchanged 0", got)
	}
	if _, ok, _ := kv.Get(context.Background(), Key); ok {
		t.Fatal("nothing should have been persisted")
	}
}

func TestBodyIsTemplateAsGiven(t *testing.T) {
	s := Defaults()
	s.CustomBody = ""
	if got := s.Body(); got != "" {
		t.Fatalf("Body() = %q, want empty", got)
	}
	s.CustomBody = "Order {orderId}"
	if got := s.Body(); got != "Order {orderId}" {
		t.Fatalf("Body() = %q", got)
	}
}
