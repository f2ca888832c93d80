package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"ordernotify/internal/platform"
	logx "ordernotify/pkg/logx"
)

func TestDeliverWritesLine(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{}, &buf, logx.Nop())

	ok, err := p.RequestPermission(context.Background())
	if err != nil || !ok {
		t.Fatalf("permission = %v, %v", ok, err)
	}
	n := platform.Notification{Title: "Order #1001", Body: "hello", Icon: "logo.png"}
	if err := p.Deliver(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "[Order #1001] hello") || !strings.Contains(got, "logo.png") {
		t.Fatalf("output = %q", got)
	}
}

func TestDeniedPermission(t *testing.T) {
	var buf bytes.Buffer
	p := New(Config{Permission: "denied"}, &buf, logx.Nop())
	ok, err := p.RequestPermission(context.Background())
	if err != nil || ok {
		t.Fatalf("permission = %v, %v", ok, err)
	}
	if err := p.Deliver(context.Background(), platform.Notification{}); !errors.Is(err, platform.ErrNotPermitted) {
		t.Fatalf("err = %v", err)
	}
	p.Apply(Config{Permission: "granted"})
	if ok, _ := p.RequestPermission(context.Background()); !ok {
		t.Fatal("Apply should grant permission")
	}
}
