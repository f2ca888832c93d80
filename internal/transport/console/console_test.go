package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	kit "ordernotify/internal/transport"
	logx "ordernotify/pkg/logx"
)

func TestStartEmitsCommands(t *testing.T) {
	in := strings.NewReader("status\n\n  /history 3 \n")
	a := New(in, &bytes.Buffer{}, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan kit.Update, 4)
	if err := a.Start(ctx, out); err != nil {
		t.Fatalf("Start: %v", err)
	}

	want := []string{"/status", "/history 3"}
	for _, w := range want {
		select {
		case up := <-out:
			if up.Message == nil || up.Message.Text != w {
				t.Fatalf("update = %+v, want text %q", up.Message, w)
			}
			if up.Message.ChatID != 0 {
				t.Fatalf("chat id = %d, want 0", up.Message.ChatID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", w)
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestSendTextAndPhoto(t *testing.T) {
	var buf bytes.Buffer
	a := New(strings.NewReader(""), &buf, logx.Nop())
	ctx := context.Background()

	if _, err := a.SendText(ctx, kit.ChatTarget{}, "hello", nil); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if _, err := a.SendPhoto(ctx, kit.ChatTarget{}, kit.Photo{URL: "https://x/logo.png", Caption: "Order #1234"}, nil); err != nil {
		t.Fatalf("SendPhoto: %v", err)
	}
	got := buf.String()
	if got != "hello\nOrder #1234 [image: https://x/logo.png]\n" {
		t.Fatalf("output = %q", got)
	}
	if ok, err := a.ChatReachable(ctx, 0); !ok || err != nil {
		t.Fatalf("ChatReachable = %v, %v", ok, err)
	}
}
