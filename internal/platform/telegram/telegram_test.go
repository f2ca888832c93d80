package telegram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ordernotify/internal/platform"
	kit "ordernotify/internal/transport"
	logx "ordernotify/pkg/logx"
)

type fakeSender struct {
	reachable bool
	photoErr  error
	texts     []string
	photos    []kit.Photo
}

func (f *fakeSender) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.texts = append(f.texts, text)
	return kit.MessageRef{MessageID: len(f.texts)}, nil
}

func (f *fakeSender) SendPhoto(_ context.Context, _ kit.ChatTarget, p kit.Photo, _ *kit.SendOptions) (kit.MessageRef, error) {
	if f.photoErr != nil {
		return kit.MessageRef{}, f.photoErr
	}
	f.photos = append(f.photos, p)
	return kit.MessageRef{MessageID: len(f.photos)}, nil
}

func (f *fakeSender) ChatReachable(context.Context, int64) (bool, error) { return f.reachable, nil }

func TestPermission(t *testing.T) {
	fs := &fakeSender{reachable: true}
	p := New(fs, kit.ChatTarget{ChatID: 42}, logx.Nop())
	if ok, err := p.RequestPermission(context.Background()); err != nil || !ok {
		t.Fatalf("permission = %v, %v", ok, err)
	}
	p = New(fs, kit.ChatTarget{}, logx.Nop())
	if ok, _ := p.RequestPermission(context.Background()); ok {
		t.Fatal("missing chat id must deny")
	}
}

func TestDeliverText(t *testing.T) {
	fs := &fakeSender{}
	p := New(fs, kit.ChatTarget{ChatID: 1}, logx.Nop())
	err := p.Deliver(context.Background(), platform.Notification{Title: "Order #1", Body: "body", Icon: "not-a-file.png"})
	if err != nil {
		t.Fatal(err)
	}
	if len(fs.texts) != 1 || fs.texts[0] != "Order #1\nbody" {
		t.Fatalf("texts = %q", fs.texts)
	}
}

func TestDeliverPhoto(t *testing.T) {
	logo := filepath.Join(t.TempDir(), "logo.png")
	if err := os.WriteFile(logo, []byte("png"), 0o600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		icon string
		want kit.Photo
	}{
		{"https://example.com/l.png", kit.Photo{URL: "https://example.com/l.png", Caption: "T\nB"}},
		{logo, kit.Photo{Path: logo, Caption: "T\nB"}},
	}
	for _, tt := range tests {
		fs := &fakeSender{}
		p := New(fs, kit.ChatTarget{ChatID: 1}, logx.Nop())
		if err := p.Deliver(context.Background(), platform.Notification{Title: "T", Body: "B", Icon: tt.icon}); err != nil {
			t.Fatal(err)
		}
		if len(fs.photos) != 1 || fs.photos[0] != tt.want || len(fs.texts) != 0 {
			t.Fatalf("icon %q: photos=%+v texts=%q", tt.icon, fs.photos, fs.texts)
		}
	}
}

func TestDeliverPhotoFallsBackToText(t *testing.T) {
	fs := &fakeSender{photoErr: errors.New("bad url")}
	p := New(fs, kit.ChatTarget{ChatID: 1}, logx.Nop())
	if err := p.Deliver(context.Background(), platform.Notification{Title: "T", Body: "B", Icon: "https://x/y.png"}); err != nil {
		t.Fatal(err)
	}
	if len(fs.texts) != 1 {
		t.Fatalf("expected text fallback, got %q", fs.texts)
	}
}
