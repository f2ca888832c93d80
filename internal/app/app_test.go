package app

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ordernotify/internal/config"
	"ordernotify/internal/scheduler"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func stopApp(t *testing.T, a *App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Stop(ctx, StopSignal); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestConsoleCommandsDriveScheduler(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `
logging:
  level: error
storage:
  driver: file
  path: `+filepath.Join(dir, "kv.json")+`
scheduler:
  timezone: UTC
platform:
  kind: console
`)

	inR, inW := io.Pipe()
	defer inW.Close()
	out := &syncBuffer{}

	a, err := New(cfgPath, WithIO(inR, out))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := io.WriteString(inW, "enable\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, "welcome notification", func() bool { return strings.Contains(out.String(), "[Order #1001]") })

	if _, err := io.WriteString(inW, "start\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, "active state", func() bool { return a.Scheduler().State() == scheduler.Active })
	if n := a.Scheduler().Snapshot().Timers; n != 1 {
		t.Fatalf("timers = %d, want 1", n)
	}
	stopApp(t, a)

	// Flags survive a restart: the schedule resumes without asking again.
	b, err := New(cfgPath, WithIO(strings.NewReader(""), &syncBuffer{}))
	if err != nil {
		t.Fatalf("New (restart): %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start (restart): %v", err)
	}
	defer stopApp(t, b)
	if st := b.Scheduler().State(); st != scheduler.Active {
		t.Fatalf("restored state = %v, want Active", st)
	}
	if got := b.history.Len(); got != 1 {
		t.Fatalf("history = %d, want the welcome order", got)
	}
}

func TestAutostartWithDeniedPermission(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `
logging:
  level: error
storage:
  driver: memory
scheduler:
  autostart: true
platform:
  permission: denied
`)
	a, err := New(cfgPath, WithIO(strings.NewReader(""), &syncBuffer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopApp(t, a)
	if st := a.Scheduler().State(); st != scheduler.Disabled {
		t.Fatalf("state = %v, want Disabled", st)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "platform:\n  kind: telegram\n")
	if _, err := New(cfgPath); err == nil {
		t.Fatal("expected error for telegram without token")
	}
}

func TestApplyConfigSwapsPermission(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "logging:\n  level: error\nplatform:\n  permission: granted\n")
	a, err := New(cfgPath, WithIO(strings.NewReader(""), &syncBuffer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	oldCfg := a.cfgm.Get()
	newCfg := *oldCfg
	newCfg.Platform.Permission = "denied"
	a.applyConfig(oldCfg, &newCfg)

	ok, err := a.platform.RequestPermission(context.Background())
	if err != nil || ok {
		t.Fatalf("permission after reload = %v, %v; want denied", ok, err)
	}
	_ = a.store.Close()
	_ = a.logs.Close()
}

func TestMapPresenterConfig(t *testing.T) {
	cfg := &config.Config{Platform: config.PlatformConfig{Kind: "telegram", Telegram: config.TelegramConfig{Token: "t", ChatID: 42, ThreadID: 3}}}
	rt, err := config.Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	pc := mapPresenterConfig(cfg, rt)
	if pc.Chat.ChatID != 42 || pc.Chat.ThreadID != 3 || pc.Local {
		t.Fatalf("telegram presenter config = %+v", pc)
	}
	pc = mapPresenterConfig(&config.Config{}, rt)
	if pc.Chat.ChatID != 0 || !pc.Local {
		t.Fatalf("console presenter config = %+v", pc)
	}
}

func TestStopDeliversQueuedNotifications(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "logging:\n  level: error\nstorage:\n  driver: memory\nplatform:\n  kind: console\n")
	out := &syncBuffer{}
	a, err := New(cfgPath, WithIO(strings.NewReader(""), out))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// The welcome order is queued; Stop must deliver it rather than drop it.
	if err := a.Scheduler().Enable(context.Background()); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	stopApp(t, a)
	if !strings.Contains(out.String(), "[Order #1001]") {
		t.Fatalf("welcome notification not delivered before shutdown; output = %q", out.String())
	}
}
