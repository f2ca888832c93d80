package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ordernotify/internal/settings"
	logx "ordernotify/pkg/logx"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

const sampleYAML = `
logging:
  level: debug
  console: true
storage:
  driver: file
  path: ./data/kv.json
scheduler:
  timezone: UTC
  min_interval: 30s
  autostart: true
notifier:
  queue_size: 8
  rate_per_sec: 2.5
platform:
  kind: console
  permission: denied
defaults:
  frequency: 10s
  maxNotifications: 3
  customLogo: https://example.com/logo.png
`

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)
	cfg, err := NewConfigManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage.Driver != "file" || cfg.Storage.Path != "./data/kv.json" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if !cfg.Scheduler.Autostart || cfg.Notifier.RatePerSec != 2.5 || cfg.Notifier.QueueSize != 8 {
		t.Fatalf("scheduler/notifier = %+v %+v", cfg.Scheduler, cfg.Notifier)
	}
	if cfg.Defaults == nil || *cfg.Defaults.Frequency != "10s" || *cfg.Defaults.MaxNotifications != 3 {
		t.Fatalf("defaults = %+v", cfg.Defaults)
	}

	rt, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rt.Location.String() != "UTC" {
		t.Fatalf("location = %v", rt.Location)
	}
	if rt.MinInterval != 30*time.Second {
		t.Fatalf("min interval = %v", rt.MinInterval)
	}
	if rt.Settings.Frequency != "10s" || rt.Settings.MaxNotifications != 3 || rt.Settings.Logo() != "https://example.com/logo.png" {
		t.Fatalf("settings = %+v", rt.Settings)
	}
	if rt.Settings.StoreName != settings.Defaults().StoreName {
		t.Fatalf("store name should keep default, got %q", rt.Settings.StoreName)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown.json":  `{"storage":{"driver":"memory"},"pprof":{}}`,
		"unknown.yaml":  "scheduler:\n  workers: 3\n",
		"trailing.json": `{} {}`,
	}
	for name, body := range cases {
		p := writeFile(t, dir, name, body)
		if _, err := NewConfigManager(p).Parse(); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestEmptyYAMLIsZeroConfig(t *testing.T) {
	p := writeFile(t, t.TempDir(), "empty.yml", "")
	cfg, err := NewConfigManager(p).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("zero config should resolve: %v", err)
	}
}

func TestResolveDefaults(t *testing.T) {
	rt, err := Resolve(&Config{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rt.Location != time.Local {
		t.Fatalf("location = %v", rt.Location)
	}
	if rt.MinInterval != time.Minute || rt.SendTimeout != 10*time.Second || rt.PollTimeout != 10*time.Second {
		t.Fatalf("durations = %+v", rt)
	}
	if rt.DefaultIcon != DefaultIcon {
		t.Fatalf("icon = %q", rt.DefaultIcon)
	}
	if rt.Settings != settings.Defaults() {
		t.Fatalf("settings = %+v", rt.Settings)
	}
}

func TestResolveErrors(t *testing.T) {
	neg := -1
	blank := "  "
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"unknown driver", Config{Storage: StorageConfig{Driver: "redis"}}, "storage.driver"},
		{"file without path", Config{Storage: StorageConfig{Driver: "file"}}, "storage.path"},
		{"bad busy timeout", Config{Storage: StorageConfig{Driver: "memory", BusyTimeout: "soon"}}, "storage.busy_timeout"},
		{"bad timezone", Config{Scheduler: SchedulerConfig{Timezone: "Mars/Olympus"}}, "scheduler.timezone"},
		{"tiny min interval", Config{Scheduler: SchedulerConfig{MinInterval: "10ms"}}, "min_interval"},
		{"negative workers", Config{Notifier: NotifierConfig{Workers: -1}}, "notifier"},
		{"bad send timeout", Config{Notifier: NotifierConfig{SendTimeout: "-1s"}}, "send_timeout"},
		{"unknown platform", Config{Platform: PlatformConfig{Kind: "sms"}}, "platform.kind"},
		{"bad permission", Config{Platform: PlatformConfig{Permission: "maybe"}}, "platform.permission"},
		{"telegram without token", Config{Platform: PlatformConfig{Kind: "telegram", Telegram: TelegramConfig{ChatID: 1}}}, "token"},
		{"telegram without chat", Config{Platform: PlatformConfig{Kind: "telegram", Telegram: TelegramConfig{Token: "t"}}}, "chat_id"},
		{"invalid cap", Config{Defaults: &DefaultsConfig{MaxNotifications: &neg}}, "maxNotifications"},
		{"blank frequency", Config{Defaults: &DefaultsConfig{Frequency: &blank}}, "frequency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(&tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestTelegramTokenFromEnv(t *testing.T) {
	t.Setenv("ORDERNOTIFY_TEST_TOKEN", "123:abc")
	cfg := &Config{Platform: PlatformConfig{Kind: "telegram", Telegram: TelegramConfig{Token: "env:ORDERNOTIFY_TEST_TOKEN", ChatID: 7}}}
	if got := cfg.TelegramToken(); got != "123:abc" {
		t.Fatalf("token = %q", got)
	}
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cfg.Platform.Telegram.Token = "env:ORDERNOTIFY_TEST_MISSING"
	if _, err := Resolve(cfg); err == nil {
		t.Fatal("missing env token should fail")
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	oldCfg := &Config{Platform: PlatformConfig{Kind: "telegram", Telegram: TelegramConfig{Token: "secret-1", ChatID: 1}}}
	newCfg := &Config{
		Logging:  LoggingConfig{Level: "debug"},
		Platform: PlatformConfig{Kind: "telegram", Telegram: TelegramConfig{Token: "secret-2", ChatID: 1}},
	}
	sections, attrs, restart := SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(sections, ",") != "logging,platform" {
		t.Fatalf("sections = %v", sections)
	}
	if strings.Join(restart, ",") != "platform.kind/telegram" {
		t.Fatalf("restart = %v", restart)
	}

	var buf bytes.Buffer
	logx.NewWriter(&buf, "debug").Info("summary", attrs...)
	if strings.Contains(buf.String(), "secret") {
		t.Fatalf("token leaked into log: %s", buf.String())
	}

	if s, _, _ := SummarizeConfigChange(newCfg, newCfg); len(s) != 0 {
		t.Fatalf("identical configs reported changes: %v", s)
	}
}

func TestWatchPublishesReload(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", `{"logging":{"level":"info"}}`)
	m := NewConfigManager(p)
	m.SetValidator(func(c *Config) error {
		_, err := Resolve(c)
		return err
	})
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(4)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// The watcher registers asynchronously; keep writing until it sees one.
	// An invalid edit first must never be published.
	writeFile(t, dir, "config.json", `{"storage":{"driver":"redis"}}`)
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-sub:
			if cfg.Logging.Level != "debug" {
				t.Fatalf("published config = %+v", cfg)
			}
			if m.Get() != cfg {
				t.Fatal("published config was not committed")
			}
			return
		case <-tick.C:
			writeFile(t, dir, "config.json", `{"logging":{"level":"debug"}}`)
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}
