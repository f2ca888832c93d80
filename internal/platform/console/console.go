// Package console is a platform that prints notifications to a writer and
// logs them. Permission is fixed by configuration.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"ordernotify/internal/platform"
	logx "ordernotify/pkg/logx"
)

type Config struct {
	// Permission is "granted" (default) or "denied".
	Permission string
}

type Platform struct {
	log logx.Logger

	mu      sync.Mutex
	out     io.Writer
	granted bool
}

func New(cfg Config, out io.Writer, log logx.Logger) *Platform {
	if log.IsZero() {
		log = logx.Nop()
	}
	if out == nil {
		out = logx.Stdout()
	}
	return &Platform{log: log, out: out, granted: granted(cfg.Permission)}
}

func granted(p string) bool {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "denied", "deny", "false", "no":
		return false
	default:
		return true
	}
}

func (p *Platform) Name() string { return "console" }

// Apply updates the permission answer on config reload.
func (p *Platform) Apply(cfg Config) {
	p.mu.Lock()
	p.granted = granted(cfg.Permission)
	p.mu.Unlock()
}

func (p *Platform) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	ok := p.granted
	p.mu.Unlock()
	p.log.Info("notification permission requested", logx.Bool("granted", ok))
	return ok, nil
}

func (p *Platform) Deliver(ctx context.Context, n platform.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.granted {
		return platform.ErrNotPermitted
	}
	line := fmt.Sprintf("[%s] %s", n.Title, n.Body)
	if n.Icon != "" {
		line += " (icon: " + n.Icon + ")"
	}
	if _, err := fmt.Fprintln(p.out, line); err != nil {
		return fmt.Errorf("console write: %w", err)
	}
	p.log.Info("notification delivered",
		logx.String("id", n.ID),
		logx.String("tag", n.Tag),
		logx.String("order_id", n.Metadata.OrderID),
		logx.String("amount", n.Metadata.Amount),
		logx.Int("items", n.Metadata.Items),
	)
	return nil
}
