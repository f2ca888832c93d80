// Package telegram delivers order notifications into one Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"os"
	"strings"

	"ordernotify/internal/platform"
	kit "ordernotify/internal/transport"
	logx "ordernotify/pkg/logx"
)

// Sender is the part of the transport adapter the platform needs.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
	SendPhoto(ctx context.Context, to kit.ChatTarget, p kit.Photo, opt *kit.SendOptions) (kit.MessageRef, error)
	ChatReachable(ctx context.Context, chatID int64) (bool, error)
}

type Platform struct {
	send   Sender
	target kit.ChatTarget
	log    logx.Logger
}

func New(send Sender, target kit.ChatTarget, log logx.Logger) *Platform {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Platform{send: send, target: target, log: log}
}

func (p *Platform) Name() string { return "telegram" }

// RequestPermission is granted when the bot can reach the target chat.
func (p *Platform) RequestPermission(ctx context.Context) (bool, error) {
	if p.target.ChatID == 0 {
		return false, nil
	}
	ok, err := p.send.ChatReachable(ctx, p.target.ChatID)
	if err != nil {
		return false, fmt.Errorf("telegram permission: %w", err)
	}
	return ok, nil
}

// Deliver posts the notification as a photo when its icon is a URL or an
// existing local file, and as plain text otherwise.
func (p *Platform) Deliver(ctx context.Context, n platform.Notification) error {
	text := render(n)
	if photo, ok := photoFor(n.Icon); ok {
		photo.Caption = text
		_, err := p.send.SendPhoto(ctx, p.target, photo, nil)
		if err == nil {
			return nil
		}
		// A broken logo must not cost the notification itself.
		p.log.Warn("photo send failed; falling back to text", logx.String("icon", n.Icon), logx.Err(err))
	}
	if _, err := p.send.SendText(ctx, p.target, text, &kit.SendOptions{DisablePreview: true}); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func render(n platform.Notification) string {
	if n.Title == "" {
		return n.Body
	}
	return n.Title + "\n" + n.Body
}

func photoFor(icon string) (kit.Photo, bool) {
	icon = strings.TrimSpace(icon)
	if icon == "" {
		return kit.Photo{}, false
	}
	lower := strings.ToLower(icon)
	if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") {
		return kit.Photo{URL: icon}, true
	}
	if st, err := os.Stat(icon); err == nil && st.Mode().IsRegular() {
		return kit.Photo{Path: icon}, true
	}
	return kit.Photo{}, false
}
