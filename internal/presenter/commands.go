package presenter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ordernotify/internal/history"
	"ordernotify/internal/order"
	"ordernotify/internal/scheduler"
	"ordernotify/internal/settings"
)

func (p *Presenter) builtins() []Command {
	return []Command{
		{Route: "enable", Description: "ask permission and enable notifications", Usage: "/enable", Handle: p.cmdEnable},
		{Route: "disable", Description: "disable notifications and stop the schedule", Usage: "/disable", Handle: p.cmdDisable},
		{Route: "start", Description: "start the notification schedule", Usage: "/start", Handle: p.cmdStart},
		{Route: "stop", Description: "stop the notification schedule", Usage: "/stop", Handle: p.cmdStop},
		{Route: "test", Description: "send one test notification now", Usage: "/test", Handle: p.cmdTest},
		{Route: "status", Description: "show scheduler state and daily count", Usage: "/status", Handle: p.cmdStatus},
		{Route: "history", Description: "show recent orders", Usage: "/history [n]", Handle: p.cmdHistory},
		{Route: "settings", Description: "show current settings", Usage: "/settings", Handle: p.cmdSettings},
		{Route: "set", Description: "change one setting", Usage: "/set <field> <value>", Handle: p.cmdSet},
		{Route: "help", Aliases: []string{"h"}, Description: "list commands", Usage: "/help", Handle: p.cmdHelp},
	}
}

func (p *Presenter) cmdEnable(ctx context.Context, req *Request) error {
	if err := p.sched.Enable(ctx); err != nil {
		return err
	}
	p.reply(ctx, req.Chat, "✅ notifications enabled")
	return nil
}

func (p *Presenter) cmdDisable(ctx context.Context, req *Request) error {
	if err := p.sched.Disable(ctx); err != nil {
		return err
	}
	p.reply(ctx, req.Chat, "🔕 notifications disabled")
	return nil
}

func (p *Presenter) cmdStart(ctx context.Context, req *Request) error {
	if err := p.sched.Start(ctx); err != nil {
		return err
	}
	snap := p.sched.Snapshot()
	p.reply(ctx, req.Chat, "▶️ schedule started, every "+snap.Interval.String())
	return nil
}

func (p *Presenter) cmdStop(ctx context.Context, req *Request) error {
	if err := p.sched.Stop(ctx); err != nil {
		return err
	}
	p.reply(ctx, req.Chat, "⏹ schedule stopped")
	return nil
}

func (p *Presenter) cmdTest(ctx context.Context, req *Request) error {
	if err := p.sched.SendTest(ctx); err != nil {
		return err
	}
	p.reply(ctx, req.Chat, "🧪 test notification sent")
	return nil
}

func (p *Presenter) cmdStatus(ctx context.Context, req *Request) error {
	p.reply(ctx, req.Chat, renderStatus(p.sched.Snapshot(), p.config().Location))
	return nil
}

func (p *Presenter) cmdHistory(ctx context.Context, req *Request) error {
	n := 5
	if len(req.Args) > 0 {
		v, err := strconv.Atoi(req.Args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("usage: /history [n], n between 1 and %d", history.Capacity)
		}
		n = min(v, history.Capacity)
	}
	p.reply(ctx, req.Chat, renderHistory(p.history.Recent(n), p.config().Location))
	return nil
}

func (p *Presenter) cmdSettings(ctx context.Context, req *Request) error {
	p.reply(ctx, req.Chat, renderSettings(p.settings.Current()))
	return nil
}

func (p *Presenter) cmdSet(ctx context.Context, req *Request) error {
	if len(req.Args) < 1 {
		return errors.New("usage: /set <field> <value>; fields: " + strings.Join(settings.FieldNames, ", "))
	}
	// The value is the raw remainder so templates keep their spacing.
	value := ""
	if len(req.Args) > 1 {
		_, rest, _ := strings.Cut(strings.TrimSpace(req.Text), req.Args[0])
		value = strings.TrimSpace(rest)
	}
	next, err := p.settings.Current().Set(req.Args[0], value)
	if err != nil {
		return err
	}
	if err := p.sched.UpdateSettings(ctx, next); err != nil {
		return err
	}
	p.reply(ctx, req.Chat, "💾 saved\n"+renderSettings(next))
	return nil
}

func (p *Presenter) cmdHelp(ctx context.Context, req *Request) error {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, c := range p.ordered {
		fmt.Fprintf(&b, "%s  %s\n", c.Usage, c.Description)
	}
	p.reply(ctx, req.Chat, strings.TrimRight(b.String(), "\n"))
	return nil
}

func renderStatus(s scheduler.Snapshot, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State: %s\n", s.State)
	fmt.Fprintf(&b, "Today: %d/%d notifications\n", s.DailyCount, s.DailyCap)
	fmt.Fprintf(&b, "Frequency: %s", s.Frequency)
	if s.Interval > 0 {
		fmt.Fprintf(&b, " (every %s)", s.Interval)
	}
	if !s.NextRun.IsZero() {
		fmt.Fprintf(&b, "\nNext: %s", s.NextRun.In(loc).Format("15:04:05"))
	}
	return b.String()
}

func renderHistory(orders []order.Order, loc *time.Location) string {
	if len(orders) == 0 {
		return "No notifications yet."
	}
	var b strings.Builder
	for i, o := range orders {
		if i > 0 {
			b.WriteByte('\n')
		}
		at := time.UnixMilli(o.Timestamp).In(loc).Format("Jan 2 15:04:05")
		fmt.Fprintf(&b, "%s  %d item(s)  $%s  %s  %s", o.OrderID, o.Items, o.Amount, o.Store, at)
	}
	return b.String()
}

func renderSettings(s settings.Settings) string {
	logo := s.Logo()
	if logo == "" {
		logo = "(default)"
	}
	return strings.Join([]string{
		"frequency: " + s.Frequency,
		"maxNotifications: " + strconv.Itoa(s.MaxNotifications),
		"orderThreshold: " + strconv.FormatFloat(s.OrderThreshold, 'f', 2, 64),
		"customBody: " + s.Body(),
		"storeName: " + s.StoreName,
		"customLogo: " + logo,
	}, "\n")
}
