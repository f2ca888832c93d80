// Package presenter is the chat command surface over the scheduler. It reads
// Telegram updates, runs /enable /disable /start /stop /test /status /history
// /settings /set and relays scheduler advisories into the chat.
package presenter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"ordernotify/internal/eventbus"
	"ordernotify/internal/notifier"
	"ordernotify/internal/order"
	"ordernotify/internal/scheduler"
	"ordernotify/internal/settings"
	kit "ordernotify/internal/transport"
	logx "ordernotify/pkg/logx"
)

// SchedulerPort is the scheduler surface driven by commands.
type SchedulerPort interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SendTest(ctx context.Context) error
	UpdateSettings(ctx context.Context, next settings.Settings) error
	Snapshot() scheduler.Snapshot
}

type SettingsReader interface {
	Current() settings.Settings
}

type HistoryReader interface {
	Recent(n int) []order.Order
}

// Sender posts replies.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
}

type Config struct {
	// Chat is the only chat whose commands are handled and where advisories
	// are posted. ChatID 0 accepts every chat and disables relaying.
	Chat kit.ChatTarget
	// Local marks a single-operator terminal transport; advisories are then
	// relayed to chat 0 as well.
	Local bool

	CommandTimeout time.Duration
	Location       *time.Location
}

type Request struct {
	Chat    kit.ChatTarget
	FromID  int64
	Command string
	Args    []string
	Text    string
}

type Command struct {
	Route       string
	Aliases     []string
	Description string
	Usage       string
	Handle      HandlerFunc
}

type Presenter struct {
	sched    SchedulerPort
	settings SettingsReader
	history  HistoryReader
	send     Sender
	bus      eventbus.Bus
	log      logx.Logger

	mu       sync.RWMutex
	cfg      Config
	commands map[string]*Command
	ordered  []*Command
	handler  HandlerFunc
}

func New(cfg Config, sched SchedulerPort, st SettingsReader, hist HistoryReader, send Sender, bus eventbus.Bus, log logx.Logger) *Presenter {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 15 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	p := &Presenter{sched: sched, settings: st, history: hist, send: send, bus: bus, log: log, cfg: cfg}
	p.register(p.builtins())
	p.handler = Chain(p.route, MWPanicRecover(log), MWRequestLog(log), MWTimeout(cfg.CommandTimeout))
	return p
}

// Apply swaps the chat restriction and display location on reload.
func (p *Presenter) Apply(cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = p.cfg.CommandTimeout
	}
	if cfg.Location == nil {
		cfg.Location = p.cfg.Location
	}
	p.cfg = cfg
}

func (p *Presenter) config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

func (p *Presenter) register(cmds []Command) {
	p.commands = map[string]*Command{}
	p.ordered = p.ordered[:0]
	for i := range cmds {
		c := &cmds[i]
		p.commands[c.Route] = c
		for _, a := range c.Aliases {
			p.commands[a] = c
		}
		p.ordered = append(p.ordered, c)
	}
}

// MenuCommands lists the commands for the transport's command menu.
func (p *Presenter) MenuCommands() []kit.BotCommand {
	out := make([]kit.BotCommand, 0, len(p.ordered))
	for _, c := range p.ordered {
		out = append(out, kit.BotCommand{Command: c.Route, Description: c.Description})
	}
	return out
}

// Run handles updates until ctx is done or updates is closed.
func (p *Presenter) Run(ctx context.Context, updates <-chan kit.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			p.HandleUpdate(ctx, up)
		}
	}
}

// HandleUpdate runs one command message. Errors are replied to the chat.
func (p *Presenter) HandleUpdate(ctx context.Context, up kit.Update) {
	m := up.Message
	if m == nil {
		return
	}
	cfg := p.config()
	if cfg.Chat.ChatID != 0 && m.ChatID != cfg.Chat.ChatID {
		p.log.Debug("ignoring message from foreign chat", logx.Int64("chat_id", m.ChatID))
		return
	}
	cmd, args, ok := parseCommand(m.Text)
	if !ok {
		return
	}
	req := &Request{
		Chat:    kit.ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID},
		FromID:  m.FromID,
		Command: cmd,
		Args:    args,
		Text:    m.Text,
	}
	if err := p.handler(ctx, req); err != nil {
		p.reply(ctx, req.Chat, "⚠️ "+userMessage(err))
	}
}

var errUnknownCommand = errors.New("unknown command; try /help")

func (p *Presenter) route(ctx context.Context, req *Request) error {
	c, ok := p.commands[req.Command]
	if !ok {
		return errUnknownCommand
	}
	return c.Handle(ctx, req)
}

// RelayAdvisories posts advisories and failed deliveries into the
// configured chat until ctx is done.
func (p *Presenter) RelayAdvisories(ctx context.Context) error {
	events, unsub := p.bus.Subscribe(32)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			text := advisoryText(e)
			if text == "" {
				continue
			}
			cfg := p.config()
			chat := cfg.Chat
			if chat.ChatID == 0 && !cfg.Local {
				continue
			}
			p.reply(ctx, chat, text)
		}
	}
}

func advisoryText(e eventbus.Event) string {
	switch e.Type {
	case eventbus.TypeAdvisory:
		if a, ok := e.Data.(scheduler.Advisory); ok {
			return "⚠️ " + a.Message
		}
	case eventbus.TypeFailed:
		if d, ok := e.Data.(notifier.DeliveryEvent); ok {
			return "⚠️ delivery failed for order " + d.OrderID + ": " + d.Error
		}
	}
	return ""
}

func (p *Presenter) reply(ctx context.Context, to kit.ChatTarget, text string) {
	if _, err := p.send.SendText(ctx, to, text, &kit.SendOptions{DisablePreview: true}); err != nil {
		p.log.Warn("reply failed", logx.Int64("chat_id", to.ChatID), logx.Err(err))
	}
}

// parseCommand splits "/cmd@bot a b" into ("cmd", [a b]).
func parseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd), fields[1:], true
}

func userMessage(err error) string {
	var ve settings.ValidationError
	switch {
	case errors.As(err, &ve):
		parts := make([]string, 0, len(ve))
		for _, f := range ve.Fields() {
			parts = append(parts, ve[f])
		}
		return strings.Join(parts, "; ")
	case errors.Is(err, scheduler.ErrDisabled):
		return "notifications are disabled; use /enable first"
	case errors.Is(err, scheduler.ErrPermissionDenied):
		return "notification permission denied"
	default:
		return err.Error()
	}
}
