// Package console is a line-based command transport over a reader/writer
// pair (stdin/stdout). Every line is delivered as a message from chat 0.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"ordernotify/internal/runtime/supervisor"
	kit "ordernotify/internal/transport"
	logx "ordernotify/pkg/logx"
)

type Adapter struct {
	log logx.Logger

	in    io.Reader
	outMu sync.Mutex
	out   io.Writer

	runMu   sync.Mutex
	running bool
	sup     *supervisor.Supervisor

	nextID atomic.Int64
}

var _ kit.Adapter = (*Adapter)(nil)

func New(in io.Reader, out io.Writer, log logx.Logger) *Adapter {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{log: log, in: in, out: out}
}

// Start reads lines until EOF or ctx is done. Blank lines are skipped.
func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return nil
	}
	a.running = true
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	lines := make(chan string)
	// The scanner cannot be interrupted; it is left to exit with the process.
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.in)
		for sc.Scan() {
			lines <- sc.Text()
		}
		if err := sc.Err(); err != nil {
			a.log.Warn("console input failed", logx.Err(err))
		}
	}()

	a.sup.Go("console.read", func(c context.Context) error {
		for {
			select {
			case <-c.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					a.log.Debug("console input closed")
					return nil
				}
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if !strings.HasPrefix(line, "/") {
					line = "/" + line
				}
				up := kit.Update{Message: &kit.Message{ID: int(a.nextID.Add(1)), Text: line}}
				select {
				case out <- up:
				case <-c.Done():
					return nil
				}
			}
		}
	})
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	a.running = false
	a.runMu.Unlock()
	if sup == nil {
		return nil
	}
	sup.Cancel()
	return sup.Wait(ctx)
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	a.outMu.Lock()
	defer a.outMu.Unlock()
	if _, err := fmt.Fprintln(a.out, text); err != nil {
		return kit.MessageRef{}, fmt.Errorf("console write: %w", err)
	}
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: int(a.nextID.Add(1))}, nil
}

func (a *Adapter) SendPhoto(ctx context.Context, to kit.ChatTarget, p kit.Photo, opt *kit.SendOptions) (kit.MessageRef, error) {
	src := p.URL
	if src == "" {
		src = p.Path
	}
	return a.SendText(ctx, to, p.Caption+" [image: "+src+"]", opt)
}

// ChatReachable is always true: the terminal is the only chat.
func (a *Adapter) ChatReachable(ctx context.Context, chatID int64) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}
