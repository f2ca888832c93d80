package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"

	logx "ordernotify/pkg/logx"
)

// cronLogger routes cron's internal logging through logx. cron's Info
// chatter (schedule, wake, run) goes to debug.
type cronLogger struct{ log logx.Logger }

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			out = append(out, logx.Any(key, nil))
			break
		}
		out = append(out, logx.Any(key, kv[i+1]))
	}
	return out
}
