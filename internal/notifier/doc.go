// Package notifier is the asynchronous dispatch pipeline between the
// scheduler and a notification platform.
//
// Dispatch assigns a delivery id, enqueues and returns immediately. Workers
// drain the queue through a token-bucket rate limiter and deliver with a
// per-call timeout. There is no retry: a failed delivery is logged and
// published on the event bus as notifier.failed.
package notifier
