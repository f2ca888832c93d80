package scheduler

import "errors"

var (
	// ErrPermissionDenied is returned by Enable when the platform refuses.
	ErrPermissionDenied = errors.New("notification permission denied")
	// ErrDisabled is returned by Start and SendTest while notifications are disabled.
	ErrDisabled = errors.New("notifications are disabled")
	// ErrPersistence wraps storage failures; state is kept in memory.
	ErrPersistence = errors.New("persistence failure")
	// ErrDispatch wraps dispatch failures; the order is still recorded.
	ErrDispatch = errors.New("dispatch failure")
)

// AdvisoryKind classifies an Advisory.
type AdvisoryKind string

const (
	KindPermissionDenied   AdvisoryKind = "permission_denied"
	KindPersistence        AdvisoryKind = "persistence_failure"
	KindDispatch           AdvisoryKind = "dispatch_failure"
	KindMalformedFrequency AdvisoryKind = "malformed_frequency"
)

// Advisory is a user-facing, non-fatal message published on the event bus.
type Advisory struct {
	Kind    AdvisoryKind `json:"kind"`
	Message string       `json:"message"`
	Err     error        `json:"-"`
}

func (a Advisory) String() string { return string(a.Kind) + ": " + a.Message }
