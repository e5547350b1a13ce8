package gatekeeper

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ActivityEventType string

const (
	ActivityAccountRegistered ActivityEventType = "account.registered"
	ActivityLoginSucceeded    ActivityEventType = "auth.login.success"
	ActivityLoginFailed       ActivityEventType = "auth.login.failure"
	ActivityAccountApproved   ActivityEventType = "account.approved"
	ActivityAccountRejected   ActivityEventType = "account.rejected"
	ActivityAccountUpdated    ActivityEventType = "account.updated"
)

// ActivityEvent records a lifecycle or authentication event for audit
// consumers. Sinks receive events after the underlying operation has been
// committed; a sink error never rolls the operation back.
type ActivityEvent struct {
	EventType  ActivityEventType `json:"event_type"`
	Actor      ActorRef          `json:"actor"`
	AccountID  uuid.UUID         `json:"account_id"`
	From       ApprovalState     `json:"from,omitempty"`
	To         ApprovalState     `json:"to,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error { return nil }

func normalizeActivitySink(sink ActivitySink) ActivitySink {
	if sink == nil {
		return noopActivitySink{}
	}
	return sink
}
