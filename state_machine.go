package gatekeeper

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who drove a transition. System transitions (e.g. the
// bootstrap admin auto approval) use a zero ID with Kind "system".
type ActorRef struct {
	ID   uuid.UUID `json:"id"`
	Kind string    `json:"kind"`
}

func SystemActor() ActorRef {
	return ActorRef{Kind: "system"}
}

func AdminActor(id uuid.UUID) ActorRef {
	return ActorRef{ID: id, Kind: "admin"}
}

// approvalTransitions is the authoritative lifecycle table. Pending accounts
// may be approved or removed; approved and removed are terminal.
var approvalTransitions = map[ApprovalState]map[ApprovalState]struct{}{
	ApprovalPending: {
		ApprovalApproved: {},
		ApprovalRemoved:  {},
	},
}

// StateMachine validates approval transitions and emits audit events. It
// carries no account state of its own; callers pass the current state and
// persist the result.
type StateMachine struct {
	sink   ActivitySink
	logger Logger
	now    func() time.Time
}

type StateMachineOption func(*StateMachine)

func WithMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(m *StateMachine) {
		m.sink = normalizeActivitySink(sink)
	}
}

func WithMachineLogger(logger Logger) StateMachineOption {
	return func(m *StateMachine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMachineClock(now func() time.Time) StateMachineOption {
	return func(m *StateMachine) {
		if now != nil {
			m.now = now
		}
	}
}

func NewStateMachine(opts ...StateMachineOption) *StateMachine {
	m := &StateMachine{
		sink:   noopActivitySink{},
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

type transitionConfig struct {
	reason   string
	metadata map[string]any
}

type TransitionOption func(*transitionConfig)

func WithTransitionReason(reason string) TransitionOption {
	return func(c *transitionConfig) {
		c.reason = reason
	}
}

func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(c *transitionConfig) {
		c.metadata = metadata
	}
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func (m *StateMachine) CanTransition(from, to ApprovalState) bool {
	targets, ok := approvalTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Guard returns the lifecycle error for a move outside the transitions
// table, with the attempted states attached as metadata.
func (m *StateMachine) Guard(from, to ApprovalState) error {
	if m.CanTransition(from, to) {
		return nil
	}
	return ErrInvalidTransition.WithMetadata(map[string]any{
		"from": string(from),
		"to":   string(to),
	})
}

// Transition validates the move and records an audit event. Callers persist
// the new state first; sinks only ever see committed changes.
func (m *StateMachine) Transition(ctx context.Context, actor ActorRef, accountID uuid.UUID, from, to ApprovalState, opts ...TransitionOption) error {
	cfg := &transitionConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	if err := m.Guard(from, to); err != nil {
		return err
	}

	eventType := ActivityAccountApproved
	if to == ApprovalRemoved {
		eventType = ActivityAccountRejected
	}

	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		AccountID:  accountID,
		From:       from,
		To:         to,
		Reason:     cfg.reason,
		Metadata:   cfg.metadata,
		OccurredAt: m.now(),
	}

	if err := m.sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink rejected event type=%s account=%s: %v", event.EventType, accountID, err)
	}

	return nil
}
