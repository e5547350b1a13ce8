package gatekeeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/sahayak-app/gatekeeper"
	"github.com/stretchr/testify/assert"
)

func TestStateMachine_CanTransition(t *testing.T) {
	machine := gatekeeper.NewStateMachine()

	cases := []struct {
		name string
		from gatekeeper.ApprovalState
		to   gatekeeper.ApprovalState
		ok   bool
	}{
		{"pending to approved", gatekeeper.ApprovalPending, gatekeeper.ApprovalApproved, true},
		{"pending to removed", gatekeeper.ApprovalPending, gatekeeper.ApprovalRemoved, true},
		{"approved to removed", gatekeeper.ApprovalApproved, gatekeeper.ApprovalRemoved, false},
		{"approved to pending", gatekeeper.ApprovalApproved, gatekeeper.ApprovalPending, false},
		{"removed to approved", gatekeeper.ApprovalRemoved, gatekeeper.ApprovalApproved, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, machine.CanTransition(tc.from, tc.to))
		})
	}
}

func TestStateMachine_Transition(t *testing.T) {
	t.Run("records an approval event", func(t *testing.T) {
		var captured gatekeeper.ActivityEvent
		sink := gatekeeper.ActivitySinkFunc(func(_ context.Context, event gatekeeper.ActivityEvent) error {
			captured = event
			return nil
		})

		now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
		machine := gatekeeper.NewStateMachine(
			gatekeeper.WithMachineActivitySink(sink),
			gatekeeper.WithMachineClock(func() time.Time { return now }),
		)

		adminID := uuid.New()
		accountID := uuid.New()

		err := machine.Transition(context.Background(),
			gatekeeper.AdminActor(adminID), accountID,
			gatekeeper.ApprovalPending, gatekeeper.ApprovalApproved,
			gatekeeper.WithTransitionReason("looks good"),
		)

		assert.NoError(t, err)
		assert.Equal(t, gatekeeper.ActivityAccountApproved, captured.EventType)
		assert.Equal(t, adminID, captured.Actor.ID)
		assert.Equal(t, accountID, captured.AccountID)
		assert.Equal(t, gatekeeper.ApprovalPending, captured.From)
		assert.Equal(t, gatekeeper.ApprovalApproved, captured.To)
		assert.Equal(t, "looks good", captured.Reason)
		assert.Equal(t, now, captured.OccurredAt)
	})

	t.Run("records a rejection event", func(t *testing.T) {
		var captured gatekeeper.ActivityEvent
		sink := gatekeeper.ActivitySinkFunc(func(_ context.Context, event gatekeeper.ActivityEvent) error {
			captured = event
			return nil
		})

		machine := gatekeeper.NewStateMachine(gatekeeper.WithMachineActivitySink(sink))

		err := machine.Transition(context.Background(),
			gatekeeper.AdminActor(uuid.New()), uuid.New(),
			gatekeeper.ApprovalPending, gatekeeper.ApprovalRemoved,
		)

		assert.NoError(t, err)
		assert.Equal(t, gatekeeper.ActivityAccountRejected, captured.EventType)
	})

	t.Run("rejects an illegal transition with metadata", func(t *testing.T) {
		machine := gatekeeper.NewStateMachine()

		err := machine.Transition(context.Background(),
			gatekeeper.SystemActor(), uuid.New(),
			gatekeeper.ApprovalApproved, gatekeeper.ApprovalPending,
		)

		assert.Error(t, err)
		assert.ErrorIs(t, err, gatekeeper.ErrInvalidTransition)

		var richErr *errors.Error
		assert.True(t, errors.As(err, &richErr))
		assert.Equal(t, gatekeeper.TextCodeInvalidTransition, richErr.TextCode)
		assert.Equal(t, "approved", richErr.Metadata["from"])
		assert.Equal(t, "pending", richErr.Metadata["to"])
	})

	t.Run("sink failure does not fail the transition", func(t *testing.T) {
		sink := gatekeeper.ActivitySinkFunc(func(context.Context, gatekeeper.ActivityEvent) error {
			return errors.New("sink offline", errors.CategoryOperation)
		})

		machine := gatekeeper.NewStateMachine(gatekeeper.WithMachineActivitySink(sink))

		err := machine.Transition(context.Background(),
			gatekeeper.SystemActor(), uuid.New(),
			gatekeeper.ApprovalPending, gatekeeper.ApprovalApproved,
		)

		assert.NoError(t, err)
	})
}
