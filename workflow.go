package gatekeeper

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// MsgRegistrationPending is returned when a user account is created and
	// parked for admin review.
	MsgRegistrationPending = "Registration successful. Awaiting admin approval."
	// MsgRegistrationAdmin is returned for the bootstrap admin, who is
	// approved immediately.
	MsgRegistrationAdmin = "Admin registered successfully"
	MsgLoginSuccessful   = "Login successful"
	MsgAccountApproved   = "User approved successfully"
	MsgAccountRejected   = "User rejected and removed"
	MsgProfileUpdated    = "Profile updated successfully"

	// DefaultApprovalReason is recorded when the approver gives none.
	DefaultApprovalReason = "Approved by admin"
	// DefaultRejectReason is echoed back when the rejecter gives none.
	DefaultRejectReason = "No reason provided"
)

// Workflow drives the account lifecycle: registration, login, approval,
// rejection, and profile reads and updates. It owns no transport concerns;
// the HTTP controller translates payloads in and envelopes out.
type Workflow struct {
	accounts Accounts
	tokens   TokenService
	machine  *StateMachine
	logger   Logger
	sink     ActivitySink
	now      func() time.Time
}

type WorkflowOption func(*Workflow)

func WithWorkflowLogger(logger Logger) WorkflowOption {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithWorkflowActivitySink(sink ActivitySink) WorkflowOption {
	return func(w *Workflow) {
		w.sink = normalizeActivitySink(sink)
	}
}

func WithWorkflowClock(now func() time.Time) WorkflowOption {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

func WithWorkflowStateMachine(machine *StateMachine) WorkflowOption {
	return func(w *Workflow) {
		if machine != nil {
			w.machine = machine
		}
	}
}

func NewWorkflow(accounts Accounts, tokens TokenService, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		accounts: accounts,
		tokens:   tokens,
		logger:   defLogger{},
		sink:     noopActivitySink{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if w.machine == nil {
		w.machine = NewStateMachine(
			WithMachineActivitySink(w.sink),
			WithMachineLogger(w.logger),
			WithMachineClock(w.now),
		)
	}
	return w
}

// RegistrationResult is what Register hands back to the transport layer.
// A token is issued regardless of approval state; possession alone grants
// nothing, the guard and login enforce approval separately.
type RegistrationResult struct {
	Account *Account `json:"user"`
	Token   string   `json:"token"`
	Message string   `json:"message"`
}

// LoginResult carries the issued token plus the authenticated account.
type LoginResult struct {
	Account *Account `json:"user"`
	Token   string   `json:"token"`
	Message string   `json:"message"`
}

// Register validates the message, hashes the credential, resolves the role
// variant, and creates the account. Admin registrations also get a session
// token since they are approved on the spot.
func (w *Workflow) Register(ctx context.Context, msg RegisterMessage) (*RegistrationResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(msg.Password)
	if err != nil {
		return nil, err
	}

	reg, err := resolveRegistration(msg, hash)
	if err != nil {
		return nil, err
	}

	if err := reg.prepare(ctx, w.accounts); err != nil {
		return nil, err
	}

	record, err := w.accounts.Create(ctx, reg.account())
	if err != nil {
		return nil, err
	}

	w.record(ctx, ActivityEvent{
		EventType:  ActivityAccountRegistered,
		Actor:      ActorRef{ID: record.ID, Kind: string(record.Role)},
		AccountID:  record.ID,
		To:         record.ApprovalState,
		OccurredAt: w.now(),
	})

	token, err := w.tokens.Issue(record.Identity())
	if err != nil {
		return nil, err
	}

	message := MsgRegistrationPending
	if record.IsAdmin() {
		message = MsgRegistrationAdmin
	}

	return &RegistrationResult{
		Account: record,
		Token:   token,
		Message: message,
	}, nil
}

// Login authenticates by username and password. Lookup misses and digest
// mismatches collapse into the same ErrInvalidCredentials so callers cannot
// probe which usernames exist.
func (w *Workflow) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	record, err := w.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.IsNotFound(err) {
			w.recordLoginFailure(ctx, uuid.Nil, "unknown username")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := ComparePasswordAndHash(password, record.PasswordHash); err != nil {
		w.recordLoginFailure(ctx, record.ID, "bad password")
		return nil, err
	}

	if !record.IsAdmin() && !record.IsApproved() {
		w.recordLoginFailure(ctx, record.ID, "pending approval")
		return nil, ErrPendingApproval
	}

	token, err := w.tokens.Issue(record.Identity())
	if err != nil {
		return nil, err
	}

	w.record(ctx, ActivityEvent{
		EventType:  ActivityLoginSucceeded,
		Actor:      ActorRef{ID: record.ID, Kind: string(record.Role)},
		AccountID:  record.ID,
		OccurredAt: w.now(),
	})

	return &LoginResult{
		Account: record,
		Token:   token,
		Message: MsgLoginSuccessful,
	}, nil
}

// Profile loads the caller's own account, resolving the approver summary
// when the account was approved by an admin.
func (w *Workflow) Profile(ctx context.Context, accountID uuid.UUID) (*Account, error) {
	record, err := w.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if record.ApprovedBy != nil {
		approver, err := w.accounts.GetByID(ctx, *record.ApprovedBy)
		if err == nil {
			record.Approver = &ApproverSummary{
				ID:       approver.ID,
				Username: approver.Username,
				Email:    approver.Email,
			}
		} else if !errors.IsNotFound(err) {
			return nil, err
		}
	}

	return record, nil
}

// ProfileUpdate is the shallow merge payload for self service updates.
// Nil fields leave the stored value untouched.
type ProfileUpdate struct {
	LanguagePreference *LanguagePreferencePatch `json:"languagePreference,omitempty"`
	Services           *ServicesPatch           `json:"services,omitempty"`
}

func (u ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.LanguagePreference),
	)
}

// UpdateSelf applies a shallow merge of preferences onto the caller's
// account and persists the result.
func (w *Workflow) UpdateSelf(ctx context.Context, accountID uuid.UUID, update ProfileUpdate) (*Account, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	record, err := w.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	record.ApplyLanguagePreference(update.LanguagePreference)
	record.ApplyServices(update.Services)

	updated, err := w.accounts.Update(ctx, record)
	if err != nil {
		return nil, err
	}

	w.record(ctx, ActivityEvent{
		EventType:  ActivityAccountUpdated,
		Actor:      ActorRef{ID: accountID, Kind: string(record.Role)},
		AccountID:  accountID,
		OccurredAt: w.now(),
	})

	return updated, nil
}

// PendingApprovals lists user accounts awaiting review. Admin only.
func (w *Workflow) PendingApprovals(ctx context.Context, actor AuthClaims) ([]*Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return w.accounts.ListPending(ctx)
}

// Approve moves a pending account to approved, recording who approved it
// and why. Approving a non pending account fails.
func (w *Workflow) Approve(ctx context.Context, actor AuthClaims, targetID uuid.UUID, reason string) (*Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	record, err := w.accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if record.IsApproved() {
		return nil, ErrAlreadyApproved
	}

	if reason == "" {
		reason = DefaultApprovalReason
	}

	from := record.ApprovalState
	if err := w.machine.Guard(from, ApprovalApproved); err != nil {
		return nil, err
	}

	actorID, _ := uuid.Parse(actor.Subject())
	record.ApprovalState = ApprovalApproved
	record.ApprovedBy = &actorID
	record.ApprovalReason = reason

	updated, err := w.accounts.Update(ctx, record)
	if err != nil {
		return nil, err
	}

	if err := w.machine.Transition(ctx, AdminActor(actorID), updated.ID,
		from, ApprovalApproved,
		WithTransitionReason(reason),
	); err != nil {
		return nil, err
	}

	return updated, nil
}

// Reject removes a pending account entirely. Approved accounts cannot be
// rejected; they are already out of the review queue.
func (w *Workflow) Reject(ctx context.Context, actor AuthClaims, targetID uuid.UUID, reason string) (string, error) {
	if err := requireAdmin(actor); err != nil {
		return "", err
	}

	record, err := w.accounts.GetByID(ctx, targetID)
	if err != nil {
		return "", err
	}

	if record.IsApproved() {
		return "", ErrAlreadyApproved
	}

	if reason == "" {
		reason = DefaultRejectReason
	}

	from := record.ApprovalState
	if err := w.machine.Guard(from, ApprovalRemoved); err != nil {
		return "", err
	}

	if err := w.accounts.Delete(ctx, targetID); err != nil {
		return "", err
	}

	actorID, _ := uuid.Parse(actor.Subject())
	if err := w.machine.Transition(ctx, AdminActor(actorID), record.ID,
		from, ApprovalRemoved,
		WithTransitionReason(reason),
	); err != nil {
		return "", err
	}

	return reason, nil
}

func requireAdmin(actor AuthClaims) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (w *Workflow) record(ctx context.Context, event ActivityEvent) {
	if err := w.sink.Record(ctx, event); err != nil {
		w.logger.Warn("activity sink rejected event type=%s account=%s: %v", event.EventType, event.AccountID, err)
	}
}

func (w *Workflow) recordLoginFailure(ctx context.Context, accountID uuid.UUID, why string) {
	w.record(ctx, ActivityEvent{
		EventType: ActivityLoginFailed,
		AccountID: accountID,
		Metadata: map[string]any{
			"reason": why,
		},
		OccurredAt: w.now(),
	})
}
