package gatekeeper

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the account's role
type Role = string

const (
	// RoleUser is a regular account, gated behind admin approval
	RoleUser Role = "user"
	// RoleAdmin is the single administrator account
	RoleAdmin Role = "admin"
)

// ApprovalState tracks whether an account may authenticate
type ApprovalState = string

const (
	// ApprovalPending is the state new user accounts register into
	ApprovalPending ApprovalState = "pending"
	// ApprovalApproved means the account is usable; terminal for this subsystem
	ApprovalApproved ApprovalState = "approved"
	// ApprovalRemoved marks a rejected account; the record is deleted, the
	// state exists only so rejections flow through the transitions table
	ApprovalRemoved ApprovalState = "removed"
)

// Language is a conversational language tag
type Language = string

const (
	LanguageEnglish  Language = "English"
	LanguageHindi    Language = "Hindi"
	LanguageRegional Language = "Regional"
)

// IsValidLanguage checks the tag against the supported set
func IsValidLanguage(l Language) bool {
	switch l {
	case LanguageEnglish, LanguageHindi, LanguageRegional:
		return true
	default:
		return false
	}
}

// LanguagePreference holds the language for each conversational role
type LanguagePreference struct {
	UserA Language `json:"userA"`
	UserB Language `json:"userB"`
}

// DefaultLanguagePreference is English on both ends
func DefaultLanguagePreference() LanguagePreference {
	return LanguagePreference{UserA: LanguageEnglish, UserB: LanguageEnglish}
}

// CustomService is a caller-defined accessibility entry
type CustomService struct {
	ServiceID   string `json:"serviceId"`
	ServiceName string `json:"serviceName"`
	Enabled     bool   `json:"enabled"`
}

// Services holds accessibility/feature flags plus custom entries
type Services struct {
	NoiseCancelledAudio bool            `json:"noiseCancelledAudio"`
	AudioTranscript     bool            `json:"audioTranscript"`
	VisualAssistance    bool            `json:"visualAssistance"`
	MobilitySupport     bool            `json:"mobilitySupport"`
	CustomServices      []CustomService `json:"customServices,omitempty"`
}

// ApproverSummary is the projection of the approving admin attached to
// profile responses. Never persisted.
type ApproverSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// Account is the persisted identity record. The password digest is excluded
// from every JSON projection.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID                 uuid.UUID          `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username           string             `bun:"username,notnull,unique" json:"username,omitempty"`
	Email              string             `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone              string             `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash       string             `bun:"password_hash,notnull" json:"-"`
	Role               Role               `bun:"role,notnull" json:"role,omitempty"`
	ApprovalState      ApprovalState      `bun:"approval_state,notnull" json:"approval_state,omitempty"`
	ApprovedBy         *uuid.UUID         `bun:"approved_by,nullzero,type:uuid" json:"approved_by,omitempty"`
	ApprovalReason     string             `bun:"approval_reason" json:"approval_reason,omitempty"`
	LanguagePreference LanguagePreference `bun:"language_preference" json:"language_preference"`
	Services           Services           `bun:"services" json:"services"`
	CreatedAt          *time.Time         `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time         `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`

	Approver *ApproverSummary `bun:"-" json:"approved_by_user,omitempty"`
}

// EnsureDefaults backfills the fields the store requires before insert
func (a *Account) EnsureDefaults() {
	if a.Role == "" {
		a.Role = RoleUser
	}
	if a.ApprovalState == "" {
		a.ApprovalState = ApprovalPending
	}
	if a.LanguagePreference.UserA == "" {
		a.LanguagePreference.UserA = LanguageEnglish
	}
	if a.LanguagePreference.UserB == "" {
		a.LanguagePreference.UserB = LanguageEnglish
	}
}

// IsApproved reports whether the account may authenticate
func (a *Account) IsApproved() bool {
	return a.ApprovalState == ApprovalApproved
}

// IsAdmin reports whether the account holds the admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Identity adapts the account to the Identity contract consumed by the
// token service
func (a *Account) Identity() Identity {
	return accountIdentity{
		id:       a.ID.String(),
		username: a.Username,
		email:    a.Email,
		role:     a.Role,
	}
}

type accountIdentity struct {
	id       string
	username string
	email    string
	role     string
}

func (a accountIdentity) ID() string       { return a.id }
func (a accountIdentity) Username() string { return a.username }
func (a accountIdentity) Email() string    { return a.email }
func (a accountIdentity) Role() string     { return a.role }

var _ Identity = accountIdentity{}

// LanguagePreferencePatch carries the provided subset of preference fields.
// Nil members keep their prior values.
type LanguagePreferencePatch struct {
	UserA *Language `json:"userA,omitempty"`
	UserB *Language `json:"userB,omitempty"`
}

// ServicesPatch carries the provided subset of service fields. Nil members
// keep their prior values; a provided CustomServices replaces the sequence.
type ServicesPatch struct {
	NoiseCancelledAudio *bool            `json:"noiseCancelledAudio,omitempty"`
	AudioTranscript     *bool            `json:"audioTranscript,omitempty"`
	VisualAssistance    *bool            `json:"visualAssistance,omitempty"`
	MobilitySupport     *bool            `json:"mobilitySupport,omitempty"`
	CustomServices      *[]CustomService `json:"customServices,omitempty"`
}

// ApplyLanguagePreference merges the patch field by field
func (a *Account) ApplyLanguagePreference(patch *LanguagePreferencePatch) {
	if patch == nil {
		return
	}
	if patch.UserA != nil {
		a.LanguagePreference.UserA = *patch.UserA
	}
	if patch.UserB != nil {
		a.LanguagePreference.UserB = *patch.UserB
	}
}

// ApplyServices merges the patch field by field
func (a *Account) ApplyServices(patch *ServicesPatch) {
	if patch == nil {
		return
	}
	if patch.NoiseCancelledAudio != nil {
		a.Services.NoiseCancelledAudio = *patch.NoiseCancelledAudio
	}
	if patch.AudioTranscript != nil {
		a.Services.AudioTranscript = *patch.AudioTranscript
	}
	if patch.VisualAssistance != nil {
		a.Services.VisualAssistance = *patch.VisualAssistance
	}
	if patch.MobilitySupport != nil {
		a.Services.MobilitySupport = *patch.MobilitySupport
	}
	if patch.CustomServices != nil {
		a.Services.CustomServices = append([]CustomService(nil), (*patch.CustomServices)...)
	}
}
