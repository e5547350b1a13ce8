package gatekeeper

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

const (
	// MinPasswordLength matches the policy documented to end users.
	MinPasswordLength = 6

	defaultPhoneRegion = "IN"
)

// RegisterMessage carries the raw registration payload. Validate covers
// shape; the role specific checks (admin slot, uniqueness) happen inside the
// workflow against the store.
type RegisterMessage struct {
	Username           string                   `json:"username"`
	Email              string                   `json:"email"`
	Password           string                   `json:"password"`
	ConfirmPassword    string                   `json:"confirmPassword"`
	Role               string                   `json:"role"`
	Phone              string                   `json:"phone,omitempty"`
	LanguagePreference *LanguagePreferencePatch `json:"languagePreference,omitempty"`
	Services           *ServicesPatch           `json:"services,omitempty"`
}

func (m RegisterMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Username, validation.Required),
		validation.Field(&m.Email, validation.Required),
		validation.Field(&m.Password, validation.Required, validation.Length(MinPasswordLength, 0)),
		validation.Field(&m.ConfirmPassword, validation.Required, validation.By(ValidateStringEquals(m.Password, "passwords do not match"))),
		validation.Field(&m.Role, validation.In(roleValues()...)),
		validation.Field(&m.Phone, validation.By(validatePhoneOptional)),
		validation.Field(&m.LanguagePreference),
	)
}

// Validate rejects language tags outside the supported set. Absent fields
// keep the stored value and pass untouched.
func (p *LanguagePreferencePatch) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.UserA, validation.By(validateLanguageTag)),
		validation.Field(&p.UserB, validation.By(validateLanguageTag)),
	)
}

func validateLanguageTag(value any) error {
	tag, _ := value.(*Language)
	if tag == nil {
		return nil
	}
	if !IsValidLanguage(*tag) {
		return errors.New("must be a supported language", errors.CategoryValidation)
	}
	return nil
}

func roleValues() []any {
	roles := AllRoles()
	values := make([]any, len(roles))
	for i, role := range roles {
		values[i] = string(role)
	}
	return values
}

// ValidateStringEquals returns an ozzo rule asserting the value equals other.
func ValidateStringEquals(other, msg string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != other {
			return errors.New(msg, errors.CategoryValidation)
		}
		return nil
	}
}

func validatePhoneOptional(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := phonenumbers.Parse(s, defaultPhoneRegion); err != nil {
		return errors.New("invalid phone number", errors.CategoryValidation)
	}
	return nil
}

// registration is the role resolved variant of a register request. Resolving
// once at entry keeps the role specific branching out of the shared flow.
type registration interface {
	account() *Account
	// prepare runs the role specific preconditions before the insert.
	prepare(ctx context.Context, accounts Accounts) error
}

type userRegistration struct {
	record *Account
}

func (r userRegistration) account() *Account { return r.record }

func (r userRegistration) prepare(context.Context, Accounts) error { return nil }

type adminRegistration struct {
	record *Account
}

func (r adminRegistration) account() *Account { return r.record }

// prepare is a fast path check; the partial unique index remains the
// authority when two admin registrations race.
func (r adminRegistration) prepare(ctx context.Context, accounts Accounts) error {
	exists, err := accounts.AdminExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return ErrAdminExists
	}
	return nil
}

// resolveRegistration builds the account record from the message and tags it
// with its role variant. Admin accounts are born approved; user accounts wait
// for an admin.
func resolveRegistration(msg RegisterMessage, passwordHash string) (registration, error) {
	role, ok := ParseRole(msg.Role)
	if !ok {
		return nil, errors.New("invalid role", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	record := &Account{
		Username:     strings.ToLower(strings.TrimSpace(msg.Username)),
		Email:        strings.ToLower(strings.TrimSpace(msg.Email)),
		PasswordHash: passwordHash,
		Role:         role,
	}

	if phone := strings.TrimSpace(msg.Phone); phone != "" {
		parsed, err := phonenumbers.Parse(phone, defaultPhoneRegion)
		if err != nil {
			return nil, errors.New("invalid phone number", errors.CategoryValidation).
				WithCode(errors.CodeBadRequest)
		}
		record.Phone = phonenumbers.Format(parsed, phonenumbers.E164)
	}

	record.EnsureDefaults()
	record.ApplyLanguagePreference(msg.LanguagePreference)
	record.ApplyServices(msg.Services)

	switch role {
	case RoleAdmin:
		record.ApprovalState = ApprovalApproved
		return adminRegistration{record: record}, nil
	default:
		record.ApprovalState = ApprovalPending
		return userRegistration{record: record}, nil
	}
}
