package gatekeeper

import "github.com/goliatone/go-errors"

const (
	TextCodeDuplicateIdentity  = "duplicate_identity"
	TextCodeAdminExists        = "admin_exists"
	TextCodeInvalidCredentials = "invalid_credentials"
	TextCodePendingApproval    = "pending_approval"
	TextCodeForbidden          = "forbidden"
	TextCodeUnauthenticated    = "unauthenticated"
	TextCodeTokenExpired       = "token_expired"
	TextCodeTokenMalformed     = "token_malformed"
	TextCodeAccountNotFound    = "account_not_found"
	TextCodeAlreadyApproved    = "already_approved"
	TextCodeEmptyPassword      = "empty_password"
	TextCodeMalformedDigest    = "malformed_digest"
	TextCodeInvalidTransition  = "invalid_approval_transition"
)

// ErrDuplicateIdentity is returned when the username or email is taken.
// The boundary reports it as a 400 the way the legacy API did, not a 409.
var ErrDuplicateIdentity = errors.New("username or email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(errors.CodeBadRequest)

// ErrAdminExists is returned when a second admin registration is attempted.
var ErrAdminExists = errors.New("admin already exists, contact existing admin for approval", errors.CategoryAuthz).
	WithTextCode(TextCodeAdminExists).
	WithCode(errors.CodeForbidden)

// ErrInvalidCredentials covers both an unknown username and a failed password
// check so the response cannot be used to enumerate usernames.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrPendingApproval is returned when an unapproved user attempts to log in.
var ErrPendingApproval = errors.New("account is pending admin approval", errors.CategoryAuthz).
	WithTextCode(TextCodePendingApproval).
	WithCode(errors.CodeForbidden)

// ErrForbidden is returned when the actor's role is insufficient.
var ErrForbidden = errors.New("admin access required", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrUnauthenticated is returned when no usable bearer token is present.
var ErrUnauthenticated = errors.New("missing or malformed bearer token", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail to parse or verify.
var ErrTokenMalformed = errors.New("token is malformed or has a bad signature", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotFound is returned when a lookup by id misses.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrAlreadyApproved is returned when approving an approved account, or when
// rejecting one (approved accounts are never destroyed by this subsystem).
var ErrAlreadyApproved = errors.New("account is already approved", errors.CategoryConflict).
	WithTextCode(TextCodeAlreadyApproved).
	WithCode(errors.CodeBadRequest)

// ErrEmptyPassword is returned when hashing an empty credential.
var ErrEmptyPassword = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMalformedDigest is returned when a stored password digest cannot be
// parsed. A mismatch is never reported through this error.
var ErrMalformedDigest = errors.New("stored password digest is malformed", errors.CategoryInternal).
	WithTextCode(TextCodeMalformedDigest).
	WithCode(errors.CodeInternal)

// ErrInvalidTransition is returned for approval state changes outside the
// transitions table.
var ErrInvalidTransition = errors.New("invalid approval state transition", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(errors.CodeBadRequest)
