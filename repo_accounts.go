package gatekeeper

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// singleAdminIndexSQL enforces the one-admin invariant at the store. Racing
// admin registrations both reach the insert; the index picks the winner and
// the loser surfaces as ErrAdminExists.
const singleAdminIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS accounts_single_admin_idx ON accounts (role) WHERE role = 'admin';`

type Accounts interface {
	Create(ctx context.Context, record *Account) (*Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	AdminExists(ctx context.Context) (bool, error)
	ListPending(ctx context.Context) ([]*Account, error)
	Update(ctx context.Context, record *Account) (*Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type accounts struct {
	db     *bun.DB
	logger Logger
}

var _ Accounts = (*accounts)(nil)

type AccountsOption func(*accounts)

func WithAccountsLogger(logger Logger) AccountsOption {
	return func(a *accounts) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := &accounts{
		db:     db,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

// CreateSchema creates the accounts table and the partial admin index. Meant
// for SQLite deployments and tests; production schemas should migrate out of
// band.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create accounts table")
	}

	if _, err := db.ExecContext(ctx, singleAdminIndexSQL); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create single admin index")
	}

	return nil
}

func (a *accounts) Create(ctx context.Context, record *Account) (*Account, error) {
	prepareAccountDefaults(record)

	if _, err := a.db.NewInsert().Model(record).Exec(ctx); err != nil {
		a.logger.Debug("account insert refused username=%s: %v", record.Username, err)
		return nil, mapConstraintError(err)
	}

	return record, nil
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound.WithMetadata(map[string]any{
				"id": id.String(),
			})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load account")
	}
	return record, nil
}

func (a *accounts) GetByUsername(ctx context.Context, username string) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("lower(?TableAlias.username) = lower(?)", strings.TrimSpace(username)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound.WithMetadata(map[string]any{
				"username": username,
			})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load account")
	}
	return record, nil
}

func (a *accounts) AdminExists(ctx context.Context) (bool, error) {
	count, err := a.db.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.role = ?", RoleAdmin).
		Count(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to count admin accounts")
	}
	return count > 0, nil
}

func (a *accounts) ListPending(ctx context.Context) ([]*Account, error) {
	records := []*Account{}
	err := a.db.NewSelect().
		Model(&records).
		ExcludeColumn("password_hash").
		Where("?TableAlias.approval_state = ?", ApprovalPending).
		Where("?TableAlias.role = ?", RoleUser).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list pending accounts")
	}
	return records, nil
}

func (a *accounts) Update(ctx context.Context, record *Account) (*Account, error) {
	if record == nil || record.ID == uuid.Nil {
		return nil, ErrAccountNotFound
	}

	now := time.Now()
	record.UpdatedAt = &now

	res, err := a.db.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, mapConstraintError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update account")
	}
	if affected == 0 {
		return nil, ErrAccountNotFound.WithMetadata(map[string]any{
			"id": record.ID.String(),
		})
	}

	return record, nil
}

func (a *accounts) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*Account)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete account")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete account")
	}
	if affected == 0 {
		return ErrAccountNotFound.WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	return nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.Username = strings.ToLower(strings.TrimSpace(record.Username))
	record.Email = strings.ToLower(strings.TrimSpace(record.Email))

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.EnsureDefaults()
}

// mapConstraintError translates driver level uniqueness failures into the
// domain sentinels. The single admin index failure takes priority since its
// message also mentions the role column.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "constraint failed") {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist account")
	}

	if strings.Contains(msg, "accounts_single_admin_idx") || strings.Contains(msg, "accounts.role") {
		return errors.Wrap(err, ErrAdminExists.Category, ErrAdminExists.Message).
			WithTextCode(ErrAdminExists.TextCode).
			WithCode(errors.CodeForbidden)
	}

	return errors.Wrap(err, ErrDuplicateIdentity.Category, ErrDuplicateIdentity.Message).
		WithTextCode(ErrDuplicateIdentity.TextCode).
		WithCode(errors.CodeBadRequest)
}
