package gatekeeper_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/sahayak-app/gatekeeper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupAccountsRepo(t *testing.T) (context.Context, gatekeeper.Accounts) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	require.NoError(t, gatekeeper.CreateSchema(ctx, db))

	return ctx, gatekeeper.NewAccountsRepository(db)
}

func seedAccount(username, email string, role gatekeeper.Role) *gatekeeper.Account {
	account := &gatekeeper.Account{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$10$notarealdigestnotarealdigestnota",
		Role:         role,
	}
	if role == gatekeeper.RoleAdmin {
		account.ApprovalState = gatekeeper.ApprovalApproved
	}
	return account
}

func TestAccountsRepository_Create(t *testing.T) {
	t.Run("fills defaults and normalizes identity", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		record, err := repo.Create(ctx, &gatekeeper.Account{
			Username:     "Alice",
			Email:        "Alice@Example.COM",
			PasswordHash: "digest",
		})

		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, record.ID)
		assert.Equal(t, "alice", record.Username)
		assert.Equal(t, "alice@example.com", record.Email)
		assert.Equal(t, gatekeeper.RoleUser, record.Role)
		assert.Equal(t, gatekeeper.ApprovalPending, record.ApprovalState)
	})

	t.Run("rejects duplicate username regardless of case", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		_, err := repo.Create(ctx, seedAccount("alice", "alice@example.com", gatekeeper.RoleUser))
		require.NoError(t, err)

		_, err = repo.Create(ctx, seedAccount("ALICE", "other@example.com", gatekeeper.RoleUser))

		assert.Error(t, err)

		var richErr *goerrors.Error
		assert.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, gatekeeper.TextCodeDuplicateIdentity, richErr.TextCode)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		_, err := repo.Create(ctx, seedAccount("alice", "alice@example.com", gatekeeper.RoleUser))
		require.NoError(t, err)

		_, err = repo.Create(ctx, seedAccount("bob", "alice@example.com", gatekeeper.RoleUser))

		assert.Error(t, err)
	})

	t.Run("only one admin row can ever exist", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		_, err := repo.Create(ctx, seedAccount("boss", "boss@example.com", gatekeeper.RoleAdmin))
		require.NoError(t, err)

		// bypassing any AdminExists fast path, the index still refuses
		_, err = repo.Create(ctx, seedAccount("usurper", "usurper@example.com", gatekeeper.RoleAdmin))

		assert.Error(t, err)

		var richErr *goerrors.Error
		assert.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, gatekeeper.TextCodeAdminExists, richErr.TextCode)
	})
}

func TestAccountsRepository_Lookups(t *testing.T) {
	t.Run("finds by username case insensitively", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		created, err := repo.Create(ctx, seedAccount("alice", "alice@example.com", gatekeeper.RoleUser))
		require.NoError(t, err)

		record, err := repo.GetByUsername(ctx, "ALICE")

		assert.NoError(t, err)
		assert.Equal(t, created.ID, record.ID)
	})

	t.Run("unknown username reports not found", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		record, err := repo.GetByUsername(ctx, "ghost")

		assert.Nil(t, record)
		assert.True(t, goerrors.IsNotFound(err))
	})

	t.Run("unknown id reports not found", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		record, err := repo.GetByID(ctx, uuid.New())

		assert.Nil(t, record)
		assert.True(t, goerrors.IsNotFound(err))
	})

	t.Run("admin existence flips after bootstrap", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		exists, err := repo.AdminExists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = repo.Create(ctx, seedAccount("boss", "boss@example.com", gatekeeper.RoleAdmin))
		require.NoError(t, err)

		exists, err = repo.AdminExists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestAccountsRepository_ListPending(t *testing.T) {
	ctx, repo := setupAccountsRepo(t)

	_, err := repo.Create(ctx, seedAccount("boss", "boss@example.com", gatekeeper.RoleAdmin))
	require.NoError(t, err)

	alice, err := repo.Create(ctx, seedAccount("alice", "alice@example.com", gatekeeper.RoleUser))
	require.NoError(t, err)

	bob, err := repo.Create(ctx, seedAccount("bob", "bob@example.com", gatekeeper.RoleUser))
	require.NoError(t, err)

	bob.ApprovalState = gatekeeper.ApprovalApproved
	_, err = repo.Update(ctx, bob)
	require.NoError(t, err)

	records, err := repo.ListPending(ctx)

	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, alice.ID, records[0].ID)
	assert.Empty(t, records[0].PasswordHash)
}

func TestAccountsRepository_Update(t *testing.T) {
	t.Run("persists approval changes", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		adminID := uuid.New()
		record, err := repo.Create(ctx, seedAccount("alice", "alice@example.com", gatekeeper.RoleUser))
		require.NoError(t, err)

		record.ApprovalState = gatekeeper.ApprovalApproved
		record.ApprovedBy = &adminID
		record.ApprovalReason = "Approved by admin"

		_, err = repo.Update(ctx, record)
		require.NoError(t, err)

		loaded, err := repo.GetByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, gatekeeper.ApprovalApproved, loaded.ApprovalState)
		assert.NotNil(t, loaded.ApprovedBy)
		assert.Equal(t, adminID, *loaded.ApprovedBy)
	})

	t.Run("advances the updated timestamp", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		record, err := repo.Create(ctx, seedAccount("alice", "alice@example.com", gatekeeper.RoleUser))
		require.NoError(t, err)

		created, err := repo.GetByID(ctx, record.ID)
		require.NoError(t, err)
		require.NotNil(t, created.UpdatedAt)
		before := *created.UpdatedAt

		created.ApprovalReason = "Approved by admin"
		_, err = repo.Update(ctx, created)
		require.NoError(t, err)

		loaded, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded.UpdatedAt)
		assert.True(t, loaded.UpdatedAt.After(before))
	})

	t.Run("missing record reports not found", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		ghost := seedAccount("ghost", "ghost@example.com", gatekeeper.RoleUser)
		ghost.ID = uuid.New()

		_, err := repo.Update(ctx, ghost)

		assert.True(t, goerrors.IsNotFound(err))
	})
}

func TestAccountsRepository_Delete(t *testing.T) {
	t.Run("removes the record", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		record, err := repo.Create(ctx, seedAccount("alice", "alice@example.com", gatekeeper.RoleUser))
		require.NoError(t, err)

		assert.NoError(t, repo.Delete(ctx, record.ID))

		_, err = repo.GetByID(ctx, record.ID)
		assert.True(t, goerrors.IsNotFound(err))
	})

	t.Run("missing record reports not found", func(t *testing.T) {
		ctx, repo := setupAccountsRepo(t)

		err := repo.Delete(ctx, uuid.New())

		assert.True(t, goerrors.IsNotFound(err))
	})
}
