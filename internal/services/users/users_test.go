package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-wallet/internal/infra/pgtestutil"
	usersrepo "asset-wallet/internal/repos/users"
)

func TestCreate_NormalizesInput(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	svc := New(db)

	u, err := svc.Create(context.Background(), "  Alice  ", "  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestCreate_DuplicateEmailAfterNormalization(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	svc := New(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "alice again", "ALICE@example.com")
	require.ErrorIs(t, err, usersrepo.ErrEmailTaken)
}

func TestGetByEmail_CaseInsensitive(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	svc := New(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, "bob", "bob@example.com")
	require.NoError(t, err)

	found, err := svc.GetByEmail(ctx, "Bob@Example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"User@Host.COM", "user@host.com"},
		{"  padded@host.com ", "padded@host.com"},
		{"already@lower.com", "already@lower.com"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEmail(tt.in))
	}
}
