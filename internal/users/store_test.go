package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/dynamotest"
)

func newTestStore(t *testing.T) (*Store, *dynamotest.Fake, *time.Time) {
	t.Helper()
	fake := dynamotest.New().CreateTable("users", "user_id")
	s := NewStore(fake, "users")
	clock := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return clock }
	return s, fake, &clock
}

func TestUpsertStampsTimestamps(t *testing.T) {
	s, fake, clock := newTestStore(t)
	ctx := context.Background()

	first, created, err := s.Upsert(ctx, User{Email: "Ana@Example.com", Name: "Ana"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ana@example.com", first.Email)
	assert.True(t, first.CreatedAt.Equal(first.LastLoggedIn))
	assert.Equal(t, RoleCustomer, first.EffectiveRole())
	assert.Equal(t, StatusActive, first.Status)

	*clock = clock.Add(time.Hour)
	second, created, err := s.Upsert(ctx, User{Email: "ana@example.com", Name: "Changed", Role: RoleAdmin})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.UserID, second.UserID)
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt), "created_at is set once")
	assert.True(t, second.LastLoggedIn.After(first.LastLoggedIn))
	assert.Equal(t, "Ana", second.Name, "upsert of an existing user only touches last_loggedIn")
	assert.Equal(t, RoleCustomer, second.EffectiveRole(), "role cannot be self-assigned")
	assert.Equal(t, 1, fake.Len("users"))
}

func TestRoleAndSuspension(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	u, _, err := s.Upsert(ctx, User{Email: "m@example.com"})
	require.NoError(t, err)

	require.NoError(t, s.SetRole(ctx, u.UserID, RoleManager))
	got, err := s.GetByEmail(ctx, "M@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, RoleManager, got.EffectiveRole())

	require.NoError(t, s.SetRole(ctx, u.UserID, RoleCustomer))
	got, err = s.Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Role)

	require.ErrorIs(t, s.SetRole(ctx, u.UserID, "root"), apperr.ErrValidationFailed)
	require.ErrorIs(t, s.SetRole(ctx, "missing", RoleAdmin), apperr.ErrNotFound)

	require.ErrorIs(t, s.Suspend(ctx, u.UserID, "  "), apperr.ErrValidationFailed)
	require.NoError(t, s.Suspend(ctx, u.UserID, "chargeback abuse"))
	got, err = s.Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.True(t, got.Suspended())
	assert.Equal(t, "chargeback abuse", got.SuspendFeedback)

	require.NoError(t, s.Activate(ctx, u.UserID))
	got, err = s.Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.False(t, got.Suspended())
	assert.Empty(t, got.SuspendFeedback)

	require.ErrorIs(t, s.Suspend(ctx, "missing", "x"), apperr.ErrNotFound)
}

func TestList(t *testing.T) {
	s, _, clock := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.Upsert(ctx, User{Email: "b@example.com"})
	require.NoError(t, err)
	*clock = clock.Add(time.Minute)
	_, _, err = s.Upsert(ctx, User{Email: "a@example.com"})
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b@example.com", list[0].Email)
}

func TestIDForEmailIsStable(t *testing.T) {
	assert.Equal(t, IDForEmail("x@example.com"), IDForEmail(" X@Example.COM "))
	assert.NotEqual(t, IDForEmail("x@example.com"), IDForEmail("y@example.com"))
}
