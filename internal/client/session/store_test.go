package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_LoadEmpty(t *testing.T) {
	s := openTemp(t)

	sess, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestStore_SaveLoadClear(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &Session{UserID: "u1", UserName: "alice"}))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Session{UserID: "u1", UserName: "alice"}, got)

	require.NoError(t, s.Save(ctx, &Session{UserID: "u1", UserName: "alice", IdentityVerified: true, Token: "tkn"}))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.IdentityVerified)
	assert.Equal(t, "tkn", got.Token)

	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_SaveRejectsAnonymous(t *testing.T) {
	s := openTemp(t)
	require.Error(t, s.Save(context.Background(), &Session{}))
	require.Error(t, s.Save(context.Background(), nil))
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, &Session{UserID: "u9", UserName: "zed"}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u9", got.UserID)
}
