package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/driveflow/internal/store"
)

func TestSessions_LoginLogout(t *testing.T) {
	t.Parallel()

	kv := newTestKV(t)
	s := NewSessions(kv, "Sales Manager", "")
	require.NoError(t, s.Load())

	_, ok := s.Current()
	assert.False(t, ok)

	op, err := s.Login(" ana@dealer.test ")
	require.NoError(t, err)
	assert.NotEmpty(t, op.ID)
	assert.Equal(t, "Sales Manager", op.Name)
	assert.Equal(t, "ana@dealer.test", op.Email)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, op, cur)

	restored := NewSessions(kv, "ignored", "")
	require.NoError(t, restored.Load())
	cur, ok = restored.Current()
	require.True(t, ok)
	assert.Equal(t, op, cur, "session survives a restart")

	require.NoError(t, s.Logout())
	_, ok = s.Current()
	assert.False(t, ok)
	_, err = kv.Get(store.KeySessionUser)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessions_LoginRejectsInvalidEmail(t *testing.T) {
	t.Parallel()

	s := NewSessions(newTestKV(t), "Sales Manager", "")
	for _, email := range []string{"", "not-an-email", "@@"} {
		_, err := s.Login(email)
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
	}
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestSessions_LoadIgnoresCorruptSession(t *testing.T) {
	t.Parallel()

	kv := newTestKV(t)
	require.NoError(t, kv.Put(store.KeySessionUser, []byte("{oops")))

	s := NewSessions(kv, "Sales Manager", "")
	require.NoError(t, s.Load())
	_, ok := s.Current()
	assert.False(t, ok)
}
