package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PasswordLifecycle(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))

	_, err := s.Password("imap.example.com", "me")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetPassword("imap.example.com", "me", "hunter2"))
	pw, err := s.Password("imap.example.com", "me")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	_, err = s.Password("other.example.com", "me")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeletePassword("imap.example.com", "me"))
	_, err = s.Password("imap.example.com", "me")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "imap:me@imap.example.com", Key("imap.example.com", "me"))
}
