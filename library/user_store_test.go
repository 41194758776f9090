package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSearchMatchesNameOrEmail(t *testing.T) {
	users, err := NewUserStore(tempCSV(t))
	require.NoError(t, err)
	for _, u := range []User{
		{Name: "Ada Lovelace", Email: "ada@example.com"},
		{Name: "Bob", Email: "bob@lovelace.org"},
		{Name: "Cy", Email: "cy@example.com"},
	} {
		_, err := users.Add(u)
		require.NoError(t, err)
	}

	got := users.Search("LOVELACE")
	require.Len(t, got, 2)
	assert.Equal(t, "Ada Lovelace", got[0].Name)
	assert.Equal(t, "Bob", got[1].Name)

	assert.Empty(t, users.Search("zed"))
}

func TestUserFindByEmail(t *testing.T) {
	users, err := NewUserStore(tempCSV(t))
	require.NoError(t, err)
	added, err := users.Add(User{Name: "Ada", Email: "Ada@Example.com"})
	require.NoError(t, err)

	got, ok := users.FindByEmail(" ada@example.COM ")
	require.True(t, ok)
	assert.Equal(t, added, got)
}

func TestUserUpdateAndDelete(t *testing.T) {
	eachBackend(t, func(t *testing.T, backend Backend) {
		users, err := NewUserStore(backend)
		require.NoError(t, err)
		ada, err := users.Add(User{Name: "Ada", Email: "ada@example.com"})
		require.NoError(t, err)

		ada.Name = "Ada L."
		require.NoError(t, users.Update(ada))
		require.ErrorIs(t, users.Update(User{ID: 42}), ErrUserNotFound)

		reloaded, err := NewUserStore(backend)
		require.NoError(t, err)
		got, ok := reloaded.FindByID(ada.ID)
		require.True(t, ok)
		assert.Equal(t, "Ada L.", got.Name)

		require.NoError(t, users.Delete(ada.ID))
		require.ErrorIs(t, users.Delete(ada.ID), ErrUserNotFound)
		assert.Empty(t, users.List())
	})
}
