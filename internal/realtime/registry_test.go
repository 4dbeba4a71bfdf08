package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codepair/collab/internal/domain"
)

func testUser(id, name string) *domain.User {
	return &domain.User{ID: domain.UserID(id), Name: name, Email: name + "@example.com"}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	u := testUser("u1", "alice")

	require.NoError(t, r.Register(NewConnection("c1", u, &fakeSender{})))
	require.ErrorIs(t, r.Register(NewConnection("c1", u, &fakeSender{})), ErrDuplicateConnection)

	got, ok := r.Get("c1")
	require.True(t, ok)
	require.Equal(t, u.ID, got.User.ID)
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	u := testUser("u1", "alice")
	require.NoError(t, r.Register(NewConnection("c1", u, &fakeSender{})))

	r.Unregister("c1")
	r.Unregister("c1") // no-op
	r.Unregister("never-existed")

	_, ok := r.Get("c1")
	require.False(t, ok)
	require.Zero(t, r.Len())
}

func TestRegistryMultiTab(t *testing.T) {
	r := NewRegistry()
	u := testUser("u1", "alice")
	require.NoError(t, r.Register(NewConnection("c1", u, &fakeSender{})))
	require.NoError(t, r.Register(NewConnection("c2", u, &fakeSender{})))

	require.Len(t, r.ConnectionsFor(u.ID), 2)
	require.True(t, r.HasOther(u.ID, "c1"))
	require.True(t, r.HasOther(u.ID, "c2"))

	r.Unregister("c2")
	require.False(t, r.HasOther(u.ID, "c1"))

	r.Unregister("c1")
	require.False(t, r.HasOther(u.ID, "c1"))
	require.Empty(t, r.ConnectionsFor(u.ID))
}
