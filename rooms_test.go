package main

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFirstAvailable(t *testing.T) {
	reg := newRegistry(2)

	rm1, size, err := reg.Add(uuid.New(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, rm1.id)
	assert.Equal(t, 1, size)

	rm2, size, err := reg.Add(uuid.New(), "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, rm2.id)
	assert.Equal(t, 2, size)

	// Room 1 is full, so the next client opens room 2.
	rm3, size, err := reg.Add(uuid.New(), "carol")
	require.NoError(t, err)
	assert.Equal(t, 2, rm3.id)
	assert.Equal(t, 1, size)
}

func TestRegistryBackfillsFreedSlot(t *testing.T) {
	reg := newRegistry(2)

	a := uuid.New()
	reg.Add(a, "alice")
	reg.Add(uuid.New(), "bob")
	reg.Add(uuid.New(), "carol") // opens room 2

	_, _, ok := reg.Remove(a)
	require.True(t, ok)

	// Room 1 has space again and wins over room 2.
	rm, size, err := reg.Add(uuid.New(), "dave")
	require.NoError(t, err)
	assert.Equal(t, 1, rm.id)
	assert.Equal(t, 2, size)
}

func TestRegistryCapacityNeverExceeded(t *testing.T) {
	const capacity = 4
	reg := newRegistry(capacity)

	for i := 0; i < 20; i++ {
		_, size, err := reg.Add(uuid.New(), fmt.Sprintf("u%d", i))
		require.NoError(t, err)
		assert.LessOrEqual(t, size, capacity)
	}

	for roomID := 1; roomID <= 5; roomID++ {
		assert.Len(t, reg.MembersOf(roomID), capacity)
	}
}

func TestRegistryAddToFullRoom(t *testing.T) {
	reg := newRegistry(2)

	reg.Add(uuid.New(), "alice")
	reg.Add(uuid.New(), "bob")

	_, _, err := reg.AddTo(uuid.New(), "carol", 1)
	assert.ErrorIs(t, err, ErrRoomFull)

	// A failed admission never materializes a session.
	assert.Len(t, reg.MembersOf(1), 2)
}

func TestRegistryAddToCreatesRoom(t *testing.T) {
	reg := newRegistry(2)

	rm, size, err := reg.AddTo(uuid.New(), "alice", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, rm.id)
	assert.Equal(t, 1, size)

	// Later lazily-created rooms don't collide with it.
	for i := 0; i < 14; i++ {
		rm, _, err := reg.Add(uuid.New(), "x")
		require.NoError(t, err)
		assert.NotEqual(t, 0, rm.id)
	}
	assert.Len(t, reg.MembersOf(7), 2)
}

func TestRegistryRemoveDiscardsEmptyRoom(t *testing.T) {
	reg := newRegistry(2)

	a := uuid.New()
	reg.Add(a, "alice")

	sess, remaining, ok := reg.Remove(a)
	require.True(t, ok)
	assert.Equal(t, "alice", sess.UserName)
	assert.Equal(t, StateDisconnect, sess.State)
	assert.Empty(t, remaining)
	assert.Empty(t, reg.MembersOf(1))

	// Removing again is a no-op.
	_, _, ok = reg.Remove(a)
	assert.False(t, ok)
}

func TestRegistryNoSharedIdentityAfterChurn(t *testing.T) {
	reg := newRegistry(4)

	a := uuid.New()
	reg.Add(a, "alice")
	reg.Add(uuid.New(), "bob")

	reg.Remove(a)

	b := uuid.New()
	reg.Add(b, "carol")

	members := reg.MembersOf(1)
	require.Len(t, members, 2)

	seen := make(map[ClientID]bool)
	for _, m := range members {
		assert.False(t, seen[m.ID], "no two sessions share a ClientID")
		seen[m.ID] = true
	}
	assert.True(t, seen[b])
	assert.False(t, seen[a])
}

func TestRegistryMembersOfUnknownRoom(t *testing.T) {
	reg := newRegistry(4)
	assert.Empty(t, reg.MembersOf(42))
}

func TestRegistryMembershipOrderIsJoinOrder(t *testing.T) {
	reg := newRegistry(4)

	names := []string{"alice", "bob", "carol", "dave"}
	for _, name := range names {
		reg.Add(uuid.New(), name)
	}

	members := reg.MembersOf(1)
	require.Len(t, members, 4)
	for i, m := range members {
		assert.Equal(t, names[i], m.Name)
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	const capacity = 4
	reg := newRegistry(capacity)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			id := uuid.New()
			_, size, err := reg.Add(id, fmt.Sprintf("u%d", i))
			assert.NoError(t, err)
			assert.LessOrEqual(t, size, capacity)

			if i%2 == 0 {
				reg.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for roomID := 1; roomID < 64; roomID++ {
		members := reg.MembersOf(roomID)
		assert.LessOrEqual(t, len(members), capacity)
		total += len(members)
	}
	assert.Equal(t, 16, total)
}
