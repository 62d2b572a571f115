package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aono31/jambox/internal/domain/event"
)

// counter is a minimal aggregate counting the peers it has seen.
type counter struct {
	Root
	peers []string
}

func (c *counter) ApplyEvent(ev event.JamEvent) error {
	added, ok := ev.(event.PlayerAdded)
	if !ok {
		return assert.AnError
	}
	c.peers = append(c.peers, added.PeerID)
	return nil
}

func added(peer string) event.JamEvent {
	return event.PlayerAdded{Stamp: event.NewStamp(), SessionID: "s1", PeerID: peer}
}

func TestRaise(t *testing.T) {
	c := &counter{Root: NewRoot("s1")}

	require.NoError(t, Raise(&c.Root, c, added("p1")))
	require.NoError(t, Raise(&c.Root, c, added("p2")))

	assert.Equal(t, "s1", c.ID())
	assert.Equal(t, 2, c.Version())
	assert.Equal(t, []string{"p1", "p2"}, c.peers)

	pending := c.Uncommitted()
	require.Len(t, pending, 2)
	assert.Equal(t, event.KindPlayerAdded, pending[0].EventKind())

	// Uncommitted returns a copy; mutating it leaves the root untouched.
	pending[0] = nil
	assert.NotNil(t, c.Uncommitted()[0])

	c.ClearUncommitted()
	assert.Empty(t, c.Uncommitted())
	assert.Equal(t, 2, c.Version(), "clearing never rolls back the version")
}

func TestRaise_ApplyFailure(t *testing.T) {
	c := &counter{Root: NewRoot("s1")}

	err := Raise(&c.Root, c, event.SessionEnded{Stamp: event.NewStamp(), SessionID: "s1"})
	require.Error(t, err)
	assert.Equal(t, 0, c.Version())
	assert.Empty(t, c.Uncommitted(), "a failed apply queues nothing")
}

func TestReplay(t *testing.T) {
	history := []event.JamEvent{added("p1"), added("p2"), added("p3")}

	c := &counter{Root: NewRoot("s1")}
	require.NoError(t, Replay(&c.Root, c, history, 0))

	assert.Equal(t, 3, c.Version())
	assert.Empty(t, c.Uncommitted(), "replayed events are already committed")
	assert.Equal(t, []string{"p1", "p2", "p3"}, c.peers)

	// Replaying the same sequence from a fresh instance yields identical state.
	other := &counter{Root: NewRoot("s1")}
	require.NoError(t, Replay(&other.Root, other, history, 0))
	assert.Equal(t, c.peers, other.peers)
	assert.Equal(t, c.Version(), other.Version())
}

func TestReplay_FromVersion(t *testing.T) {
	c := &counter{Root: NewRoot("s1")}
	require.NoError(t, Replay(&c.Root, c, []event.JamEvent{added("p4")}, 3))
	assert.Equal(t, 4, c.Version())
}
