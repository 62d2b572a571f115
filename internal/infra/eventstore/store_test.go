package eventstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aono31/jambox/internal/domain/event"
)

func created(sessionID, roomID string) event.JamEvent {
	return event.SessionCreated{Stamp: event.NewStamp(), SessionID: sessionID, RoomID: roomID}
}

func added(sessionID, peerID string) event.JamEvent {
	return event.PlayerAdded{Stamp: event.NewStamp(), SessionID: sessionID, PeerID: peerID}
}

func TestStore_SaveEvents(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.SaveEvents("s1", []event.JamEvent{created("s1", "room-1"), added("s1", "p1")}, 0))
	assert.Equal(t, 2, s.Version("s1"))

	history := s.EventsForAggregate("s1")
	require.Len(t, history, 2)
	assert.Equal(t, event.KindSessionCreated, history[0].EventKind())
	assert.Equal(t, event.KindPlayerAdded, history[1].EventKind())

	// Appending with the advanced version succeeds.
	require.NoError(t, s.SaveEvents("s1", []event.JamEvent{added("s1", "p2")}, 2))
	assert.Equal(t, 3, s.Version("s1"))
}

func TestStore_SaveEventsConcurrency(t *testing.T) {
	tests := []struct {
		name            string
		storedEvents    int
		expectedVersion int
		wantConflict    bool
	}{
		{
			name:            "matching version",
			storedEvents:    2,
			expectedVersion: 2,
		},
		{
			name:            "stale version",
			storedEvents:    2,
			expectedVersion: 1,
			wantConflict:    true,
		},
		{
			name:            "version ahead of log",
			storedEvents:    0,
			expectedVersion: 1,
			wantConflict:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil)
			for i := 0; i < tt.storedEvents; i++ {
				require.NoError(t, s.SaveEvents("s1", []event.JamEvent{added("s1", "p1")}, i))
			}

			err := s.SaveEvents("s1", []event.JamEvent{added("s1", "p9"), added("s1", "p10")}, tt.expectedVersion)
			if tt.wantConflict {
				assert.ErrorIs(t, err, ErrConcurrency)
				assert.Equal(t, tt.storedEvents, s.Version("s1"), "a failed save writes nothing")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.storedEvents+2, s.Version("s1"))
		})
	}
}

func TestStore_SaveEventsValidation(t *testing.T) {
	s := New(nil)

	assert.Error(t, s.SaveEvents("", []event.JamEvent{added("s1", "p1")}, 0))

	// An empty batch is a no-op even with a wrong version.
	assert.NoError(t, s.SaveEvents("s1", nil, 42))
	assert.Equal(t, 0, s.Version("s1"))
}

func TestStore_EventsByKinds(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.SaveEvents("s1", []event.JamEvent{created("s1", "room-1"), added("s1", "p1")}, 0))
	require.NoError(t, s.SaveEvents("s2", []event.JamEvent{created("s2", "room-2")}, 0))
	require.NoError(t, s.SaveEvents("s1", []event.JamEvent{added("s1", "p2")}, 2))

	stored := s.EventsByKinds(event.KindSessionCreated)
	require.Len(t, stored, 2)
	assert.Equal(t, "s1", stored[0].AggregateID)
	assert.Equal(t, "s2", stored[1].AggregateID)

	// Global append order is preserved across aggregates.
	both := s.EventsByKinds(event.KindSessionCreated, event.KindPlayerAdded)
	require.Len(t, both, 4)
	for i := 1; i < len(both); i++ {
		assert.Greater(t, both[i].GlobalSeq, both[i-1].GlobalSeq)
	}

	assert.Empty(t, s.EventsByKinds(event.KindRoundStarted))
}

func TestStore_Forget(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.SaveEvents("s1", []event.JamEvent{created("s1", "room-1")}, 0))

	s.Forget("s1")
	assert.Empty(t, s.EventsForAggregate("s1"))
	assert.Equal(t, 0, s.Version("s1"))

	// The global log keeps the history.
	assert.Len(t, s.EventsByKinds(event.KindSessionCreated), 1)
}
