package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aono31/jambox/internal/domain/event"
	"github.com/aono31/jambox/internal/domain/role"
)

func drummer() role.Role {
	return role.Role{ID: "drums", Name: "Drums", Color: "#e74c3c", Unique: true}
}

func bassist() role.Role {
	return role.Role{ID: "bass", Name: "Bass", Color: "#3498db", Unique: true}
}

func readySession(t *testing.T, peers ...string) *Session {
	t.Helper()
	require.NotEmpty(t, peers)

	s, err := Create("s1", "room-1", peers[0])
	require.NoError(t, err)
	for _, p := range peers[1:] {
		require.NoError(t, s.AddPlayer(p))
	}
	for _, p := range peers {
		r := role.Role{ID: "role-" + p, Name: "Role " + p, Unique: true}
		require.NoError(t, s.SetPlayerRole(p, r))
		require.NoError(t, s.SetPlayerReady(p, true))
	}
	return s
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		roomID  string
		peerID  string
		wantErr error
	}{
		{
			name:   "valid",
			id:     "s1",
			roomID: "room-1",
			peerID: "p1",
		},
		{
			name:    "missing session id",
			id:      "",
			roomID:  "room-1",
			peerID:  "p1",
			wantErr: ErrEmptySessionID,
		},
		{
			name:    "missing room id",
			id:      "s1",
			roomID:  "",
			peerID:  "p1",
			wantErr: ErrEmptyRoomID,
		},
		{
			name:    "missing creator",
			id:      "s1",
			roomID:  "room-1",
			peerID:  "",
			wantErr: ErrEmptyPeerID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Create(tt.id, tt.roomID, tt.peerID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, StatusPending, s.Status())
			assert.Equal(t, 1, s.PlayerCount())
			assert.True(t, s.HasPlayer(tt.peerID))

			pending := s.Uncommitted()
			require.Len(t, pending, 2)
			assert.Equal(t, event.KindSessionCreated, pending[0].EventKind())
			assert.Equal(t, event.KindPlayerAdded, pending[1].EventKind())
		})
	}
}

func TestSession_AddPlayer(t *testing.T) {
	s, err := Create("s1", "room-1", "p1")
	require.NoError(t, err)

	require.NoError(t, s.AddPlayer("p2"))
	assert.Equal(t, 2, s.PlayerCount())

	// Adding the same peer again is a no-op that raises nothing.
	before := len(s.Uncommitted())
	require.NoError(t, s.AddPlayer("p2"))
	assert.Equal(t, 2, s.PlayerCount())
	assert.Len(t, s.Uncommitted(), before)

	assert.ErrorIs(t, s.AddPlayer(""), ErrEmptyPeerID)

	// Joining is closed once the session leaves pending.
	s = readySession(t, "p1")
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.AddPlayer("p3"), ErrJoinClosed)
}

func TestSession_SetPlayerRole(t *testing.T) {
	t.Run("unique role conflict", func(t *testing.T) {
		s, err := Create("s1", "room-1", "p1")
		require.NoError(t, err)
		require.NoError(t, s.AddPlayer("p2"))

		require.NoError(t, s.SetPlayerRole("p1", drummer()))
		assert.ErrorIs(t, s.SetPlayerRole("p2", drummer()), ErrRoleTaken)

		// Reassigning p1 away frees the role.
		require.NoError(t, s.SetPlayerRole("p1", bassist()))
		assert.NoError(t, s.SetPlayerRole("p2", drummer()))
	})

	t.Run("same player may reassert their role", func(t *testing.T) {
		s, err := Create("s1", "room-1", "p1")
		require.NoError(t, err)

		require.NoError(t, s.SetPlayerRole("p1", drummer()))
		assert.NoError(t, s.SetPlayerRole("p1", drummer()))
	})

	t.Run("assigning a role resets readiness", func(t *testing.T) {
		s, err := Create("s1", "room-1", "p1")
		require.NoError(t, err)

		require.NoError(t, s.SetPlayerRole("p1", drummer()))
		require.NoError(t, s.SetPlayerReady("p1", true))
		require.NoError(t, s.SetPlayerRole("p1", bassist()))

		p, ok := s.Player("p1")
		require.True(t, ok)
		assert.False(t, p.Ready)
	})

	t.Run("unknown player", func(t *testing.T) {
		s, err := Create("s1", "room-1", "p1")
		require.NoError(t, err)
		assert.ErrorIs(t, s.SetPlayerRole("ghost", drummer()), ErrPlayerNotFound)
	})
}

func TestSession_SetPlayerReady(t *testing.T) {
	s, err := Create("s1", "room-1", "p1")
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetPlayerReady("p1", true), ErrReadyWithoutRole)

	require.NoError(t, s.SetPlayerRole("p1", drummer()))
	require.NoError(t, s.SetPlayerReady("p1", true))

	p, ok := s.Player("p1")
	require.True(t, ok)
	assert.True(t, p.Ready)

	// Unreadying never requires a role.
	require.NoError(t, s.SetPlayerReady("p1", false))
}

func TestSession_Start(t *testing.T) {
	t.Run("two ready players", func(t *testing.T) {
		s, err := Create("s1", "room-1", "p1")
		require.NoError(t, err)
		require.NoError(t, s.AddPlayer("p2"))
		require.NoError(t, s.SetPlayerRole("p1", drummer()))
		require.NoError(t, s.SetPlayerRole("p2", bassist()))
		require.NoError(t, s.SetPlayerReady("p1", true))
		require.NoError(t, s.SetPlayerReady("p2", true))

		require.NoError(t, s.Start())
		assert.Equal(t, StatusInProgress, s.Status())

		err = s.Start()
		assert.ErrorIs(t, err, ErrNotPending)
		assert.EqualError(t, ErrNotPending, "session can only be started from pending state")
	})

	t.Run("player not ready", func(t *testing.T) {
		s, err := Create("s1", "room-1", "p1")
		require.NoError(t, err)
		require.NoError(t, s.SetPlayerRole("p1", drummer()))

		assert.ErrorIs(t, s.Start(), ErrPlayersNotReady)
	})
}

func TestSession_RoundFlow(t *testing.T) {
	s := readySession(t, "p1", "p2")
	require.NoError(t, s.Start())

	require.NoError(t, s.SetCurrentRound("r1", 1))
	assert.Equal(t, "r1", s.CurrentRoundID())
	assert.Equal(t, 1, s.CurrentRoundNumber())

	require.NoError(t, s.MarkRoundCompleted("r1"))
	assert.Equal(t, StatusRoundCompletion, s.Status())
	assert.Equal(t, []string{"r1"}, s.CompletedRoundIDs())

	next, err := s.PrepareNextRound()
	require.NoError(t, err)
	assert.Equal(t, 2, next)
	assert.Equal(t, StatusInProgress, s.Status())
	assert.Empty(t, s.CurrentRoundID())
	assert.Equal(t, 2, s.CurrentRoundNumber())

	// Preparing again outside round completion fails.
	_, err = s.PrepareNextRound()
	assert.ErrorIs(t, err, ErrNotInRoundCompletion)
}

func TestSession_SetCurrentRoundValidation(t *testing.T) {
	s := readySession(t, "p1")
	require.NoError(t, s.Start())

	assert.ErrorIs(t, s.SetCurrentRound("", 1), ErrEmptyRoundID)
	assert.ErrorIs(t, s.SetCurrentRound("r1", 0), ErrBadRoundNumber)
}

func TestSession_End(t *testing.T) {
	s := readySession(t, "p1")
	require.NoError(t, s.End())
	assert.Equal(t, StatusEnded, s.Status())
	assert.ErrorIs(t, s.End(), ErrAlreadyEnded)
}

func TestSession_MarkPlayerUnavailable(t *testing.T) {
	t.Run("last player ends the session", func(t *testing.T) {
		s, err := Create("s1", "room-1", "p1")
		require.NoError(t, err)

		require.NoError(t, s.MarkPlayerUnavailable("p1"))
		assert.Equal(t, StatusEnded, s.Status())
		assert.Equal(t, 0, s.PlayerCount())

		kinds := make([]event.Kind, 0)
		for _, ev := range s.Uncommitted() {
			kinds = append(kinds, ev.EventKind())
		}
		assert.Contains(t, kinds, event.KindPlayerLeftSession)
		assert.Contains(t, kinds, event.KindSessionEnded)
	})

	t.Run("remaining players keep the session alive", func(t *testing.T) {
		s, err := Create("s1", "room-1", "p1")
		require.NoError(t, err)
		require.NoError(t, s.AddPlayer("p2"))

		require.NoError(t, s.MarkPlayerUnavailable("p1"))
		assert.NotEqual(t, StatusEnded, s.Status())
		assert.Equal(t, 1, s.PlayerCount())
	})

	t.Run("unknown peer and ended session are no-ops", func(t *testing.T) {
		s, err := Create("s1", "room-1", "p1")
		require.NoError(t, err)

		before := len(s.Uncommitted())
		require.NoError(t, s.MarkPlayerUnavailable("ghost"))
		assert.Len(t, s.Uncommitted(), before)

		require.NoError(t, s.End())
		require.NoError(t, s.MarkPlayerUnavailable("p1"))
		assert.Equal(t, 1, s.PlayerCount())
	})
}

func TestSession_ReplayDeterminism(t *testing.T) {
	s := readySession(t, "p1", "p2")
	require.NoError(t, s.Start())
	require.NoError(t, s.SetCurrentRound("r1", 1))
	require.NoError(t, s.MarkRoundCompleted("r1"))

	history := s.Uncommitted()

	first, err := Load("s1", history)
	require.NoError(t, err)
	second, err := Load("s1", history)
	require.NoError(t, err)

	assert.Equal(t, len(history), first.Version())
	assert.Empty(t, first.Uncommitted())

	assert.Equal(t, first.Status(), second.Status())
	assert.Equal(t, first.Players(), second.Players())
	assert.Equal(t, first.CurrentRoundID(), second.CurrentRoundID())
	assert.Equal(t, first.CurrentRoundNumber(), second.CurrentRoundNumber())
	assert.Equal(t, first.CompletedRoundIDs(), second.CompletedRoundIDs())

	assert.Equal(t, s.Status(), first.Status())
	assert.Equal(t, s.PlayerIDs(), first.PlayerIDs())
}

func TestSession_PlayersOrderedByJoin(t *testing.T) {
	s, err := Create("s1", "room-1", "p3")
	require.NoError(t, err)
	require.NoError(t, s.AddPlayer("p1"))
	require.NoError(t, s.AddPlayer("p2"))

	ids := s.PlayerIDs()
	assert.Equal(t, "p3", ids[0], "creator joined first")
	assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, ids)
}
