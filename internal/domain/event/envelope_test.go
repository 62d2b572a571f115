package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aono31/jambox/internal/domain/role"
)

func TestEncode(t *testing.T) {
	ev := RoundStarted{
		Stamp:           NewStamp(),
		SessionID:       "s1",
		RoundID:         "r1",
		RoundNumber:     2,
		DurationSeconds: 300,
	}

	env, err := Encode(ev)
	require.NoError(t, err)

	assert.Equal(t, "jam.round-started", env.Type)
	assert.Equal(t, "s1", env.Payload["session_id"])
	assert.Equal(t, "r1", env.Payload["round_id"])
	assert.Equal(t, 2, env.Payload["round_number"])
	assert.Equal(t, ev.OccurredAt(), env.Meta.Timestamp)
	assert.NotEmpty(t, env.Meta.EventID)

	// The occurrence time goes on the wire as an RFC3339 string, not as an
	// opaque struct.
	at, ok := env.Payload["at"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339Nano, at)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ev.OccurredAt()))
}

func TestEncodeDecode_KeepsOccurrenceTime(t *testing.T) {
	ev := PlayerAdded{Stamp: NewStamp(), SessionID: "s1", PeerID: "p1"}

	env, err := Encode(ev)
	require.NoError(t, err)

	decoded, err := Decode(env)
	require.NoError(t, err)
	assert.False(t, decoded.OccurredAt().IsZero())
	assert.True(t, decoded.OccurredAt().Equal(ev.OccurredAt()))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		ev   JamEvent
	}{
		{
			name: "session created",
			ev:   SessionCreated{Stamp: NewStamp(), SessionID: "s1", RoomID: "room-1"},
		},
		{
			name: "player role set",
			ev: PlayerRoleSet{
				Stamp:     NewStamp(),
				SessionID: "s1",
				PeerID:    "p1",
				Role:      role.Role{ID: "drums", Name: "Drums", Color: "#e74c3c", Unique: true},
			},
		},
		{
			name: "countdown tick",
			ev:   CountdownTick{Stamp: NewStamp(), SessionID: "s1", RoundID: "r1", RoundNumber: 1, RemainingSeconds: 42},
		},
		{
			name: "peer left room",
			ev:   PeerLeftRoom{Stamp: NewStamp(), RoomID: "room-1", PeerID: "p1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Encode(tt.ev)
			require.NoError(t, err)

			decoded, err := Decode(env)
			require.NoError(t, err)
			assert.Equal(t, tt.ev, decoded)
		})
	}
}

// Envelopes arriving from peers have been through JSON, so times are strings
// and numbers are float64 until mapstructure converts them back.
func TestDecode_AfterJSONTransit(t *testing.T) {
	env, err := Encode(RoundStarted{
		Stamp:           NewStamp(),
		SessionID:       "s1",
		RoundID:         "r1",
		RoundNumber:     3,
		DurationSeconds: 120,
	})
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var transit Envelope
	require.NoError(t, json.Unmarshal(raw, &transit))

	decoded, err := Decode(transit)
	require.NoError(t, err)

	started, ok := decoded.(RoundStarted)
	require.True(t, ok)
	assert.Equal(t, "s1", started.SessionID)
	assert.Equal(t, 3, started.RoundNumber)
	assert.Equal(t, 120, started.DurationSeconds)
	assert.False(t, started.OccurredAt().IsZero())
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := Decode(Envelope{Type: "jam.no-such-event"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestKind_IsValid(t *testing.T) {
	assert.True(t, KindSessionCreated.IsValid())
	assert.True(t, KindPeerLeftRoom.IsValid())
	assert.False(t, Kind("jam.bogus").IsValid())
}
