package event

import (
	"reflect"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// ErrUnknownKind indicates an envelope with a type outside the taxonomy.
var ErrUnknownKind = errors.New("unknown event kind")

// Meta carries envelope metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"eventId"`
}

// Envelope is the wire format delivered to remote peers and other bounded
// contexts: {type, payload, meta}.
type Envelope struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
	Meta    Meta           `json:"meta"`
}

// registry maps each kind to a factory for its payload type. Decoding
// dispatches through this map rather than switching on concrete types.
var registry = map[Kind]func() JamEvent{
	KindSessionCreated:           func() JamEvent { return &SessionCreated{} },
	KindSessionStarted:           func() JamEvent { return &SessionStarted{} },
	KindSessionEnded:             func() JamEvent { return &SessionEnded{} },
	KindPlayerAdded:              func() JamEvent { return &PlayerAdded{} },
	KindPlayerRoleSet:            func() JamEvent { return &PlayerRoleSet{} },
	KindPlayerReady:              func() JamEvent { return &PlayerReady{} },
	KindPlayerLeftSession:        func() JamEvent { return &PlayerLeftSession{} },
	KindCurrentRoundSet:          func() JamEvent { return &CurrentRoundSet{} },
	KindNextRoundPrepared:        func() JamEvent { return &NextRoundPrepared{} },
	KindRoundStarted:             func() JamEvent { return &RoundStarted{} },
	KindRoundEnded:               func() JamEvent { return &RoundEnded{} },
	KindRoundCompleted:           func() JamEvent { return &RoundCompleted{} },
	KindTrackCreated:             func() JamEvent { return &TrackCreated{} },
	KindTrackAddedToRound:        func() JamEvent { return &TrackAddedToRound{} },
	KindPlayerCompletedRound:     func() JamEvent { return &PlayerCompletedRound{} },
	KindPlayerConfirmedNextRound: func() JamEvent { return &PlayerConfirmedNextRound{} },
	KindCountdownTick:            func() JamEvent { return &CountdownTick{} },
	KindPeerLeftRoom:             func() JamEvent { return &PeerLeftRoom{} },
	KindRoomClosed:               func() JamEvent { return &RoomClosed{} },
}

// Encode wraps an event into its wire envelope.
func Encode(ev JamEvent) (Envelope, error) {
	payload := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &payload,
		TagName: "mapstructure",
	})
	if err != nil {
		return Envelope{}, errors.Wrap(err, "failed to build payload encoder")
	}
	if err := dec.Decode(ev); err != nil {
		return Envelope{}, errors.Wrapf(err, "failed to encode %s payload", ev.EventKind())
	}

	// mapstructure cannot flatten time.Time into a plain map; write the wire
	// form directly so Decode's string-to-time hook can recover it.
	payload["at"] = ev.OccurredAt().Format(time.RFC3339Nano)

	return Envelope{
		Type:    ev.EventKind().String(),
		Payload: payload,
		Meta: Meta{
			Timestamp: ev.OccurredAt(),
			EventID:   uuid.New().String(),
		},
	}, nil
}

// Decode turns a wire envelope back into a typed event.
func Decode(env Envelope) (JamEvent, error) {
	factory, ok := registry[Kind(env.Type)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "type %q", env.Type)
	}

	ev := factory()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     ev,
		TagName:    "mapstructure",
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build payload decoder")
	}
	if err := dec.Decode(env.Payload); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s payload", env.Type)
	}

	// Factories hand out pointers so mapstructure can populate them; events
	// travel by value everywhere else.
	return reflect.ValueOf(ev).Elem().Interface().(JamEvent), nil
}
