// Package ws relays jam events to connected peers over WebSocket and feeds
// collaboration events from peers back onto the bus. It is the signaling
// transport boundary; the domain core never sees a connection.
package ws

import (
	"context"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/aono31/jambox/internal/domain/event"
	"github.com/aono31/jambox/internal/infra/bus"
)

// relayedKinds are the event kinds forwarded to peers.
var relayedKinds = []event.Kind{
	event.KindSessionCreated,
	event.KindSessionStarted,
	event.KindSessionEnded,
	event.KindPlayerAdded,
	event.KindPlayerRoleSet,
	event.KindPlayerReady,
	event.KindPlayerLeftSession,
	event.KindCurrentRoundSet,
	event.KindNextRoundPrepared,
	event.KindRoundStarted,
	event.KindRoundEnded,
	event.KindRoundCompleted,
	event.KindTrackCreated,
	event.KindTrackAddedToRound,
	event.KindPlayerCompletedRound,
	event.KindPlayerConfirmedNextRound,
	event.KindCountdownTick,
}

// inboundKinds are the event kinds peers may publish inward.
var inboundKinds = map[event.Kind]struct{}{
	event.KindPeerLeftRoom: {},
	event.KindRoomClosed:   {},
}

// Hub fans jam event envelopes out to connected peers.
type Hub struct {
	bus *bus.Bus

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a hub over the bus.
func NewHub(b *bus.Bus) *Hub {
	return &Hub{
		bus:     b,
		clients: make(map[*Client]struct{}),
	}
}

// Register subscribes the hub to every relayed event kind.
func (h *Hub) Register() {
	for _, kind := range relayedKinds {
		h.bus.Subscribe(kind, h.relay)
	}
}

// relay encodes the event into its wire envelope and queues it on every
// connected client.
func (h *Hub) relay(ctx context.Context, ev event.JamEvent) error {
	env, err := event.Encode(ev)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(env)
	}
	return nil
}

// receive publishes a peer-sent envelope onto the bus. Only collaboration
// events are accepted from the outside.
func (h *Hub) receive(env event.Envelope) {
	if _, ok := inboundKinds[event.Kind(env.Type)]; !ok {
		zlog.Warn().Msgf("rejected inbound event: type=%s", env.Type)
		return
	}
	ev, err := event.Decode(env)
	if err != nil {
		zlog.Warn().Err(err).Msgf("failed to decode inbound event: type=%s", env.Type)
		return
	}
	h.bus.Publish(context.Background(), ev)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected peers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
