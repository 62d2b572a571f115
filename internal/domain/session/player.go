package session

import (
	"time"

	"github.com/aono31/jambox/internal/domain/role"
)

// Player represents a peer's state within a session. Round-local progress
// (completion, confirmation) lives on the Round aggregate's sets, not here.
type Player struct {
	PeerID   string
	Role     *role.Role // nil until assigned
	Ready    bool
	JoinedAt time.Time
}

// HasRole reports whether the player has been assigned a role.
func (p *Player) HasRole() bool {
	return p.Role != nil && !p.Role.IsZero()
}

// clone returns a copy safe to hand outside the aggregate.
func (p *Player) clone() Player {
	c := *p
	if p.Role != nil {
		r := *p.Role
		c.Role = &r
	}
	return c
}
