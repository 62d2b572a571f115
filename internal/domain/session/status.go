// Package session provides the jam session aggregate.
package session

// Status represents the session lifecycle state.
type Status int

const (
	StatusPending         Status = iota // Gathering players and roles
	StatusInProgress                    // A round is being played
	StatusRoundCompletion               // Round finished, waiting for confirmations
	StatusEnded                         // Terminal
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusRoundCompletion:
		return "round_completion"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}
