// Package session keeps the bounded per-client chat history. Each session
// owns one ordered sequence of user/assistant turns; the system turn is
// synthesized per request and never stored here.
package session

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one stored message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DefaultMaxTurns caps history at five exchanges (ten turns).
const DefaultMaxTurns = 10

// Store owns the history for each session ID. Implementations trim FIFO
// inside Append so the stored history never exceeds the configured maximum
// turn count.
//
// Append is read-modify-write without cross-request locking: two chat
// requests racing on the same session can lose turns. A browser session
// submits one turn at a time, so this is accepted; the interface leaves
// room for per-session locking without changing callers.
type Store interface {
	// Get returns the stored turns in append order, empty if none.
	Get(ctx context.Context, id string) ([]Turn, error)

	// Append adds a completed exchange, then trims the oldest turns while
	// the history exceeds the maximum.
	Append(ctx context.Context, id string, user, assistant Turn) error

	// Clear removes all turns for the session. Idempotent.
	Clear(ctx context.Context, id string) error

	// Close releases the store's resources.
	Close() error
}

// trim drops the oldest turns until the history fits max. max <= 0 disables
// trimming.
func trim(history []Turn, max int) []Turn {
	if max <= 0 || len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}
