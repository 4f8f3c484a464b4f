package core

import "context"

// ReadAll requests the full history from Session.Read.
const ReadAll = -1

// Session is an ordered, appendable log of conversation history items keyed
// by a session id. Implementations must serialize mutations per instance and
// never expose partial writes to concurrent readers; a session may be shared
// across multiple sequential runs (multi-turn memory).
type Session interface {
	// ID returns the stable session identifier.
	ID() string

	// Read returns the most recent limit items in original insertion order.
	// A negative limit (ReadAll) or limit >= length returns the full
	// history; limit == 0 returns an empty slice.
	Read(ctx context.Context, limit int) ([]RunItem, error)

	// Append adds items in the given order. Appending nothing is a no-op.
	// Durable implementations must commit the batch atomically.
	Append(ctx context.Context, items ...RunItem) error

	// PopLast removes and returns the most recently appended item. The
	// second return is false when the session is empty.
	PopLast(ctx context.Context) (RunItem, bool, error)

	// Clear empties the session history. The session id is unchanged.
	Clear(ctx context.Context) error
}
