package history

import "context"

// Repository port for persisting and querying run history
type Repository interface {
	// Append inserts e and returns the assigned id. e.ID is ignored.
	Append(ctx context.Context, e *Entry) (int64, error)
	// Latest returns at most limit entries, most recent first.
	Latest(ctx context.Context, limit int) ([]*Entry, error)
}
