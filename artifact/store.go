package artifact

import "context"

// Store persists stage outputs keyed by (runID, role). Implementations must
// be safe for concurrent use; the same key overwrites in place.
type Store interface {
	// Save stores (or overwrites) the artifact bytes and returns a
	// human-readable location (a path, URL or pseudo-URI) for display.
	Save(ctx context.Context, runID, role string, data []byte) (string, error)

	// Get returns the stored bytes or ErrNotFound. Round-trips are
	// byte-exact.
	Get(ctx context.Context, runID, role string) ([]byte, error)

	// List returns the roles stored for the run. Unknown runs yield an empty
	// slice, not an error.
	List(ctx context.Context, runID string) ([]string, error)

	// Delete removes the artifact if present or returns ErrNotFound.
	Delete(ctx context.Context, runID, role string) error
}
