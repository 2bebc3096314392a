package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// lookupTimeout bounds a single store lookup so a stalled database cannot
// wedge session setup indefinitely.
const lookupTimeout = 5 * time.Second

// IDFromRoomName derives the assistant ID from a room name.
//
// Rooms are named "{assistant_id}_{unique_suffix}" by the outbound-call
// trigger; a room with no underscore is treated as a bare assistant ID.
func IDFromRoomName(roomName string) string {
	id, _, _ := strings.Cut(roomName, "_")
	return id
}

// Resolver loads the assistant configuration for a session. It performs one
// store lookup per call; the session keeps the returned snapshot for its
// whole lifetime, so no caching beyond that is needed.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve derives the assistant ID from roomName and fetches its
// configuration. The returned error wraps [ErrNotFound] when the room does
// not map to any known assistant; that error is fatal to the session.
func (r *Resolver) Resolve(ctx context.Context, roomName string) (Config, error) {
	id := IDFromRoomName(roomName)
	if id == "" {
		return Config{}, fmt.Errorf("resolve room %q: empty assistant id: %w", roomName, ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	cfg, err := r.store.GetAssistant(ctx, id)
	if err != nil {
		return Config{}, fmt.Errorf("resolve room %q: %w", roomName, err)
	}
	return cfg, nil
}
