package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// feedBuffer bounds how many events can queue up before the reader blocks.
const feedBuffer = 256

// Feed is a live websocket subscription to call session events. Events are
// delivered on [Feed.Events]; the channel is closed when the connection ends.
type Feed struct {
	conn   *websocket.Conn
	events chan Event

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	mu      sync.Mutex
	readErr error
}

// DialFeed connects to the event feed at feedURL, authenticating with a
// room-admin token, and starts reading events.
func DialFeed(ctx context.Context, feedURL string, minter *TokenMinter) (*Feed, error) {
	token, err := minter.AdminToken("agent-worker")
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.Dial(ctx, feedURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: dial feed: %w", err)
	}

	f := &Feed{
		conn:   conn,
		events: make(chan Event, feedBuffer),
		done:   make(chan struct{}),
	}
	f.wg.Add(1)
	go f.readLoop(ctx)
	return f, nil
}

// Events returns the channel of decoded feed events. The channel is closed
// when the connection is closed or fails; check [Feed.Err] afterwards.
func (f *Feed) Events() <-chan Event { return f.events }

// Err returns the error that terminated the read loop, if any. A clean close
// returns nil.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readErr
}

func (f *Feed) readLoop(ctx context.Context) {
	defer f.wg.Done()
	defer close(f.events)

	for {
		_, data, err := f.conn.Read(ctx)
		if err != nil {
			select {
			case <-f.done:
				// Closed by us.
			default:
				if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
					return
				}
				f.mu.Lock()
				f.readErr = err
				f.mu.Unlock()
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("dropping malformed feed event", "error", err)
			continue
		}
		if ev.Type == "" || ev.RoomName == "" {
			slog.Warn("dropping feed event with missing type or room", "type", ev.Type, "room", ev.RoomName)
			continue
		}

		select {
		case f.events <- ev:
		case <-f.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close terminates the feed connection. Safe to call multiple times.
func (f *Feed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		err = f.conn.Close(websocket.StatusNormalClosure, "shutting down")
		f.wg.Wait()
	})
	return err
}
