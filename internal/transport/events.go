package transport

import "time"

// EventType identifies a call session event received over the agent feed.
type EventType string

const (
	// EventSessionEstablished is sent when a caller joins a room and a
	// session should begin.
	EventSessionEstablished EventType = "session_established"

	// EventTranscript carries one finalized utterance.
	EventTranscript EventType = "transcript"

	// EventSessionEnded is sent when the room closes or the caller leaves.
	EventSessionEnded EventType = "session_ended"
)

// Event is the wire envelope for call session events. Fields beyond Type and
// RoomName are populated depending on the event type.
type Event struct {
	Type     EventType `json:"type"`
	RoomName string    `json:"room_name"`

	// Metadata carries caller attributes attached at dispatch time, used
	// for prompt personalisation. Set on session_established.
	Metadata map[string]string `json:"metadata,omitempty"`

	// ToNumber is the dialled phone number for outbound calls. Set on
	// session_established.
	ToNumber string `json:"to_number,omitempty"`

	// Speaker and Text carry the utterance for transcript events.
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text,omitempty"`

	// Timestamp is when the utterance was spoken, or when the session
	// event occurred.
	Timestamp time.Time `json:"timestamp,omitempty"`
}
