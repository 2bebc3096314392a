// Package callrecord defines the finalized record of one call session: who
// spoke, when the call ran, and where its recording lives. A record is
// assembled exactly once when a session finalizes and is immutable
// thereafter.
package callrecord

import (
	"math"
	"time"

	"github.com/shubhamINT/api-livekit/internal/transcript"
)

// Record is the unit produced at session finalization. It is owned by the
// webhook dispatcher until delivery completes or is abandoned, then persisted
// for the management API.
type Record struct {
	// RoomName is the session/room identifier.
	RoomName string

	// AssistantID and AssistantName identify the assistant that ran the call.
	AssistantID   string
	AssistantName string

	// ToNumber is the dialled destination for outbound calls. Empty for
	// sessions without a phone leg.
	ToNumber string

	// RecordingPath is the recording reference (URL or object path). Empty
	// when recording was disabled or failed.
	RecordingPath string

	// Transcript is the ordered utterance sequence snapshotted at
	// finalization.
	Transcript []transcript.Entry

	// StartedAt and EndedAt bound the call in wall-clock time.
	// EndedAt is never before StartedAt.
	StartedAt time.Time
	EndedAt   time.Time

	// DurationMinutes is (EndedAt - StartedAt) in minutes, non-negative,
	// rounded to two decimal places.
	DurationMinutes float64
}

// DurationMinutes computes the call duration in minutes between start and
// end. The result is clamped to zero for inverted pairs and rounded to two
// decimal places so the delivered payload is deterministic.
func DurationMinutes(start, end time.Time) float64 {
	minutes := end.Sub(start).Minutes()
	if minutes < 0 {
		return 0
	}
	return math.Round(minutes*100) / 100
}
