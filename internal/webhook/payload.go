package webhook

import (
	"time"

	"github.com/shubhamINT/api-livekit/internal/callrecord"
)

// timestampLayout is the ISO 8601 layout used for all payload timestamps.
// Millisecond precision keeps duplicate deliveries byte-identical.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// deliveredMessage is the fixed envelope message expected by downstream
// consumers.
const deliveredMessage = "Call details fetched successfully"

// Payload is the JSON envelope posted to the assistant's end-call URL.
type Payload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    Data   `json:"data"`
}

// Data carries the call record fields of the envelope.
type Data struct {
	RoomName            string           `json:"room_name"`
	AssistantID         string           `json:"assistant_id"`
	AssistantName       string           `json:"assistant_name"`
	ToNumber            *string          `json:"to_number"`
	RecordingPath       *string          `json:"recording_path"`
	Transcripts         []TranscriptItem `json:"transcripts"`
	StartedAt           string           `json:"started_at"`
	EndedAt             string           `json:"ended_at"`
	CallDurationMinutes float64          `json:"call_duration_minutes"`
}

// TranscriptItem is a single utterance in the payload.
type TranscriptItem struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// BuildPayload converts a call record into the webhook envelope. The result
// is fully deterministic from the record, so a retried or duplicated
// delivery always carries identical content; consumers that need
// de-duplication can key on room_name plus ended_at.
func BuildPayload(rec callrecord.Record) Payload {
	data := Data{
		RoomName:            rec.RoomName,
		AssistantID:         rec.AssistantID,
		AssistantName:       rec.AssistantName,
		ToNumber:            nullable(rec.ToNumber),
		RecordingPath:       nullable(rec.RecordingPath),
		Transcripts:         make([]TranscriptItem, 0, len(rec.Transcript)),
		StartedAt:           formatTimestamp(rec.StartedAt),
		EndedAt:             formatTimestamp(rec.EndedAt),
		CallDurationMinutes: rec.DurationMinutes,
	}
	for _, e := range rec.Transcript {
		data.Transcripts = append(data.Transcripts, TranscriptItem{
			Speaker:   string(e.Speaker),
			Text:      e.Text,
			Timestamp: formatTimestamp(e.Timestamp),
		})
	}
	return Payload{
		Success: true,
		Message: deliveredMessage,
		Data:    data,
	}
}

// nullable maps the empty string to JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
