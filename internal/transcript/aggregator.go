// Package transcript collects time-stamped utterances from the agent and
// caller speech channels of a single call session into one ordered sequence.
//
// The two channels emit concurrently and independently, and may deliver
// entries out of strict chronological order by small margins. The
// [Aggregator] serializes appends internally so callers need no
// synchronisation of their own, and orders snapshots by timestamp with
// arrival sequence as the tie-break.
package transcript

import (
	"sort"
	"sync"
	"time"
)

// Speaker identifies which side of the call produced an utterance.
type Speaker string

const (
	// SpeakerAgent marks utterances synthesised by the AI assistant.
	SpeakerAgent Speaker = "agent"

	// SpeakerUser marks utterances spoken by the caller.
	SpeakerUser Speaker = "user"
)

// IsValid reports whether s is a recognised speaker.
func (s Speaker) IsValid() bool {
	return s == SpeakerAgent || s == SpeakerUser
}

// Entry is a single utterance in a session transcript.
type Entry struct {
	// Speaker is the utterance source, agent or user.
	Speaker Speaker `json:"speaker"`

	// Text is the utterance text.
	Text string `json:"text"`

	// Timestamp records when the utterance occurred, millisecond precision.
	Timestamp time.Time `json:"timestamp"`

	// seq is the arrival sequence number, used to break timestamp ties.
	seq uint64
}

// Aggregator accumulates transcript entries for one session.
//
// Append may be called concurrently from the agent and caller emission
// paths. Snapshot may be called concurrently with appends; it holds the
// lock only long enough to copy the backing slice and never observes a
// partially written entry.
type Aggregator struct {
	mu      sync.Mutex
	entries []Entry
	nextSeq uint64
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Append records an utterance. A zero timestamp is accepted; such entries
// sort by arrival order only. Entries are never dropped.
func (a *Aggregator) Append(speaker Speaker, text string, ts time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, Entry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: ts,
		seq:       a.nextSeq,
	})
	a.nextSeq++
}

// Len returns the number of entries appended so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Snapshot returns a copy of all entries appended so far, ordered by
// timestamp ascending with arrival sequence breaking exact ties. Entries
// with a zero timestamp sort before all timestamped entries, in arrival
// order, so nothing is ever lost from the delivered record.
//
// The returned slice is owned by the caller; later appends do not affect it.
func (a *Aggregator) Snapshot() []Entry {
	a.mu.Lock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	a.mu.Unlock()

	// Sort outside the critical section so a large transcript does not
	// block concurrent appends.
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Timestamp, out[j].Timestamp
		if ti.Equal(tj) {
			return out[i].seq < out[j].seq
		}
		return ti.Before(tj)
	})
	return out
}
