package game

// EventKind names a match lifecycle event.
type EventKind string

const (
	EventStarted  EventKind = "started"
	EventChoice   EventKind = "choice"
	EventForfeit  EventKind = "forfeit"
	EventTimeout  EventKind = "timeout"
	EventFinished EventKind = "finished"
)

// Logged reports whether events of this kind are kept in the match log.
// Started and Finished are emitted to subscribers only.
func (k EventKind) Logged() bool {
	return k == EventChoice || k == EventForfeit || k == EventTimeout
}

// Event is one entry of a match timeline. OffsetMS is measured from the
// moment the match entered play.
type Event struct {
	Kind     EventKind `json:"kind"`
	Team     Team      `json:"team,omitempty"`
	Choice   Choice    `json:"choice,omitempty"`
	Winner   Team      `json:"winner,omitempty"`
	OffsetMS int64     `json:"offset_ms"`
}
