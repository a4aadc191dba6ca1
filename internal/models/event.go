package models

import "encoding/json"

// EventKind tags a progress event.
type EventKind string

const (
	EventStarted  EventKind = "started"
	EventProgress EventKind = "progress"
	EventResult   EventKind = "result"
	EventError    EventKind = "error"
	EventDone     EventKind = "done"
)

// Event is one entry of a job's progress stream.
type Event struct {
	Kind   EventKind
	Pct    int
	Msg    string
	Data   any
	Detail string
}

func Started() Event { return Event{Kind: EventStarted} }

func Progress(pct int, msg string) Event {
	return Event{Kind: EventProgress, Pct: pct, Msg: msg}
}

func Result(data any) Event { return Event{Kind: EventResult, Data: data} }

func Failure(detail string) Event { return Event{Kind: EventError, Detail: detail} }

func Done() Event { return Event{Kind: EventDone} }

// Terminal reports whether no event may follow this one.
func (e Event) Terminal() bool {
	return e.Kind == EventDone
}

// MarshalJSON emits only the fields defined for the event's kind, so a
// progress event at 0% still carries "pct".
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EventProgress:
		return json.Marshal(struct {
			Event EventKind `json:"event"`
			Pct   int       `json:"pct"`
			Msg   string    `json:"msg"`
		}{e.Kind, e.Pct, e.Msg})
	case EventResult:
		return json.Marshal(struct {
			Event EventKind `json:"event"`
			Data  any       `json:"data"`
		}{e.Kind, e.Data})
	case EventError:
		return json.Marshal(struct {
			Event  EventKind `json:"event"`
			Detail string    `json:"detail"`
		}{e.Kind, e.Detail})
	default:
		return json.Marshal(struct {
			Event EventKind `json:"event"`
		}{e.Kind})
	}
}
