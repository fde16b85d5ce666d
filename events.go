package irpf

import (
	"encoding/json"
	"iter"
)

// Event aggregates the earnings of a kind.
type Event struct {
	Title    string     `json:"title"`
	Quantity Quantity   `json:"quantity"`
	Value    Money      `json:"value"`
	Items    []Earnings `json:"-"`
}

func (e *Event) add(item Earnings) {
	e.Items = append(e.Items, item)
	e.Quantity = e.Quantity.Add(item.Quantity)
	e.Value = e.Value.Add(item.Total)
}

// Update merges o into e.
func (e *Event) Update(o *Event) {
	e.Items = append(e.Items, o.Items...)
	e.Quantity = e.Quantity.Add(o.Quantity)
	e.Value = e.Value.Add(o.Value)
}

// Events is a map of earnings kind slug to Event that remembers insertion order.
type Events struct {
	kinds  []string
	events map[string]*Event
}

// Get returns the event of a kind, creating it with the given title.
func (e *Events) Get(kind, title string) *Event {
	if ev, ok := e.events[kind]; ok {
		return ev
	}
	if e.events == nil {
		e.events = make(map[string]*Event)
	}
	ev := &Event{Title: title}
	e.events[kind] = ev
	e.kinds = append(e.kinds, kind)
	return ev
}

// Lookup returns the event of a kind, if any.
func (e Events) Lookup(kind string) (*Event, bool) {
	ev, ok := e.events[kind]
	return ev, ok
}

// Len returns the number of kinds.
func (e Events) Len() int { return len(e.kinds) }

// All iterates over the events in insertion order.
func (e Events) All() iter.Seq2[string, *Event] {
	return func(yield func(string, *Event) bool) {
		for _, k := range e.kinds {
			if !yield(k, e.events[k]) {
				return
			}
		}
	}
}

// Update merges every event of o.
func (e *Events) Update(o Events) {
	for kind, ev := range o.All() {
		e.Get(kind, ev.Title).Update(ev)
	}
}

func (e Events) MarshalJSON() ([]byte, error) {
	type kindEvent struct {
		Kind string `json:"kind"`
		*Event
	}
	list := make([]kindEvent, 0, len(e.kinds))
	for kind, ev := range e.All() {
		list = append(list, kindEvent{kind, ev})
	}
	return json.Marshal(list)
}

// CorporateEventKind names the corporate actions logged on an asset.
type CorporateEventKind string

const (
	EventBonus        CorporateEventKind = "bonus"
	EventSubscription CorporateEventKind = "subscription"
	EventSplit        CorporateEventKind = "split"
	EventInplit       CorporateEventKind = "inplit"
	EventConvert      CorporateEventKind = "convert"
)

// CorporateEvent is a display entry of the corporate actions applied to an asset.
type CorporateEvent struct {
	Date     Date               `json:"date"`
	Kind     CorporateEventKind `json:"kind"`
	Title    string             `json:"title"`
	Quantity Quantity           `json:"quantity"`
	Value    Money              `json:"value"`
	// Fraction is the cost taken out of the position for a share fraction.
	Fraction Money `json:"fraction,omitzero"`
}
