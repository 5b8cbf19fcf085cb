// Package notify describes the events emitted when snapshots are stored.
package notify

import (
	"context"
	"time"

	"go.elastic.co/fastjson"

	"github.com/vshulcz/metricsnap/internal/domain"
	"github.com/vshulcz/metricsnap/pkg/observer"
)

// Event records that a snapshot was stored, under which name and by whom.
type Event struct {
	TakenAt  time.Time
	Name     string
	Paths    []string
	ClientIP string
}

// FromCapture builds the event for c, taking the client address from ctx.
func FromCapture(ctx context.Context, c domain.Capture) Event {
	var paths []string
	if c.Snapshot != nil {
		paths = c.Snapshot.Keys()
	}
	return Event{
		TakenAt:  c.TakenAt,
		Name:     c.Name,
		Paths:    paths,
		ClientIP: ClientIPFromContext(ctx),
	}
}

// MarshalFastJSON writes the event as a single JSON object.
func (e Event) MarshalFastJSON(w *fastjson.Writer) error {
	w.RawString(`{"ts":`)
	w.Int64(e.TakenAt.UnixMilli())
	w.RawString(`,"name":`)
	w.String(e.Name)
	w.RawString(`,"paths":[`)
	for i, p := range e.Paths {
		if i > 0 {
			w.RawByte(',')
		}
		w.String(p)
	}
	w.RawByte(']')
	if e.ClientIP != "" {
		w.RawString(`,"ip_address":`)
		w.String(e.ClientIP)
	}
	w.RawByte('}')
	return nil
}

// Encode returns the JSON form of e.
func (e Event) Encode() ([]byte, error) {
	var w fastjson.Writer
	if err := e.MarshalFastJSON(&w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

type (
	Observer = observer.Observer[Event]
	Subject  = observer.Subject[Event]
)

func NewSubject(observers ...Observer) *Subject {
	return observer.NewSubject(observers...)
}
