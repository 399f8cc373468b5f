// Package notify publishes room change events to live-delivery layers.
// Delivery is fire-and-forget; the pipelines never block on or fail
// because of a subscriber.
package notify

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Event kinds emitted by the message and chara pipelines.
const (
	KindMessageAdded  = "add message"
	KindMessageEdited = "edit message"
	KindCharaAdded    = "add character"
)

// Event is one room change. ConnID identifies the originating
// connection so subscribers can skip echoing to the sender.
type Event struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	RoomCode string `json:"rpCode"`
	ConnID   string `json:"connId,omitempty"`
	Payload  any    `json:"payload"`
}

// NewEvent stamps a ULID on a fresh event.
func NewEvent(kind, roomCode, connID string, payload any) Event {
	return Event{
		ID:       ulid.Make().String(),
		Kind:     kind,
		RoomCode: roomCode,
		ConnID:   connID,
		Payload:  payload,
	}
}

// Notifier accepts events and returns immediately. Implementations must
// not block the caller.
type Notifier interface {
	Emit(ctx context.Context, ev Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Emit(ctx context.Context, ev Event) {}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, n := range m {
		n.Emit(ctx, ev)
	}
}
