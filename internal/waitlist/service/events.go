package service

import (
	"context"
	"time"

	"gymflow/pkg/kafka"
	"gymflow/pkg/model"
)

// Waitlist lifecycle topics. Events are keyed by session id so one
// session's events stay ordered within a partition.
const (
	TopicWaitlistEvents    = "gymflow.waitlist.events"
	TopicWaitlistEventsDLQ = "gymflow.waitlist.events.dlq"
)

const (
	EventWaitlistAdded     = "waitlist.added"
	EventWaitlistPromoted  = "waitlist.promoted"
	EventWaitlistConfirmed = "waitlist.confirmed"
	EventWaitlistExpired   = "waitlist.expired"
	EventWaitlistCancelled = "waitlist.cancelled"
)

// WaitlistEvent is the payload published on every queue transition.
type WaitlistEvent struct {
	EntryID    string    `json:"entry_id"`
	SessionID  string    `json:"session_id"`
	MemberID   string    `json:"member_id"`
	Status     string    `json:"status"`
	Position   int       `json:"position"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type pendingEvent struct {
	eventType string
	event     WaitlistEvent
}

func newPendingEvent(eventType string, entry *model.WaitingListEntry) pendingEvent {
	return pendingEvent{
		eventType: eventType,
		event: WaitlistEvent{
			EntryID:    entry.ID,
			SessionID:  entry.SessionID,
			MemberID:   entry.MemberID,
			Status:     entry.Status,
			Position:   entry.Position,
			OccurredAt: time.Now().UTC(),
		},
	}
}

// publishEvents emits queued events after the surrounding transaction has
// committed. Publishing is best effort: a broker outage must not fail an
// operation the store already accepted.
func (s *waitlistService) publishEvents(ctx context.Context, events []pendingEvent) {
	if s.publisher == nil {
		return
	}

	for _, pe := range events {
		msg := kafka.NewMessage().
			WithKey(pe.event.SessionID).
			WithValue(pe.event).
			WithEventType(pe.eventType).
			WithSource("gym").
			WithSchemaVersion("1").
			Build()

		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.cfg.Log.Warn("Failed to publish waitlist event",
				"event_type", pe.eventType,
				"entry_id", pe.event.EntryID,
				"session_id", pe.event.SessionID,
				"error", err,
			)
		}
	}
}
