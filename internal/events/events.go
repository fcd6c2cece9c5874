package events

import (
	"context"
	"time"

	"github.com/lid-trainer/backend/internal/id"
)

type EventType string

const (
	EventTypeSessionCreated   EventType = "session.created"
	EventTypeSessionCompleted EventType = "session.completed"
	EventTypeSessionAbandoned EventType = "session.abandoned"
)

// Event is a session lifecycle notification.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	TestType  string    `json:"testType,omitempty"`
	ResultID  string    `json:"resultId,omitempty"`
	Score     int       `json:"score,omitempty"`
	Passed    bool      `json:"passed,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSessionCreatedEvent(sessionID, testType string) Event {
	return Event{
		ID:        id.GenerateID(),
		Type:      EventTypeSessionCreated,
		SessionID: sessionID,
		TestType:  testType,
		Timestamp: time.Now(),
	}
}

func NewSessionCompletedEvent(sessionID, resultID, testType string, score int, passed bool) Event {
	return Event{
		ID:        id.GenerateID(),
		Type:      EventTypeSessionCompleted,
		SessionID: sessionID,
		ResultID:  resultID,
		TestType:  testType,
		Score:     score,
		Passed:    passed,
		Timestamp: time.Now(),
	}
}

func NewSessionAbandonedEvent(sessionID, reason string) Event {
	return Event{
		ID:        id.GenerateID(),
		Type:      EventTypeSessionAbandoned,
		SessionID: sessionID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// Publisher delivers lifecycle events. Delivery is best effort; callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
