package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	EventType  string    `json:"event_type"`
	ActorID    int64     `json:"actor_id"`
	Resource   string    `json:"resource"`
	ResourceID any       `json:"resource_id"`
	Status     string    `json:"status"`
	Details    any       `json:"details,omitempty"`
}

// Logger writes one JSON line per privileged change.
type Logger interface {
	LogChange(actorID int64, eventType, resource string, resourceID any, details map[string]any)
	LogDenied(actorID int64, eventType, resource string, resourceID any, reason string)
}

type JSONLogger struct {
	logf func(format string, args ...any)
}

func NewLogger() *JSONLogger {
	return &JSONLogger{logf: log.Printf}
}

func (a *JSONLogger) LogChange(actorID int64, eventType, resource string, resourceID any, details map[string]any) {
	a.log(Event{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		ActorID:    actorID,
		Resource:   resource,
		ResourceID: resourceID,
		Status:     "SUCCESS",
		Details:    details,
	})
}

func (a *JSONLogger) LogDenied(actorID int64, eventType, resource string, resourceID any, reason string) {
	a.log(Event{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		ActorID:    actorID,
		Resource:   resource,
		ResourceID: resourceID,
		Status:     "DENIED",
		Details:    map[string]string{"reason": reason},
	})
}

func (a *JSONLogger) log(event Event) {
	data, _ := json.Marshal(event)
	a.logf("AUDIT: %s", string(data))
}
