package services

import (
	"time"
)

// eventPublisher is the slice of the event hub the services need. Keeps the
// services testable without a hub.
type eventPublisher interface {
	Publish(eventType, resource, id string, payload interface{})
}

// utcSeconds normalizes a timestamp to UTC truncated to whole seconds, the
// precision every persisted timestamp carries.
func utcSeconds(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func utcSecondsPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := utcSeconds(*t)
	return &v
}
