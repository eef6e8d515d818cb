package local

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/w-h-a/ragchat/calendar"
)

// localClient keeps events in process memory. It is the fallback when no
// remote calendar tool is configured.
type localClient struct {
	events map[string]calendar.Event
	mtx    sync.RWMutex
}

func (c *localClient) CreateEvent(ctx context.Context, event calendar.Event) (calendar.Event, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	event.Id = uuid.New().String()

	c.events[event.Id] = event

	return event, nil
}

func (c *localClient) ListEvents(ctx context.Context, startDate string, endDate string, maxResults int) ([]calendar.Event, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	events := []calendar.Event{}

	for _, event := range c.events {
		if len(startDate) > 0 && event.Date < startDate {
			continue
		}
		if len(endDate) > 0 && event.Date > endDate {
			continue
		}
		events = append(events, event)
		if maxResults > 0 && len(events) >= maxResults {
			break
		}
	}

	return events, nil
}

func (c *localClient) CancelEvent(ctx context.Context, eventId string) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if _, ok := c.events[eventId]; !ok {
		return errors.New("event not found")
	}

	delete(c.events, eventId)

	return nil
}

func NewClient() calendar.Client {
	c := &localClient{
		events: map[string]calendar.Event{},
		mtx:    sync.RWMutex{},
	}

	return c
}
