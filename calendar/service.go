package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ScheduleResult reports what the scheduler did with a chat message.
type ScheduleResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Event   *Event `json:"event,omitempty"`
}

// Scheduler turns scheduling requests phrased in natural language into
// calendar operations against a Client.
type Scheduler struct {
	options Options
	client  Client
}

// ScheduleFromChat parses a chat message and creates the described event.
// An explicit title overrides the one extracted from the message.
func (s *Scheduler) ScheduleFromChat(ctx context.Context, message string, title string) (*ScheduleResult, error) {
	date, start, end, err := ExtractDateTime(message, s.options.Now())
	if err != nil {
		return &ScheduleResult{
			Success: false,
			Message: "I couldn't find a time range in that request. Try something like 'schedule a meeting tomorrow from 3 to 4 pm'.",
		}, nil
	}

	if len(title) == 0 {
		title = ExtractTitle(message)
	}

	event, err := s.client.CreateEvent(ctx, Event{
		Title:     title,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	slog.InfoContext(ctx, "scheduled event", "title", event.Title, "date", event.Date, "start", event.StartTime)

	return &ScheduleResult{
		Success: true,
		Message: fmt.Sprintf("Scheduled '%s' on %s from %s to %s.", event.Title, event.Date, event.StartTime, event.EndTime),
		Event:   &event,
	}, nil
}

func (s *Scheduler) EventsForRange(ctx context.Context, startDate string, endDate string, maxResults int) ([]Event, error) {
	return s.client.ListEvents(ctx, startDate, endDate, maxResults)
}

func (s *Scheduler) CancelMeeting(ctx context.Context, eventId string) error {
	return s.client.CancelEvent(ctx, eventId)
}

func NewScheduler(client Client, opts ...Option) *Scheduler {
	options := NewOptions(opts...)

	if client == nil {
		panic("calendar client is required")
	}

	s := &Scheduler{
		options: options,
		client:  client,
	}

	return s
}

type Option func(*Options)

type Options struct {
	Now     func() time.Time
	Context context.Context
}

// WithNow fixes the scheduler's clock, used by tests.
func WithNow(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Now:     time.Now,
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
