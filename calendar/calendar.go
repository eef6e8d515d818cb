package calendar

import "context"

// Event is one scheduled calendar entry. Times are wall-clock strings
// ("2026-01-15", "15:00") because that is what calendar backends exchange.
type Event struct {
	Id        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Client is the narrow interface the scheduler needs from a calendar
// backend, local or remote.
type Client interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	ListEvents(ctx context.Context, startDate string, endDate string, maxResults int) ([]Event, error)
	CancelEvent(ctx context.Context, eventId string) error
}
