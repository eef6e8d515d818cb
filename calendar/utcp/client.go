package utcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	goutcp "github.com/universal-tool-calling-protocol/go-utcp"
	"github.com/w-h-a/ragchat/calendar"
)

// utcpClient drives a remote calendar tool server over the universal
// tool-calling protocol. Tool names mirror the remote server's contract.
type utcpClient struct {
	options Options
	client  goutcp.UtcpClientInterface
}

func (c *utcpClient) CreateEvent(ctx context.Context, event calendar.Event) (calendar.Event, error) {
	raw, err := c.client.CallTool(ctx, "create_event", map[string]any{
		"title":      event.Title,
		"date":       event.Date,
		"start_time": event.StartTime,
		"end_time":   event.EndTime,
	})
	if err != nil {
		return calendar.Event{}, fmt.Errorf("calendar tool error: %w", err)
	}

	var created calendar.Event
	if err := decode(raw, &created); err != nil {
		return calendar.Event{}, err
	}

	return created, nil
}

func (c *utcpClient) ListEvents(ctx context.Context, startDate string, endDate string, maxResults int) ([]calendar.Event, error) {
	raw, err := c.client.CallTool(ctx, "list_events", map[string]any{
		"start_date":  startDate,
		"end_date":    endDate,
		"max_results": maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("calendar tool error: %w", err)
	}

	var events []calendar.Event
	if err := decode(raw, &events); err != nil {
		return nil, err
	}

	return events, nil
}

func (c *utcpClient) CancelEvent(ctx context.Context, eventId string) error {
	if _, err := c.client.CallTool(ctx, "cancel_event", map[string]any{
		"event_id": eventId,
	}); err != nil {
		return fmt.Errorf("calendar tool error: %w", err)
	}

	return nil
}

func decode(raw any, out any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("unexpected calendar tool response: %w", err)
	}

	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("unexpected calendar tool response: %w", err)
	}

	return nil
}

func createTempConfig(addrs []string) (string, error) {
	type providerConfig struct {
		Type    string            `json:"provider_type"`
		Name    string            `json:"name"`
		URL     string            `json:"url"`
		Method  string            `json:"http_method"`
		Headers map[string]string `json:"headers"`
	}

	config := struct {
		Providers []providerConfig `json:"providers"`
	}{}

	for _, u := range addrs {
		parsed, err := url.Parse(u)
		if err != nil {
			return "", err
		}
		config.Providers = append(config.Providers, providerConfig{
			Type:   "http",
			Name:   parsed.Hostname(),
			URL:    u,
			Method: "POST",
			Headers: map[string]string{
				"Content-Type": "application/json",
			},
		})
	}

	f, err := os.CreateTemp("", "utcp_config_*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(config); err != nil {
		return "", err
	}

	return f.Name(), nil
}

func NewClient(opts ...Option) (calendar.Client, error) {
	options := NewOptions(opts...)

	c := &utcpClient{
		options: options,
	}

	var configPath string

	if len(options.Addrs) > 0 {
		tmpPath, err := createTempConfig(options.Addrs)
		if err != nil {
			return nil, err
		}
		configPath = tmpPath
		defer os.Remove(tmpPath)
	}

	client, err := goutcp.NewUTCPClient(
		options.Context,
		&goutcp.UtcpClientConfig{
			ProvidersFilePath: configPath,
		},
		nil,
		nil,
	)
	if err != nil {
		return nil, err
	}

	c.client = client

	return c, nil
}
