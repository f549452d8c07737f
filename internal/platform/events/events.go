// Package events publishes submission events for downstream consumers (CRM sync,
// notifications to the sales team). Publishing is best effort: callers log failures and
// never fail a submission because of them.
package events

import (
	"context"
	"strings"
	"time"
)

const (
	TypeOrderSubmitted = "order.submitted"
	TypeLeadCaptured   = "lead.captured"
)

// Event is the envelope published on every transport.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`
	Simulated  bool              `json:"simulated"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Payload    any               `json:"payload"`
}

// Publisher delivers events to a transport.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Ping(ctx context.Context) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Ping(context.Context) error           { return nil }
func (NopPublisher) Close() error                         { return nil }

func attributes(event Event) map[string]string {
	attrs := map[string]string{
		"eventType": event.Type,
		"simulated": "false",
	}
	if event.Simulated {
		attrs["simulated"] = "true"
	}
	if id := strings.TrimSpace(event.ID); id != "" {
		attrs["eventId"] = id
	}
	for key, value := range event.Attributes {
		if v := strings.TrimSpace(value); v != "" {
			attrs[key] = v
		}
	}
	return attrs
}
