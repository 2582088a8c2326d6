package billing

import (
	"encoding/json"
	"fmt"
)

// EventKind discriminates the recognized webhook event types.
type EventKind string

const (
	EventInvoicePaid    EventKind = "invoice.paid"
	EventInvoiceExpired EventKind = "invoice.expired"
	EventInvoiceFailed  EventKind = "invoice.failed"

	// EventUnrecognized covers any other discriminator value. Such events
	// are acknowledged with 200 but produce no mutation.
	EventUnrecognized EventKind = "unrecognized"
)

// Event is a validated webhook event.
type Event struct {
	Kind       EventKind
	InvoiceID  string // provider invoice id, idempotency key
	ExternalID string // provider-side id that must resolve to a user id
	PayerEmail string // payer contact, required by the provider contract
}

// rawEvent mirrors the provider's loosely-typed JSON body.
type rawEvent struct {
	Event      string `json:"event"`
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	PayerEmail string `json:"payer_email"`
}

// ParseEvent validates a webhook body into an Event. Recognized event kinds
// require the invoice id, external id and payer email before any dispatch
// happens; unrecognized kinds carry no requirements since they are no-ops.
func ParseEvent(payload []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if raw.Event == "" {
		return Event{}, fmt.Errorf("%w: missing event discriminator", ErrInvalidPayload)
	}

	kind := EventKind(raw.Event)
	switch kind {
	case EventInvoicePaid, EventInvoiceExpired, EventInvoiceFailed:
	default:
		return Event{Kind: EventUnrecognized}, nil
	}

	if raw.ID == "" {
		return Event{}, fmt.Errorf("%w: missing invoice id for %s", ErrInvalidPayload, kind)
	}
	if raw.ExternalID == "" {
		return Event{}, fmt.Errorf("%w: missing external id for %s", ErrInvalidPayload, kind)
	}
	if raw.PayerEmail == "" {
		return Event{}, fmt.Errorf("%w: missing payer email for %s", ErrInvalidPayload, kind)
	}

	return Event{
		Kind:       kind,
		InvoiceID:  raw.ID,
		ExternalID: raw.ExternalID,
		PayerEmail: raw.PayerEmail,
	}, nil
}
