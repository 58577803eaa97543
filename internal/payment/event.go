package payment

import (
	"encoding/json"
	"fmt"
)

const EventCheckoutCompleted = "checkout.session.completed"

// Event is a provider-signed webhook payload.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the completed-session object carried by a
// checkout.session.completed event.
type CheckoutSession struct {
	ID            string            `json:"id"`
	CustomerEmail string            `json:"customer_email"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
	Shipping      struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"shipping"`
}

func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("payment: parse event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("payment: event missing type")
	}
	return &ev, nil
}

func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var s CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &s); err != nil {
		return nil, fmt.Errorf("payment: parse checkout session: %w", err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("payment: checkout session missing id")
	}
	return &s, nil
}
