package contracts

import "time"

type Event struct {
	EventID    string         `json:"event_id"`
	CheckoutID string         `json:"checkout_id"`
	Customer   string         `json:"customer"`
	CreatedAt  time.Time      `json:"created_at"`
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload"`
}

const (
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutFailed    = "checkout.failed"
	EventShipmentCreated   = "shipment.created"
	EventReceiptIssued     = "receipt.issued"
)
