package models

// Message is one addressed email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notification groups the messages produced by one lifecycle event. Key identifies the
// transition (not the delivery) so redelivered events map to the same ledger entries.
type Notification struct {
	Key      string
	Template string
	Messages []Message
}

// DeliveryStatus is the per-recipient result of a dispatch.
type DeliveryStatus string

const (
	DeliverySent       DeliveryStatus = "sent"
	DeliveryFailed     DeliveryStatus = "failed"
	DeliverySuppressed DeliveryStatus = "suppressed"
)

// DeliveryOutcome records what happened to one message.
type DeliveryOutcome struct {
	To       string
	Status   DeliveryStatus
	Attempts int
	Err      error
}
