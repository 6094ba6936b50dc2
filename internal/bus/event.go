package bus

import "time"

// Event represents a domain event published on the bus.
//
// Kinds are dot-separated, namespaced by the emitting component:
//
//	push.connected, push.disconnected      — push channel lifecycle
//	store.conversations, store.active,
//	store.relationships                    — store snapshots changed
//	message.sent, message.send_failed      — send outcomes
//	session.status_changed                 — state machine transitions
//	app.error                              — foreground failure to surface
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// AppError is the payload of app.error events. Surface controls how a UI
// should present the failure (blocking modal vs transient toast).
type AppError struct {
	Surface string // "modal" or "toast"
	Message string
}

// SendFailure is the payload of message.send_failed events. ConversationID
// is empty when the failed send belonged to a draft.
type SendFailure struct {
	ConversationID string
	DraftLocalID   string
	Reason         string
}
