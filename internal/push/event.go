package push

import (
	"encoding/json"
	"fmt"
)

// Domain names carried by push events.
const (
	DomainConversation = "conversation"
	DomainRelationship = "relationship"
)

// Change kinds for conversation-domain events.
const (
	KindNew    = "NEW"
	KindUpdate = "UPDATE"
	KindDelete = "DELETE"
)

// Event is a decoded push notification: a low-payload signal that something
// changed on the server, without the changed data itself.
type Event struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// envelope is the wire frame around each event.
type envelope struct {
	Data Event `json:"data"`
}

// Decode parses one websocket frame into an Event.
func Decode(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Event{}, fmt.Errorf("decode push frame: %w", err)
	}
	if env.Data.Name == "" {
		return Event{}, fmt.Errorf("push frame missing event name")
	}
	return env.Data, nil
}
