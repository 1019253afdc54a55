package bus

// Role classifies the sender side of an inbound message.
const (
	RoleUser  = "user"  // end-user (web chat or external platform)
	RoleAgent = "agent" // support staff (agent channel)
)

// InboundMessage is a normalized message received from a channel.
type InboundMessage struct {
	Channel     string `json:"channel"`
	SenderID    string `json:"sender_id"`
	ChatID      string `json:"chat_id"`
	DisplayName string `json:"display_name,omitempty"`
	Content     string `json:"content"`
	FileURL     string `json:"file_url,omitempty"`
	Role        string `json:"role"` // RoleUser or RoleAgent

	// Agent command, pre-parsed by the agent channel ("register", "chats",
	// "take", "release", "whoami"). Empty for free-text messages.
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// OutboundMessage is a message to be delivered to a channel.
type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
	FileURL string `json:"file_url,omitempty"`
}

// Event is a server-side event broadcast to gateway WebSocket clients.
type Event struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventHandler handles a broadcast event.
type EventHandler func(Event)

// EventPublisher abstracts event broadcast + subscription. Used by the router
// and gateway to decouple from the concrete MessageBus.
type EventPublisher interface {
	Subscribe(id string, handler EventHandler)
	Unsubscribe(id string)
	Broadcast(event Event)
}
