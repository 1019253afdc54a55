package protocol

// WebSocket event names pushed from server to client.
const (
	EventChatMessage         = "chat.message"
	EventSessionCreated      = "session.created"
	EventMessageAppended     = "message.appended"
	EventModeChanged         = "mode.changed"
	EventEscalationRequested = "escalation.requested"
	EventHealth              = "health"
	EventShutdown            = "shutdown"
)
