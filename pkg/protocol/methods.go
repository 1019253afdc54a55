package protocol

// RPC method name constants for the gateway WebSocket API.
const (
	// System
	MethodConnect = "connect"
	MethodPing    = "ping"

	// Chat (web-origin conversations)
	MethodChatSend    = "chat.send"
	MethodChatHistory = "chat.history"

	// Sessions (dashboard)
	MethodSessionsList = "sessions.list"
)
