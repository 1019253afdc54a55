// Package agents tracks the human support staff known to the relay: who has
// registered, where to reach them, and which sessions each one currently owns.
package agents

import (
	"sort"
	"sync"
	"time"
)

// Agent is one registered support staff member.
type Agent struct {
	ID         string    // sender ID on the support channel
	Name       string    // display name, best-effort
	Channel    string    // channel name replies go through ("telegram")
	Address    string    // chat ID on that channel
	Registered time.Time
}

// Hub is the registry of support agents and their open chats.
type Hub struct {
	mu     sync.RWMutex
	agents map[string]*Agent
	// owned[agentID] is the agent's open session keys in takeover order,
	// most recent last.
	owned map[string][]string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		agents: make(map[string]*Agent),
		owned:  make(map[string][]string),
	}
}

// Register adds or refreshes an agent. Re-registering updates name/address.
func (h *Hub) Register(id, name, channel, address string) Agent {
	h.mu.Lock()
	defer h.mu.Unlock()

	if a, ok := h.agents[id]; ok {
		a.Name = name
		a.Channel = channel
		a.Address = address
		return *a
	}
	a := &Agent{ID: id, Name: name, Channel: channel, Address: address, Registered: time.Now()}
	h.agents[id] = a
	return *a
}

// Get returns the agent by ID.
func (h *Hub) Get(id string) (Agent, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	a, ok := h.agents[id]
	if !ok {
		return Agent{}, false
	}
	return *a, true
}

// IsRegistered reports whether the agent has registered.
func (h *Hub) IsRegistered(id string) bool {
	_, ok := h.Get(id)
	return ok
}

// All returns every registered agent, oldest registration first.
func (h *Hub) All() []Agent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Agent, 0, len(h.agents))
	for _, a := range h.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Registered.Before(out[j].Registered) })
	return out
}

// Assign records that the agent took over a session. Idempotent per pair.
func (h *Hub) Assign(agentID, sessionKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	keys := h.owned[agentID]
	for i, k := range keys {
		if k == sessionKey {
			// Move to the end: it becomes the most recent.
			keys = append(append(keys[:i:i], keys[i+1:]...), sessionKey)
			h.owned[agentID] = keys
			return
		}
	}
	h.owned[agentID] = append(keys, sessionKey)
}

// Unassign removes a session from whichever agent owns it.
func (h *Hub) Unassign(sessionKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, keys := range h.owned {
		for i, k := range keys {
			if k == sessionKey {
				h.owned[id] = append(keys[:i:i], keys[i+1:]...)
				return
			}
		}
	}
}

// Owned returns the agent's open session keys, most recent takeover last.
func (h *Hub) Owned(agentID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	keys := h.owned[agentID]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Current returns the agent's most recently taken session key, or "".
func (h *Hub) Current(agentID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	keys := h.owned[agentID]
	if len(keys) == 0 {
		return ""
	}
	return keys[len(keys)-1]
}
