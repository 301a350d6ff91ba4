package collab

import (
	"encoding/json"
	"log/slog"
	"maps"
	"sync"
)

// Room is the set of viewers of one file and what each reported about itself.
// clients is guarded by the hub's lock; presence has its own.
type Room struct {
	fileID  string
	clients map[string]*Client // clientID -> client

	mu       sync.RWMutex
	presence map[string]*PresencePayload // clientID -> last report
}

func NewRoom(fileID string) *Room {
	return &Room{
		fileID:   fileID,
		clients:  make(map[string]*Client),
		presence: make(map[string]*PresencePayload),
	}
}

// Report records what a viewer is looking at and returns the stored report.
// The page is clamped to non-negative; 0 means unknown.
func (r *Room) Report(clientID string, p PresencePayload) PresencePayload {
	p.Page = max(p.Page, 0)
	stored := p
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence[clientID] = &stored
	return p
}

func (r *Room) Forget(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.presence, clientID)
}

// stateMessage snapshots every viewer's report for a late joiner.
func (r *Room) stateMessage() *Message {
	r.mu.RLock()
	snapshot := maps.Clone(r.presence)
	r.mu.RUnlock()

	payload, err := json.Marshal(PresenceStatePayload{Presences: snapshot})
	if err != nil {
		slog.Error("marshal presence state", "error", err, "file", r.fileID)
		return nil
	}
	return &Message{Type: TypePresenceState, FileID: r.fileID, Payload: payload}
}
