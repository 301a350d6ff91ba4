package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub fans file events out to every open viewer of that file.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // fileID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeOutbox()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Notify sends an event to every viewer of fileID.
func (h *Hub) Notify(fileID, msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event", "error", err, "type", msgType)
		return
	}
	h.broadcastToRoom(fileID, &Message{Type: msgType, FileID: fileID, Payload: data}, "")
}

// Viewers returns the number of clients connected to fileID.
func (h *Hub) Viewers(fileID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[fileID]; ok {
		return len(room.clients)
	}
	return 0
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.FileID]
	if !ok {
		room = NewRoom(client.FileID)
		h.rooms[client.FileID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	welcome, _ := json.Marshal(WelcomePayload{ClientID: client.ClientID})
	client.Send(&Message{Type: TypeWelcome, FileID: client.FileID, Payload: welcome})

	// Send current presence state to new client
	if stateMsg := room.stateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinPayload, _ := json.Marshal(PresenceJoinPayload{ClientID: client.ClientID})
	h.broadcastToRoom(client.FileID, &Message{
		Type:     TypePresenceJoin,
		ClientID: client.ClientID,
		Payload:  joinPayload,
	}, client.ClientID)

	slog.Info("viewer joined", "client", client.ClientID, "file", client.FileID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.FileID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeOutbox()
	room.Forget(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.FileID)
	}
	h.mu.Unlock()

	leavePayload, _ := json.Marshal(PresenceLeavePayload{ClientID: client.ClientID})
	h.broadcastToRoom(client.FileID, &Message{
		Type:     TypePresenceLeave,
		ClientID: client.ClientID,
		Payload:  leavePayload,
	}, "")

	slog.Info("viewer left", "client", client.ClientID, "file", client.FileID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for _, c := range room.clients {
			c.closeOutbox()
		}
		delete(h.rooms, id)
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
		sender.sendError("unknown message type " + msg.Type)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	h.mu.RLock()
	room, ok := h.rooms[sender.FileID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	outPayload, _ := json.Marshal(room.Report(sender.ClientID, presence))
	h.broadcastToRoom(sender.FileID, &Message{
		Type:     TypePresenceUpdate,
		ClientID: sender.ClientID,
		Payload:  outPayload,
	}, sender.ClientID)
}

func (h *Hub) broadcastToRoom(fileID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[fileID]
	if !ok {
		return
	}
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}
