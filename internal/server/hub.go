package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	gamelog "gallop/internal/log"
	"gallop/internal/sim"
	"gallop/internal/wire"
)

// Hub fans race frames out to websocket clients and applies the host
// commands they send.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader

	sim *sim.Simulation
	log *gamelog.Logger
}

func NewHub(simulation *sim.Simulation, l *gamelog.Logger) *Hub {
	if l == nil {
		l = gamelog.Discard()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sim: simulation,
		log: l,
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			h.log.Warnf("failed to write to client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// send writes to a single client. Writes share the hub lock so a client
// never sees two concurrent writers.
func (h *Hub) send(conn *websocket.Conn, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		h.log.Warnf("failed to write to client: %v", err)
	}
}

// BroadcastSnapshot sends a game:state frame to every client.
func (h *Hub) BroadcastSnapshot(snap sim.Snapshot) {
	payload, err := wire.EncodeSnapshot(snap)
	if err != nil {
		h.log.Errorf("failed to encode snapshot: %v", err)
		return
	}
	h.broadcast(payload)
}

// BroadcastResult sends the game:finished frame to every client.
func (h *Hub) BroadcastResult(r sim.Result) {
	payload, err := wire.EncodeResult(r)
	if err != nil {
		h.log.Errorf("failed to encode result: %v", err)
		return
	}
	h.broadcast(payload)
}

// broadcastProgress reports loading progress, and game:ready once every lane
// is loaded.
func (h *Hub) broadcastProgress() {
	progress := h.sim.Progress()
	if payload, err := wire.EncodeProgress(progress); err == nil {
		h.broadcast(payload)
	}
	if progress < 100 {
		return
	}
	if payload, err := wire.EncodeEvent(wire.TypeReady, nil); err == nil {
		h.broadcast(payload)
	}
}

func (h *Hub) apply(cmd wire.Command) error {
	switch cmd.Type {
	case wire.TypeStart:
		return h.sim.Start(cmd.Start)
	case wire.TypePause:
		return h.sim.Pause()
	case wire.TypeEnd:
		return h.sim.End()
	case wire.TypeLoaded:
		if err := h.sim.MarkLoaded(cmd.Lane); err != nil {
			return err
		}
		h.broadcastProgress()
	}
	return nil
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	h.add(conn)
	defer h.remove(conn)

	// Send the current state immediately.
	if payload, err := wire.EncodeProgress(h.sim.Progress()); err == nil {
		h.send(conn, payload)
	}
	if payload, err := wire.EncodeSnapshot(h.sim.Snapshot()); err == nil {
		h.send(conn, payload)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.log.Debugf("race stream read error: %v", err)
			return
		}

		cmd, err := wire.DecodeCommand(data)
		if err != nil {
			h.log.Warnf("unable to decode command: %v", err)
			h.replyError(conn, err)
			continue
		}

		if err := h.apply(cmd); err != nil {
			h.log.Warnf("command %s rejected: %v", cmd.Type, err)
			h.replyError(conn, err)
			continue
		}
		h.BroadcastSnapshot(h.sim.Snapshot())
	}
}

func (h *Hub) replyError(conn *websocket.Conn, cmdErr error) {
	payload, err := wire.EncodeError(cmdErr)
	if err != nil {
		return
	}
	h.send(conn, payload)
}
