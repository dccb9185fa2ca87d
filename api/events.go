/*
events.go - Websocket feed of confirmed state changes

PURPOSE:
  Pushes persisted ride transitions and ledger entries to connected
  riders. The feed implements ride.Notifier, so it only ever sees
  changes AFTER the store commit - the UI renders confirmed state, it
  never mutates optimistically.

PROTOCOL:
  GET /ws/riders/{id} upgrades to a websocket. The server then sends
  JSON frames:

    {"type": "ride_update", "data": <RideDTO>}
    {"type": "transaction", "data": <TransactionDTO>}

  The client sends nothing; inbound frames are drained only to detect
  disconnects.

DELIVERY:
  Best-effort. A rider with a full or dead connection misses frames and
  re-syncs over REST on reconnect. The feed never blocks a lifecycle
  transition: sends go through a buffered channel and fall through when
  the buffer is full.

SECURITY NOTE:
  No authentication; the rider id in the URL is trusted. Same posture as
  the REST endpoints.

SEE ALSO:
  - ride/lifecycle.go: Notifier contract and call sites
  - server.go: Route registration
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/riide/ride-engine/ledger"
	"github.com/riide/ride-engine/ride"
)

const (
	// pingInterval is how often the server pings each client.
	pingInterval = 30 * time.Second

	// pongWait is how long a client may stay silent before the
	// connection is considered dead.
	pongWait = 60 * time.Second

	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// sendBuffer is the per-client outbound frame buffer.
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Open origins, same posture as the CORS config.
		return true
	},
}

// =============================================================================
// FEED
// =============================================================================

// Feed fans confirmed changes out to per-rider websocket clients.
type Feed struct {
	mu      sync.RWMutex
	clients map[ledger.AccountID]map[*feedClient]struct{}
}

func NewFeed() *Feed {
	return &Feed{
		clients: make(map[ledger.AccountID]map[*feedClient]struct{}),
	}
}

type feedClient struct {
	riderID ledger.AccountID
	conn    *websocket.Conn
	send    chan []byte
}

// ServeRider upgrades the request and streams the rider's events until
// the connection drops.
func (f *Feed) ServeRider(w http.ResponseWriter, r *http.Request) {
	riderID := ledger.AccountID(chi.URLParam(r, "id"))
	if riderID == "" {
		http.Error(w, "missing rider id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Feed] upgrade failed for %s: %v", riderID, err)
		return
	}

	c := &feedClient{
		riderID: riderID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
	f.register(c)

	go c.writePump()
	go func() {
		c.readPump()
		f.unregister(c)
	}()
}

func (f *Feed) register(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.clients[c.riderID]
	if !ok {
		set = make(map[*feedClient]struct{})
		f.clients[c.riderID] = set
	}
	set[c] = struct{}{}
}

func (f *Feed) unregister(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if set, ok := f.clients[c.riderID]; ok {
		if _, present := set[c]; present {
			delete(set, c)
			close(c.send)
			if len(set) == 0 {
				delete(f.clients, c.riderID)
			}
		}
	}
}

// sendTo queues a frame for every client of one rider. Full buffers drop
// the frame rather than block the caller.
func (f *Feed) sendTo(riderID ledger.AccountID, eventType string, data any) {
	frame, err := json.Marshal(map[string]any{
		"type": eventType,
		"data": data,
	})
	if err != nil {
		log.Printf("[Feed] marshal failed for %s: %v", eventType, err)
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for c := range f.clients[riderID] {
		select {
		case c.send <- frame:
		default:
			// Slow consumer; it re-syncs over REST on reconnect.
		}
	}
}

// =============================================================================
// NOTIFIER IMPLEMENTATION (ride.Notifier)
// =============================================================================

// RideChanged pushes a confirmed ride transition to its rider.
func (f *Feed) RideChanged(r ride.Ride) {
	f.sendTo(r.RiderID, "ride_update", toRideDTO(r))
}

// EntryAppended pushes a confirmed ledger entry to its account holder.
func (f *Feed) EntryAppended(e ledger.Entry) {
	f.sendTo(e.AccountID, "transaction", toTransactionDTO(e))
}

var _ ride.Notifier = (*Feed)(nil)

// =============================================================================
// CONNECTION PUMPS
// =============================================================================

// readPump drains inbound frames to surface disconnects and pong replies.
func (c *feedClient) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump writes queued frames and keepalive pings.
func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
