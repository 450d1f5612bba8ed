// Package server coordinates client registration, message broadcast, and
// connection cleanup for the chat system via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/haneul-lab/lobbychat/internal/logging"
	"github.com/haneul-lab/lobbychat/internal/messages"
	"github.com/haneul-lab/lobbychat/internal/metrics"
)

// submission is a chat message accepted from an authenticated connection,
// waiting for the hub to stamp and route it.
type submission struct {
	author string
	text   string
}

// Hub owns the live-connection registry and routes every broadcast. It is
// the sole author of server timestamps and the sole fan-out point, so all
// connections observe messages in one global order. Persistence of each
// message is scheduled fire-and-forget: a store failure is logged and
// counted but never blocks or fails the fan-out.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan submission
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	store        messages.Repository
	storeTimeout time.Duration
	room         string
	log          logging.Logger
	metrics      *metrics.Collector
}

// NewHub creates a Hub persisting accepted messages to store. The returned
// Hub is ready to manage connections once Run is started in a goroutine.
func NewHub(store messages.Repository, storeTimeout time.Duration, log logging.Logger, collector *metrics.Collector) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:      make(map[*Client]bool),
		broadcast:    make(chan submission),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
		store:        store,
		storeTimeout: storeTimeout,
		room:         messages.DefaultRoom,
		log:          log,
		metrics:      collector,
	}
}

// Submit hands an accepted chat message to the hub. The server timestamp is
// assigned inside the run loop, never taken from the client, so stamp order
// and delivery order cannot diverge.
func (h *Hub) Submit(author, text string) {
	select {
	case h.broadcast <- submission{author: author, text: text}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error(context.Background(), "recovered from panic in safeSend", "panic", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, and message broadcasting. This method should be called in
// a separate goroutine as it runs indefinitely.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn(h.ctx, "received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mutex.Unlock()
			if h.metrics != nil {
				h.metrics.ClientConnected()
			}
			h.log.Info(h.ctx, "client registered", "addr", client.addr, "connectionId", client.id, "total", clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closed = true
				clientCount := len(h.clients)
				h.mutex.Unlock()
				// Close the channel after releasing the lock
				close(client.send)
				if h.metrics != nil {
					h.metrics.ClientDisconnected()
				}
				h.log.Info(h.ctx, "client unregistered", "addr", client.addr, "connectionId", client.id, "total", clientCount)
			} else {
				h.mutex.Unlock()
			}

		case sub := <-h.broadcast:
			h.routeMessage(sub)
		}
	}
}

// routeMessage stamps one submission with the authoritative timestamp, fans
// it out to the current registry snapshot, and schedules the durable write.
// Fan-out includes the sender: there is no echo suppression, clients render
// optimistically or tolerate the echo.
func (h *Hub) routeMessage(sub submission) {
	// One clock read per message; broadcast payload and persisted record
	// share it. Truncated to microseconds so the value survives the store's
	// timestamp precision and replays identically.
	stamp := time.Now().UTC().Truncate(time.Microsecond)

	payload, err := encodeEvent(EventChatMessage, ChatBroadcastPayload{
		User: sub.author,
		Text: sub.text,
		Time: FormatTimestamp(stamp),
	})
	if err != nil {
		h.log.Error(h.ctx, "failed to encode broadcast payload", "error", err)
		return
	}

	clients := h.clientSnapshot()
	h.log.Debug(h.ctx, "broadcasting message", "clients", len(clients))

	var failed []*Client
	for _, client := range clients {
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}
	h.removeFailedClients(failed)

	if h.metrics != nil {
		h.metrics.RecordBroadcast()
	}

	go h.persist(sub, stamp)
}

// persist writes the stamped message to the store. It runs detached from
// the submitting connection: a disconnect does not cancel an in-flight
// write, and a write failure is swallowed after logging.
func (h *Hub) persist(sub submission, stamp time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), h.storeTimeout)
	defer cancel()

	msg := &messages.Message{
		Author: sub.author,
		Text:   sub.text,
		Room:   h.room,
		SentAt: stamp,
	}

	if err := h.store.Append(ctx, msg); err != nil {
		if h.metrics != nil {
			h.metrics.RecordStoreError()
		}
		h.log.Error(ctx, "dropping message persistence after store failure", "author", sub.author, "error", err)
	}
}

// clientSnapshot returns a thread-safe snapshot of all current clients. A
// connection joining or leaving mid-broadcast may or may not receive that
// specific message.
func (h *Hub) clientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// removeFailedClients removes clients that failed to receive messages and closes their channels
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			if h.metrics != nil {
				h.metrics.ClientDisconnected()
			}
			h.log.Warn(h.ctx, "client removed due to full send buffer", "addr", client.addr, "connectionId", client.id)
		}
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock
	for _, ch := range channelsToClose {
		close(ch)
	}
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	h.log.Info(h.ctx, "shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					h.log.Error(h.ctx, "error closing client connection", "addr", client.addr, "error", err)
				}
			}
		}
	}

	h.log.Info(h.ctx, "closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info(h.ctx, "initiating hub shutdown")

	h.cancel()

	// Wait for Run() to complete
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info(context.Background(), "hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn(context.Background(), "hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
