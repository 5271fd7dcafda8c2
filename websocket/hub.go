package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
)

// Message types
const (
	MessageTypeConnected    = "connected"
	MessageTypeNotification = "notification"
)

const writeWait = 10 * time.Second

// ErrNotConnected is returned when the user has no open connection
var ErrNotConnected = errors.New("user not connected")

// Message is what the server writes on a socket
type Message struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	UserID  string      `json:"userID,omitempty"`
}

// Client is one open connection of a user
type Client struct {
	UserID primitive.ObjectID
	conn   *websocket.Conn
	mu     sync.Mutex
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// Hub maintains the set of active clients. A user may hold several connections.
type Hub struct {
	clients map[primitive.ObjectID]map[*Client]struct{}
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[primitive.ObjectID]map[*Client]struct{}),
		logger:  logger.Named("ws"),
	}
}

// Run blocks until ctx is done, then closes every connection
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.clients {
		for c := range set {
			c.conn.Close()
		}
		delete(h.clients, id)
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	c.conn.Close()
}

// Connections reports how many sockets userID has open
func (h *Hub) Connections(userID primitive.ObjectID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// SendToUser writes msg to every connection of userID
func (h *Hub) SendToUser(userID primitive.ObjectID, msg Message) error {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return ErrNotConnected
	}
	var errs []error
	for _, c := range targets {
		if err := c.send(msg); err != nil {
			errs = append(errs, err)
			h.unregister(c)
		}
	}
	if len(errs) == len(targets) {
		return errors.Join(errs...)
	}
	return nil
}

// Deliver pushes a stored notification to the recipient's open sockets
func (h *Hub) Deliver(_ context.Context, n *models.Notification, recipient *models.User) error {
	return h.SendToUser(recipient.ID, Message{
		Type:    MessageTypeNotification,
		Message: n.Body,
		Data:    n,
	})
}
