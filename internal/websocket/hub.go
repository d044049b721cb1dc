// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	"duka-service/internal/domain/subscription"
	wstypes "duka-service/internal/domain/websocket"

	"go.uber.org/zap"
)

// Hub fans server events out to the dashboards connected for each shop.
type Hub struct {
	// Registered clients by shop ID
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	stopOnce   sync.Once

	handlerRegistry *HandlerRegistry
	logger          *zap.Logger
}

type BroadcastMessage struct {
	ShopIDs []int64 // nil means every connected shop
	Channel wstypes.ChannelType
	Message *wstypes.WSMessage
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[int64]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		logger:          logger,
	}
}

func (h *Hub) RegisterHandler(handler MessageHandler) error {
	return h.handlerRegistry.Register(handler)
}

// HandleClientMessage delegates to a registered handler. handled is false
// when no handler claims the event type.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (handled bool, err error) {
	handler, exists := h.handlerRegistry.Lookup(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// Register hands a connected client to the hub. A stopped hub closes it.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		client.Close()
		return ErrHubStopped
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.shopID] == nil {
		h.clients[client.shopID] = make(map[*Client]bool)
	}
	h.clients[client.shopID][client] = true
	total := h.totalClients()
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.Int64("shop_id", client.shopID),
		zap.Int64("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"shop_id":  client.shopID,
		"user_id":  client.userID,
		"role":     client.role,
		"channels": client.Channels(),
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.shopID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)
	client.Close()
	if len(clients) == 0 {
		delete(h.clients, client.shopID)
	}

	h.logger.Info("websocket client disconnected",
		zap.Int64("shop_id", client.shopID),
		zap.Int64("user_id", client.userID),
		zap.Int("total", h.totalClients()),
	)
}

// BroadcastMessage delivers msg synchronously to subscribed clients.
func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deliver := func(clients map[*Client]bool) {
		for client := range clients {
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}

	if msg.ShopIDs == nil {
		for _, clients := range h.clients {
			deliver(clients)
		}
		return
	}
	for _, shopID := range msg.ShopIDs {
		deliver(h.clients[shopID])
	}
}

// publish queues msg for Run without ever blocking the caller.
func (h *Hub) publish(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message",
			zap.String("type", string(msg.Message.Type)),
			zap.Int64s("shop_ids", msg.ShopIDs),
		)
	}
}

// NotifyPayment pushes a payment transition to the shop's dashboards.
func (h *Hub) NotifyPayment(shopID int64, event *subscription.PaymentEvent) {
	h.publish(&BroadcastMessage{
		ShopIDs: []int64{shopID},
		Channel: wstypes.ChannelPayments,
		Message: wstypes.NewMessage(wstypes.EventType(event.Type), event),
	})
}

func (h *Hub) ConnectedClients(shopID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[shopID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// totalClients must be called with mu held.
func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for shopID, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, shopID)
	}
}
