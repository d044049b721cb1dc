package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"duka-service/internal/domain/subscription"
	wstypes "duka-service/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoHandler struct{}

func (echoHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypePaymentCheck}
}

func (echoHandler) HandleMessage(_ context.Context, client *Client, msg *wstypes.WSMessage) error {
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypePaymentStatus, map[string]int64{"shop_id": client.ShopID()}))
	return nil
}

// serve upgrades every request and registers the client for ?shop=N.
func serve(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shopID, _ := strconv.ParseInt(r.URL.Query().Get("shop"), 10, 64)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, &ClientAuth{UserID: 1, ShopID: shopID, Role: "owner"})
		if err := hub.Register(client); err != nil {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, shopID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?shop=" + strconv.FormatInt(shopID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	msg := read(t, conn)
	require.Equal(t, wstypes.EventTypeConnected, msg.Type)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) *wstypes.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := wstypes.ParseMessage(data)
	require.NoError(t, err)
	return msg
}

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestNotifyPaymentReachesOnlyThatShop(t *testing.T) {
	hub := newRunningHub(t)
	srv := serve(t, hub)

	shop1 := dial(t, srv, 1)
	shop2 := dial(t, srv, 2)
	require.Eventually(t, func() bool { return hub.TotalClients() == 2 }, 5*time.Second, 10*time.Millisecond)

	hub.NotifyPayment(1, &subscription.PaymentEvent{
		Type:      subscription.EventPaymentCompleted,
		PaymentID: 11,
		Reference: "SUB1ABC",
		Status:    subscription.PaymentCompleted,
	})
	hub.NotifyPayment(2, &subscription.PaymentEvent{
		Type:      subscription.EventPaymentFailed,
		PaymentID: 22,
		Status:    subscription.PaymentFailed,
	})

	got := read(t, shop1)
	assert.Equal(t, wstypes.EventTypePaymentCompleted, got.Type)
	data := got.Data.(map[string]interface{})
	assert.Equal(t, float64(11), data["payment_id"])
	assert.Equal(t, "SUB1ABC", data["reference"])

	got = read(t, shop2)
	assert.Equal(t, wstypes.EventTypePaymentFailed, got.Type)
	assert.Equal(t, float64(22), got.Data.(map[string]interface{})["payment_id"])
}

func TestUnsubscribedClientMissesPaymentEvents(t *testing.T) {
	hub := newRunningHub(t)
	srv := serve(t, hub)
	conn := dial(t, srv, 5)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "unsubscribe",
		"data": map[string]interface{}{"channels": []string{"payments"}},
	}))
	assert.Equal(t, wstypes.EventTypeUnsubscribe, read(t, conn).Type)

	hub.BroadcastMessage(&BroadcastMessage{
		ShopIDs: []int64{5},
		Channel: wstypes.ChannelPayments,
		Message: wstypes.NewMessage(wstypes.EventTypePaymentCompleted, nil),
	})
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	// a delivered payment event would have been queued ahead of the pong
	assert.Equal(t, wstypes.EventTypePong, read(t, conn).Type)
}

func TestRegisteredHandlerAndUnknownEvents(t *testing.T) {
	hub := newRunningHub(t)
	require.NoError(t, hub.RegisterHandler(echoHandler{}))
	srv := serve(t, hub)
	conn := dial(t, srv, 9)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "payment:check"}))
	got := read(t, conn)
	assert.Equal(t, wstypes.EventTypePaymentStatus, got.Type)
	assert.Equal(t, float64(9), got.Data.(map[string]interface{})["shop_id"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "teleport"}))
	assert.Equal(t, wstypes.EventTypeError, read(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, wstypes.EventTypeError, read(t, conn).Type)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub := newRunningHub(t)
	srv := serve(t, hub)
	conn := dial(t, srv, 3)
	require.Eventually(t, func() bool { return hub.ConnectedClients(3) == 1 }, 5*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ConnectedClients(3) == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestNotifyNeverBlocksWithoutRun(t *testing.T) {
	hub := NewHub(zap.NewNop())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.NotifyPayment(1, &subscription.PaymentEvent{Type: subscription.EventPaymentCompleted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("NotifyPayment blocked")
	}
}

func TestRegisterAfterShutdown(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	client := NewClient(hub, nil, &ClientAuth{ShopID: 1})
	assert.ErrorIs(t, hub.Register(client), ErrHubStopped)
}

type pingHandler struct{}

func (pingHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypePaymentFailed, wstypes.EventTypePing}
}

func (pingHandler) HandleMessage(context.Context, *Client, *wstypes.WSMessage) error { return nil }

func TestRegistryRejectsBuiltinAndDuplicateEvents(t *testing.T) {
	reg := NewHandlerRegistry()

	require.Error(t, reg.Register(pingHandler{}))
	assert.Empty(t, reg.Events(), "a rejected handler claims nothing")

	require.NoError(t, reg.Register(echoHandler{}))
	require.Error(t, reg.Register(echoHandler{}))
	assert.Equal(t, []wstypes.EventType{wstypes.EventTypePaymentCheck}, reg.Events())

	_, ok := reg.Lookup(wstypes.EventTypePaymentCheck)
	assert.True(t, ok)
}
