// internal/websocket/handler/payment.go
package handler

import (
	"context"
	"fmt"

	"duka-service/internal/domain/subscription"
	wstypes "duka-service/internal/domain/websocket"
	xerrors "duka-service/internal/pkg/errors"
	ws "duka-service/internal/websocket"

	"go.uber.org/zap"
)

type PaymentPoller interface {
	PollStatus(ctx context.Context, shopID, paymentID int64) (*subscription.PaymentStatusResponse, error)
}

// PaymentHandler lets a dashboard waiting on a USSD push ask for the payment
// status over the socket instead of polling HTTP.
type PaymentHandler struct {
	poller PaymentPoller
	logger *zap.Logger
}

func NewPaymentHandler(poller PaymentPoller, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{poller: poller, logger: logger}
}

func (h *PaymentHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypePaymentCheck}
}

func (h *PaymentHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypePaymentCheck:
		return h.handleCheck(ctx, client, msg)
	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

func (h *PaymentHandler) handleCheck(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req wstypes.PaymentCheckRequest
	if err := ws.DecodeData(msg.Data, &req); err != nil || req.PaymentID <= 0 {
		client.SendError("invalid_request", "payment_id is required", "")
		return nil
	}

	resp, err := h.poller.PollStatus(ctx, client.ShopID(), req.PaymentID)
	if err != nil {
		h.logger.Warn("websocket payment check failed",
			zap.Int64("shop_id", client.ShopID()),
			zap.Int64("payment_id", req.PaymentID),
			zap.Error(err),
		)
		client.SendError("payment_check_failed", xerrors.PublicMessage(err, "Could not check the payment"), "")
		return nil
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypePaymentStatus, resp))
	return nil
}
