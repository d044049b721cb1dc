package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"duka-service/internal/domain/subscription"
	"duka-service/internal/metrics"
	"duka-service/internal/pkg/clickpesa"
	"duka-service/internal/pkg/clock"
	xerrors "duka-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	msgSystemError       = "System Error: could not start the payment, please try again"
	msgTransactionFailed = "Transaction failed"
	msgAwaiting          = "Waiting for payment confirmation"
)

type PlanStore interface {
	FindByID(ctx context.Context, id int64) (*subscription.Plan, error)
	GetOrCreateBySlug(ctx context.Context, defaults *subscription.Plan) (*subscription.Plan, error)
	ListActive(ctx context.Context) ([]subscription.Plan, error)
}

// Ledger persists subscriptions and payments. OpenCheckout, FailPayment and
// CompletePayment must each be atomic; the transition methods only move a
// payment out of PENDING and report whether they did.
type Ledger interface {
	FindByShop(ctx context.Context, shopID int64) (*subscription.ShopSubscription, error)
	Create(ctx context.Context, sub *subscription.ShopSubscription) error
	FindPayment(ctx context.Context, id int64) (*subscription.Payment, error)
	OpenCheckout(ctx context.Context, co *subscription.Checkout) error
	FailPayment(ctx context.Context, paymentID int64, now time.Time) (*subscription.Payment, bool, error)
	CompletePayment(ctx context.Context, paymentID int64, now time.Time) (*subscription.Payment, *subscription.ShopSubscription, bool, error)
}

type Gateway interface {
	InitiateUSSDPush(ctx context.Context, in clickpesa.PushRequest) (*clickpesa.PushResult, error)
	QueryPaymentStatus(ctx context.Context, reference string) (*clickpesa.StatusResult, error)
}

type Notifier interface {
	NotifyPayment(shopID int64, event *subscription.PaymentEvent)
}

// Reconciler starts subscription payments and settles them against the gateway.
type Reconciler struct {
	plans    PlanStore
	ledger   Ledger
	gateway  Gateway
	notifier Notifier
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewReconciler(
	plans PlanStore,
	ledger Ledger,
	gateway Gateway,
	notifier Notifier,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		plans:    plans,
		ledger:   ledger,
		gateway:  gateway,
		notifier: notifier,
		clock:    clk,
		metrics:  m,
		logger:   logger,
	}
}

// NewReference returns an alphanumeric order reference unique across shops.
func NewReference(shopID int64, now time.Time) string {
	return fmt.Sprintf("SUB%d%s", shopID, ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String())
}

// Initiate opens a PENDING payment for plan/cycle and asks the gateway to push
// a USSD prompt to phone. A payment whose push could not be started is marked
// FAILED before returning.
func (r *Reconciler) Initiate(ctx context.Context, shopID int64, req *subscription.InitiatePaymentRequest) (*subscription.InitiatePaymentResponse, error) {
	if shopID == 0 {
		return nil, xerrors.New(xerrors.ErrNoShop, "No shop found for this account", nil)
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return nil, xerrors.New(xerrors.ErrInvalidInput, "Phone number is required", nil)
	}
	cycle, ok := subscription.ParseBillingCycle(req.BillingCycle)
	if !ok {
		return nil, xerrors.New(xerrors.ErrInvalidInput, "Invalid billing cycle", nil)
	}

	plan, err := r.plans.FindByID(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.New(xerrors.ErrNotFound, "Subscription plan not found", err)
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if !plan.IsActive {
		return nil, xerrors.New(xerrors.ErrInvalidInput, "Subscription plan is not available", nil)
	}
	amount := plan.PriceFor(cycle)
	if amount <= 0 {
		return nil, xerrors.New(xerrors.ErrInvalidInput, fmt.Sprintf("%s does not offer a %s billing cycle", plan.Name, strings.ToLower(string(cycle))), nil)
	}

	now := r.clock.Now()
	co := &subscription.Checkout{
		ShopID: shopID,
		PlanID: plan.ID,
		Cycle:  cycle,
		Now:    now,
		Payment: &subscription.Payment{
			PlanID:        plan.ID,
			Cycle:         cycle,
			Amount:        amount,
			Reference:     NewReference(shopID, now),
			PaymentMethod: subscription.PaymentMethodClickPesa,
			PhoneNumber:   clickpesa.NormalizePhone(phone),
		},
	}
	if err := r.ledger.OpenCheckout(ctx, co); err != nil {
		return nil, fmt.Errorf("failed to open checkout: %w", err)
	}
	payment := co.Payment

	log := r.logger.With(
		zap.Int64("shop_id", shopID),
		zap.Int64("payment_id", payment.ID),
		zap.String("reference", payment.Reference),
	)

	result, err := r.gateway.InitiateUSSDPush(ctx, clickpesa.PushRequest{
		Amount:         amount,
		OrderReference: payment.Reference,
		PhoneNumber:    payment.PhoneNumber,
	})
	if err != nil {
		log.Error("payment push could not be started", zap.Error(err))
		r.fail(ctx, payment, msgSystemError)
		return nil, xerrors.New(xerrors.ErrInternal, msgSystemError, err)
	}
	if !result.Success {
		msg := nonEmpty(result.Message, msgTransactionFailed)
		log.Warn("gateway rejected payment push", zap.String("message", msg))
		r.fail(ctx, payment, msg)
		return nil, xerrors.New(xerrors.ErrGateway, "Payment Gateway Error: "+msg, nil)
	}

	log.Info("payment push sent", zap.Float64("amount", amount), zap.String("cycle", string(cycle)))
	return &subscription.InitiatePaymentResponse{
		PaymentID: payment.ID,
		Reference: payment.Reference,
		Amount:    amount,
		Status:    subscription.PaymentPending,
		Message:   nonEmpty(result.Message, "Confirm the payment on your phone"),
	}, nil
}

// PollStatus asks the gateway about a payment and applies a terminal outcome.
// Anything the gateway cannot confirm either way leaves the payment PENDING.
func (r *Reconciler) PollStatus(ctx context.Context, shopID, paymentID int64) (*subscription.PaymentStatusResponse, error) {
	payment, err := r.ledger.FindPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.New(xerrors.ErrNotFound, "Payment not found", err)
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment.ShopID != shopID {
		return nil, xerrors.New(xerrors.ErrNotFound, "Payment not found", nil)
	}
	if payment.Status.IsTerminal() {
		return r.settled(ctx, payment, "")
	}

	log := r.logger.With(zap.Int64("payment_id", payment.ID), zap.String("reference", payment.Reference))

	status, err := r.gateway.QueryPaymentStatus(ctx, payment.Reference)
	if err != nil {
		log.Error("payment status query misconfigured", zap.Error(err))
		return pending(payment, msgAwaiting), nil
	}
	if !status.Success {
		log.Warn("payment status unavailable", zap.String("message", status.Message))
		return pending(payment, msgAwaiting), nil
	}

	switch status.Outcome {
	case clickpesa.OutcomeSucceeded:
		return r.complete(ctx, payment, log)
	case clickpesa.OutcomeFailed:
		msg := nonEmpty(status.Message, msgTransactionFailed)
		updated, transitioned, err := r.ledger.FailPayment(ctx, payment.ID, r.clock.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to mark payment failed: %w", err)
		}
		if transitioned {
			log.Info("payment failed", zap.String("gateway_status", status.RawStatus))
			r.metrics.ObservePayment(string(subscription.PaymentFailed))
			r.notify(updated, nil, msg)
		}
		return r.settled(ctx, updated, msg)
	default:
		return pending(payment, msgAwaiting), nil
	}
}

func (r *Reconciler) complete(ctx context.Context, payment *subscription.Payment, log *zap.Logger) (*subscription.PaymentStatusResponse, error) {
	updated, sub, transitioned, err := r.ledger.CompletePayment(ctx, payment.ID, r.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to complete payment: %w", err)
	}
	if !transitioned {
		// Settled concurrently.
		return r.settled(ctx, updated, "")
	}

	log.Info("payment completed", zap.Int64("shop_id", sub.ShopID), zap.Time("end_date", sub.EndDate))
	r.metrics.ObservePayment(string(subscription.PaymentCompleted))
	r.notify(updated, sub, "")

	end := sub.EndDate
	return &subscription.PaymentStatusResponse{
		PaymentID: updated.ID,
		Reference: updated.Reference,
		Status:    updated.Status,
		Message:   "Payment confirmed, your subscription is active",
		EndDate:   &end,
	}, nil
}

func (r *Reconciler) settled(ctx context.Context, p *subscription.Payment, msg string) (*subscription.PaymentStatusResponse, error) {
	out := &subscription.PaymentStatusResponse{
		PaymentID: p.ID,
		Reference: p.Reference,
		Status:    p.Status,
		Message:   msg,
	}
	switch p.Status {
	case subscription.PaymentCompleted:
		if out.Message == "" {
			out.Message = "Payment confirmed, your subscription is active"
		}
		if sub, err := r.ledger.FindByShop(ctx, p.ShopID); err == nil {
			end := sub.EndDate
			out.EndDate = &end
		}
	case subscription.PaymentFailed:
		out.Message = nonEmpty(out.Message, msgTransactionFailed)
	}
	return out, nil
}

func (r *Reconciler) fail(ctx context.Context, p *subscription.Payment, msg string) {
	// The request context may already be done; the row must not stay PENDING.
	ctx = context.WithoutCancel(ctx)
	updated, transitioned, err := r.ledger.FailPayment(ctx, p.ID, r.clock.Now())
	if err != nil {
		r.logger.Error("failed to mark payment failed",
			zap.Int64("payment_id", p.ID),
			zap.Error(err),
		)
		return
	}
	if transitioned {
		r.metrics.ObservePayment(string(subscription.PaymentFailed))
		r.notify(updated, nil, msg)
	}
}

func (r *Reconciler) notify(p *subscription.Payment, sub *subscription.ShopSubscription, msg string) {
	if r.notifier == nil {
		return
	}
	event := &subscription.PaymentEvent{
		Type:      subscription.EventPaymentFailed,
		PaymentID: p.ID,
		Reference: p.Reference,
		Status:    p.Status,
		Message:   msg,
	}
	if p.Status == subscription.PaymentCompleted {
		event.Type = subscription.EventPaymentCompleted
		if sub != nil {
			end := sub.EndDate
			event.EndDate = &end
		}
	}
	r.notifier.NotifyPayment(p.ShopID, event)
}

func pending(p *subscription.Payment, msg string) *subscription.PaymentStatusResponse {
	return &subscription.PaymentStatusResponse{
		PaymentID: p.ID,
		Reference: p.Reference,
		Status:    subscription.PaymentPending,
		Message:   msg,
	}
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
