package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"duka-service/internal/domain/subscription"
	"duka-service/internal/pkg/clickpesa"
	"duka-service/internal/pkg/clock"
	xerrors "duka-service/internal/pkg/errors"
	"duka-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)

type fakeGateway struct {
	push      *clickpesa.PushResult
	pushErr   error
	status    *clickpesa.StatusResult
	statusErr error

	pushes  atomic.Int32
	queries atomic.Int32
}

func (g *fakeGateway) InitiateUSSDPush(_ context.Context, _ clickpesa.PushRequest) (*clickpesa.PushResult, error) {
	g.pushes.Add(1)
	if g.pushErr != nil {
		return nil, g.pushErr
	}
	if g.push == nil {
		return &clickpesa.PushResult{Success: true, TransactionID: "TX1", Status: "PROCESSING"}, nil
	}
	return g.push, nil
}

func (g *fakeGateway) QueryPaymentStatus(_ context.Context, _ string) (*clickpesa.StatusResult, error) {
	g.queries.Add(1)
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return g.status, nil
}

func gatewayStatus(raw string) *clickpesa.StatusResult {
	return &clickpesa.StatusResult{Success: true, Found: true, Outcome: clickpesa.NormalizeStatus(raw), RawStatus: raw}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []*subscription.PaymentEvent
	shops  []int64
}

func (n *recordingNotifier) NotifyPayment(shopID int64, event *subscription.PaymentEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shops = append(n.shops, shopID)
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type reconcilerFixture struct {
	store    *memory.Store
	clock    *clock.Fixed
	gateway  *fakeGateway
	notifier *recordingNotifier
	rec      *Reconciler
	plan     *subscription.Plan
}

const shopID = int64(42)

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()

	store := memory.NewStore()
	plan := &subscription.Plan{Name: "Basic", Slug: "basic", PriceMonthly: 10000, PriceYearly: 100000, IsActive: true}
	require.NoError(t, store.Plans().Create(context.Background(), plan))

	f := &reconcilerFixture{
		store:    store,
		clock:    clock.NewFixed(now),
		gateway:  &fakeGateway{},
		notifier: &recordingNotifier{},
		plan:     plan,
	}
	f.rec = NewReconciler(store.Plans(), store.Subscriptions(), f.gateway, f.notifier, f.clock, nil, zap.NewNop())
	return f
}

func (f *reconcilerFixture) existing(t *testing.T, status subscription.Status, end time.Time) {
	t.Helper()
	require.NoError(t, f.store.Subscriptions().Create(context.Background(), &subscription.ShopSubscription{
		ShopID:       shopID,
		PlanID:       f.plan.ID,
		Status:       status,
		BillingCycle: subscription.CycleMonthly,
		StartDate:    end.AddDate(0, -1, 0),
		EndDate:      end,
	}))
}

func (f *reconcilerFixture) initiate(t *testing.T, cycle string) *subscription.InitiatePaymentResponse {
	t.Helper()
	res, err := f.rec.Initiate(context.Background(), shopID, &subscription.InitiatePaymentRequest{
		PlanID:       f.plan.ID,
		BillingCycle: cycle,
		PhoneNumber:  "0712345678",
	})
	require.NoError(t, err)
	return res
}

func TestInitiate_OpensPendingPayment(t *testing.T) {
	f := newReconcilerFixture(t)

	res := f.initiate(t, "monthly")
	assert.Equal(t, subscription.PaymentPending, res.Status)
	assert.Equal(t, 10000.0, res.Amount)
	assert.Regexp(t, `^SUB42[0-9A-Z]{26}$`, res.Reference)

	payment, err := f.store.Subscriptions().FindPayment(context.Background(), res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, subscription.PaymentPending, payment.Status)
	assert.Equal(t, "255712345678", payment.PhoneNumber)
	assert.Equal(t, subscription.PaymentMethodClickPesa, payment.PaymentMethod)

	// No prior row: an expired placeholder pointed at the requested plan.
	sub, err := f.store.Subscriptions().FindByShop(context.Background(), shopID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, sub.Status)
	assert.Equal(t, f.plan.ID, sub.PlanID)
	assert.Equal(t, subscription.CycleMonthly, sub.BillingCycle)
	assert.False(t, sub.IsValid(now))
}

func TestInitiate_UpdatesExistingRowPlanAndCycle(t *testing.T) {
	f := newReconcilerFixture(t)
	end := now.AddDate(0, 0, 3)
	f.existing(t, subscription.StatusActive, end)

	f.initiate(t, "YEARLY")

	sub, err := f.store.Subscriptions().FindByShop(context.Background(), shopID)
	require.NoError(t, err)
	assert.Equal(t, subscription.CycleYearly, sub.BillingCycle)
	assert.Equal(t, subscription.StatusActive, sub.Status, "pending payment does not touch status")
	assert.True(t, sub.EndDate.Equal(end))
}

func TestInitiate_RejectsBeforeAnyMutation(t *testing.T) {
	tests := []struct {
		name string
		req  subscription.InitiatePaymentRequest
		shop int64
		kind error
	}{
		{"unpriced cycle", subscription.InitiatePaymentRequest{BillingCycle: "DAILY", PhoneNumber: "0712345678"}, shopID, xerrors.ErrInvalidInput},
		{"unknown cycle", subscription.InitiatePaymentRequest{BillingCycle: "FORTNIGHTLY", PhoneNumber: "0712345678"}, shopID, xerrors.ErrInvalidInput},
		{"missing phone", subscription.InitiatePaymentRequest{BillingCycle: "MONTHLY", PhoneNumber: "  "}, shopID, xerrors.ErrInvalidInput},
		{"unknown plan", subscription.InitiatePaymentRequest{PlanID: 9999, BillingCycle: "MONTHLY", PhoneNumber: "0712345678"}, shopID, xerrors.ErrNotFound},
		{"no shop", subscription.InitiatePaymentRequest{BillingCycle: "MONTHLY", PhoneNumber: "0712345678"}, 0, xerrors.ErrNoShop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReconcilerFixture(t)
			req := tt.req
			if req.PlanID == 0 {
				req.PlanID = f.plan.ID
			}

			_, err := f.rec.Initiate(context.Background(), tt.shop, &req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			_, err = f.store.Subscriptions().FindByShop(context.Background(), shopID)
			assert.ErrorIs(t, err, xerrors.ErrNotFound)
			assert.Equal(t, int32(0), f.gateway.pushes.Load())
		})
	}
}

func TestInitiate_InactivePlan(t *testing.T) {
	f := newReconcilerFixture(t)
	retired := &subscription.Plan{Name: "Legacy", Slug: "legacy", PriceMonthly: 5000}
	require.NoError(t, f.store.Plans().Create(context.Background(), retired))

	_, err := f.rec.Initiate(context.Background(), shopID, &subscription.InitiatePaymentRequest{
		PlanID: retired.ID, BillingCycle: "MONTHLY", PhoneNumber: "0712345678",
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestInitiate_GatewayRejectionMarksFailed(t *testing.T) {
	f := newReconcilerFixture(t)
	f.gateway.push = &clickpesa.PushResult{Success: false, Message: "Insufficient balance"}

	_, err := f.rec.Initiate(context.Background(), shopID, &subscription.InitiatePaymentRequest{
		PlanID: f.plan.ID, BillingCycle: "MONTHLY", PhoneNumber: "0712345678",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrGateway)
	assert.Equal(t, "Payment Gateway Error: Insufficient balance", xerrors.PublicMessage(err, ""))

	assertOnlyPaymentStatus(t, f, subscription.PaymentFailed)
	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, subscription.EventPaymentFailed, f.notifier.events[0].Type)
}

func TestInitiate_ConfigurationErrorMarksFailed(t *testing.T) {
	f := newReconcilerFixture(t)
	f.gateway.pushErr = clickpesa.ErrChecksumUnavailable

	_, err := f.rec.Initiate(context.Background(), shopID, &subscription.InitiatePaymentRequest{
		PlanID: f.plan.ID, BillingCycle: "MONTHLY", PhoneNumber: "0712345678",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrInternal)
	assert.Contains(t, xerrors.PublicMessage(err, ""), "System Error")

	assertOnlyPaymentStatus(t, f, subscription.PaymentFailed)
}

// assertOnlyPaymentStatus checks the single payment the fixture made. Payment
// ids follow the placeholder subscription row id.
func assertOnlyPaymentStatus(t *testing.T, f *reconcilerFixture, want subscription.PaymentStatus) {
	t.Helper()
	sub, err := f.store.Subscriptions().FindByShop(context.Background(), shopID)
	require.NoError(t, err)
	p, err := f.store.Subscriptions().FindPayment(context.Background(), sub.ID+1)
	require.NoError(t, err)
	assert.Equal(t, want, p.Status)
}

func TestPollStatus_LateRenewalExtendsFromNow(t *testing.T) {
	f := newReconcilerFixture(t)
	f.existing(t, subscription.StatusExpired, now.AddDate(0, 0, -10))
	res := f.initiate(t, "MONTHLY")

	f.gateway.status = gatewayStatus("Successful")
	out, err := f.rec.PollStatus(context.Background(), shopID, res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, subscription.PaymentCompleted, out.Status)
	require.NotNil(t, out.EndDate)
	assert.True(t, out.EndDate.Equal(now.AddDate(0, 0, 30)), "got %s", out.EndDate)

	sub, err := f.store.Subscriptions().FindByShop(context.Background(), shopID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.True(t, sub.EndDate.Equal(now.AddDate(0, 0, 30)))
	assert.True(t, sub.IsValid(now))

	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, subscription.EventPaymentCompleted, f.notifier.events[0].Type)
	assert.Equal(t, shopID, f.notifier.shops[0])
}

func TestPollStatus_PaymentBuysOnlyItsOwnCycle(t *testing.T) {
	f := newReconcilerFixture(t)
	f.existing(t, subscription.StatusExpired, now.AddDate(0, 0, -10))
	monthly := f.initiate(t, "monthly")
	yearly := f.initiate(t, "yearly")

	f.gateway.status = gatewayStatus("SUCCESS")
	out, err := f.rec.PollStatus(context.Background(), shopID, monthly.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, subscription.PaymentCompleted, out.Status)

	sub, err := f.store.Subscriptions().FindByShop(context.Background(), shopID)
	require.NoError(t, err)
	assert.Equal(t, subscription.CycleMonthly, sub.BillingCycle)
	assert.True(t, sub.EndDate.Equal(now.AddDate(0, 0, 30)), "got %s", sub.EndDate)

	unpaid, err := f.store.Subscriptions().FindPayment(context.Background(), yearly.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, subscription.PaymentPending, unpaid.Status)
	assert.Equal(t, subscription.CycleYearly, unpaid.Cycle)
	assert.Equal(t, 100000.0, unpaid.Amount)
}

func TestPollStatus_SettlesOntoThePaidPlan(t *testing.T) {
	f := newReconcilerFixture(t)
	f.existing(t, subscription.StatusActive, now.AddDate(0, 0, 3))
	premium := &subscription.Plan{Name: "Premium", Slug: "premium", PriceMonthly: 50000, IsActive: true}
	require.NoError(t, f.store.Plans().Create(context.Background(), premium))

	paid := f.initiate(t, "monthly")
	_, err := f.rec.Initiate(context.Background(), shopID, &subscription.InitiatePaymentRequest{
		PlanID:       premium.ID,
		BillingCycle: "monthly",
		PhoneNumber:  "0712345678",
	})
	require.NoError(t, err)

	f.gateway.status = gatewayStatus("SUCCESS")
	_, err = f.rec.PollStatus(context.Background(), shopID, paid.PaymentID)
	require.NoError(t, err)

	sub, err := f.store.Subscriptions().FindByShop(context.Background(), shopID)
	require.NoError(t, err)
	assert.Equal(t, f.plan.ID, sub.PlanID)
}

func TestPollStatus_EarlyRenewalExtendsFromOldEnd(t *testing.T) {
	f := newReconcilerFixture(t)
	oldEnd := now.AddDate(0, 0, 5)
	f.existing(t, subscription.StatusActive, oldEnd)
	res := f.initiate(t, "MONTHLY")

	f.gateway.status = gatewayStatus("paid")
	out, err := f.rec.PollStatus(context.Background(), shopID, res.PaymentID)
	require.NoError(t, err)
	assert.True(t, out.EndDate.Equal(oldEnd.AddDate(0, 0, 30)))
}

func TestPollStatus_ConcurrentConfirmationsExtendOnce(t *testing.T) {
	f := newReconcilerFixture(t)
	f.existing(t, subscription.StatusExpired, now.AddDate(0, 0, -10))
	res := f.initiate(t, "MONTHLY")
	f.gateway.status = gatewayStatus("COMPLETED")

	const callers = 16
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			out, err := f.rec.PollStatus(context.Background(), shopID, res.PaymentID)
			if err == nil && out.Status != subscription.PaymentCompleted {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sub, err := f.store.Subscriptions().FindByShop(context.Background(), shopID)
	require.NoError(t, err)
	assert.True(t, sub.EndDate.Equal(now.AddDate(0, 0, 30)), "extended more than once: %s", sub.EndDate)
	assert.Equal(t, 1, f.notifier.count())
}

func TestPollStatus_FailureLeavesSubscriptionAlone(t *testing.T) {
	f := newReconcilerFixture(t)
	end := now.AddDate(0, 0, 2)
	f.existing(t, subscription.StatusActive, end)
	res := f.initiate(t, "MONTHLY")

	f.gateway.status = gatewayStatus("CANCELLED")
	out, err := f.rec.PollStatus(context.Background(), shopID, res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, subscription.PaymentFailed, out.Status)
	assert.Equal(t, "Transaction failed", out.Message)

	sub, err := f.store.Subscriptions().FindByShop(context.Background(), shopID)
	require.NoError(t, err)
	assert.True(t, sub.EndDate.Equal(end))
	assert.Equal(t, subscription.StatusActive, sub.Status)
}

func TestPollStatus_UnknownOrUnavailableStaysPending(t *testing.T) {
	results := map[string]*clickpesa.StatusResult{
		"unrecognized status": gatewayStatus("AWAITING_PIN"),
		"not found yet":       {Success: true, Outcome: clickpesa.OutcomePending},
		"gateway fault":       {Success: false, Outcome: clickpesa.OutcomePending, Message: "upstream down"},
	}
	for name, status := range results {
		t.Run(name, func(t *testing.T) {
			f := newReconcilerFixture(t)
			res := f.initiate(t, "MONTHLY")
			f.gateway.status = status

			out, err := f.rec.PollStatus(context.Background(), shopID, res.PaymentID)
			require.NoError(t, err)
			assert.Equal(t, subscription.PaymentPending, out.Status)

			p, err := f.store.Subscriptions().FindPayment(context.Background(), res.PaymentID)
			require.NoError(t, err)
			assert.Equal(t, subscription.PaymentPending, p.Status)
		})
	}
}

func TestPollStatus_TerminalPaymentSkipsGateway(t *testing.T) {
	f := newReconcilerFixture(t)
	res := f.initiate(t, "MONTHLY")
	f.gateway.status = gatewayStatus("SUCCESS")
	_, err := f.rec.PollStatus(context.Background(), shopID, res.PaymentID)
	require.NoError(t, err)

	out, err := f.rec.PollStatus(context.Background(), shopID, res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, subscription.PaymentCompleted, out.Status)
	assert.NotNil(t, out.EndDate)
	assert.Equal(t, int32(1), f.gateway.queries.Load())
}

func TestPollStatus_OtherShopsPaymentIsHidden(t *testing.T) {
	f := newReconcilerFixture(t)
	res := f.initiate(t, "MONTHLY")

	_, err := f.rec.PollStatus(context.Background(), shopID+1, res.PaymentID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = f.rec.PollStatus(context.Background(), shopID, 12345)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestPollStatus_ReauthenticatesOnceThroughRealClient(t *testing.T) {
	var auths, queries atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/generate-token", func(w http.ResponseWriter, _ *http.Request) {
		auths.Add(1)
		w.Write([]byte(`{"success":true,"token":"Bearer abc"}`))
	})
	mux.HandleFunc("/payments/initiate-ussd-push-request", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"id":"TX9","status":"PROCESSING"}`))
	})
	mux.HandleFunc("/payments/", func(w http.ResponseWriter, _ *http.Request) {
		if queries.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[{"status":"PAID"}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newReconcilerFixture(t)
	client := clickpesa.NewClient(clickpesa.Config{
		BaseURL: srv.URL, ClientID: "id", APIKey: "key", ChecksumKey: "secret",
	}, clickpesa.NewMemoryTokenStore(), nil, zap.NewNop())
	f.rec = NewReconciler(f.store.Plans(), f.store.Subscriptions(), client, f.notifier, f.clock, nil, zap.NewNop())

	res := f.initiate(t, "MONTHLY")
	require.Equal(t, int32(1), auths.Load())

	out, err := f.rec.PollStatus(context.Background(), shopID, res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, subscription.PaymentCompleted, out.Status)
	assert.Equal(t, int32(2), auths.Load())
	assert.Equal(t, int32(2), queries.Load())
}
