// internal/domain/subscription/dto.go
package subscription

import "time"

type InitiatePaymentRequest struct {
	PlanID       int64  `json:"plan_id" binding:"required"`
	BillingCycle string `json:"billing_cycle" binding:"required"`
	PhoneNumber  string `json:"phone_number" binding:"required"`
}

type InitiatePaymentResponse struct {
	PaymentID int64         `json:"payment_id"`
	Reference string        `json:"reference"`
	Amount    float64       `json:"amount"`
	Status    PaymentStatus `json:"status"`
	Message   string        `json:"message"`
}

type PaymentStatusResponse struct {
	PaymentID int64         `json:"payment_id"`
	Reference string        `json:"reference"`
	Status    PaymentStatus `json:"status"`
	Message   string        `json:"message,omitempty"`
	EndDate   *time.Time    `json:"subscription_end_date,omitempty"`
}

// PublicPlan is a catalog entry as shown on the pricing page.
type PublicPlan struct {
	ID           int64                  `json:"id"`
	Name         string                 `json:"name"`
	Slug         string                 `json:"slug"`
	Description  string                 `json:"description,omitempty"`
	Features     map[string]interface{} `json:"features,omitempty"`
	Cycle        BillingCycle           `json:"cycle"`
	Price        float64                `json:"price"`
	DisplayPrice string                 `json:"display_price"`
	MaxShops     int                    `json:"max_shops"`
	MaxUsers     int                    `json:"max_users"`
	MaxProducts  int                    `json:"max_products"`
}

// StatusView feeds the dashboard renewal banner. It never gates access.
type StatusView struct {
	ShopID          int64      `json:"shop_id,omitempty"`
	Status          Status     `json:"subscription_status"`
	DaysLeft        int        `json:"days_left"`
	HasSubscription bool       `json:"has_subscription"`
	ShowBanner      bool       `json:"show_banner"`
	PlanName        string     `json:"plan_name"`
	EndDate         *time.Time `json:"end_date,omitempty"`
}

const (
	EventPaymentCompleted = "payment:completed"
	EventPaymentFailed    = "payment:failed"
)

// PaymentEvent is pushed to a shop's live connections when a payment settles.
type PaymentEvent struct {
	Type      string        `json:"type"`
	PaymentID int64         `json:"payment_id"`
	Reference string        `json:"reference"`
	Status    PaymentStatus `json:"status"`
	Message   string        `json:"message,omitempty"`
	EndDate   *time.Time    `json:"subscription_end_date,omitempty"`
}
