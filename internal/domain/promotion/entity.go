// internal/domain/promotion/entity.go
package promotion

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// TimeOfDay is an offset from local midnight in microseconds, the same
// resolution postgres uses for TIME columns.
type TimeOfDay int64

const (
	microsPerSecond = int64(time.Second / time.Microsecond)
	microsPerDay    = 24 * 60 * 60 * microsPerSecond
)

func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay((int64(hour)*3600 + int64(minute)*60 + int64(second)) * microsPerSecond)
}

// TimeOfDayOf returns the time-of-day of t in t's own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return NewTimeOfDay(h, m, s) + TimeOfDay(t.Nanosecond()/1000)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return TimeOfDayOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", value)
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && int64(t) < microsPerDay
}

func (t TimeOfDay) String() string {
	secs := int64(t) / microsPerSecond
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Weekday indexes days starting at Monday = 0.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// Rule is a "happy hour": a percentage discount limited to a time-of-day
// window on selected weekdays, targeting products and/or categories.
type Rule struct {
	ID              int64         `json:"id" db:"id"`
	ShopID          int64         `json:"shop_id" db:"shop_id"`
	Name            string        `json:"name" db:"name"`
	DiscountPercent float64       `json:"discount_percent" db:"discount_percent"`
	StartTime       TimeOfDay     `json:"start_time" db:"start_time"`
	EndTime         TimeOfDay     `json:"end_time" db:"end_time"`
	DaysOfWeek      pq.Int64Array `json:"days_of_week" db:"days_of_week"`
	ProductIDs      pq.Int64Array `json:"product_ids" db:"product_ids"`
	CategoryIDs     pq.Int64Array `json:"category_ids" db:"category_ids"`
	IsActive        bool          `json:"is_active" db:"is_active"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// InWindow reports whether tod lies in [StartTime, EndTime], both ends inclusive.
func (r *Rule) InWindow(tod TimeOfDay) bool {
	return r.StartTime <= tod && tod <= r.EndTime
}

func (r *Rule) ActiveOn(day Weekday) bool {
	for _, d := range r.DaysOfWeek {
		if Weekday(d) == day {
			return true
		}
	}
	return false
}

// AppliesTo reports whether the product is targeted directly or through its category.
func (r *Rule) AppliesTo(p *Product) bool {
	for _, id := range r.ProductIDs {
		if id == p.ID {
			return true
		}
	}
	if !p.CategoryID.Valid {
		return false
	}
	for _, id := range r.CategoryIDs {
		if id == p.CategoryID.Int64 {
			return true
		}
	}
	return false
}

// Product is the slice of the inventory record pricing needs.
type Product struct {
	ID           int64         `json:"id" db:"id"`
	ShopID       int64         `json:"shop_id" db:"shop_id"`
	Name         string        `json:"name" db:"name"`
	SellingPrice float64       `json:"selling_price" db:"selling_price"`
	CategoryID   sql.NullInt64 `json:"category_id,omitempty" db:"category_id"`
}

// Quote is the result of pricing one product at one instant.
type Quote struct {
	ProductID       int64   `json:"product_id"`
	FinalPrice      float64 `json:"final_price"`
	OriginalPrice   float64 `json:"original_price"`
	DiscountApplied bool    `json:"discount_applied"`
	DiscountPercent float64 `json:"discount_percent"`
	RuleID          int64   `json:"rule_id,omitempty"`
	RuleName        string  `json:"rule_name,omitempty"`
}
