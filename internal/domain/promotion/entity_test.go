package promotion

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayOf_MondayIsZero(t *testing.T) {
	assert.Equal(t, Monday, WeekdayOf(time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, Sunday, WeekdayOf(time.Date(2026, time.October, 18, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, Saturday, WeekdayOf(time.Date(2026, time.October, 24, 12, 0, 0, 0, time.UTC)))
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("17:30")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(17, 30, 0), tod)
	assert.Equal(t, "17:30:00", tod.String())

	tod, err = ParseTimeOfDay("08:05:09")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(8, 5, 9), tod)

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestTimeOfDayOf_KeepsSubSecondPrecision(t *testing.T) {
	at := time.Date(2026, time.October, 19, 17, 0, 0, 500_000_000, time.UTC)
	end := NewTimeOfDay(17, 0, 0)
	r := Rule{StartTime: NewTimeOfDay(16, 0, 0), EndTime: end}

	assert.False(t, r.InWindow(TimeOfDayOf(at)))
	assert.True(t, r.InWindow(TimeOfDayOf(at.Truncate(time.Second))))
}

func TestTimeOfDayJSON(t *testing.T) {
	var req CreateRuleRequest
	err := json.Unmarshal([]byte(`{"name":"lunch","discount_percent":10,"start_time":"12:00","end_time":"14:00","days_of_week":[0],"product_ids":[1]}`), &req)
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(12, 0, 0), req.StartTime)
	require.NoError(t, req.Validate())

	out, err := json.Marshal(req.EndTime)
	require.NoError(t, err)
	assert.JSONEq(t, `"14:00:00"`, string(out))
}

func TestCreateRuleRequestValidate(t *testing.T) {
	valid := func() CreateRuleRequest {
		return CreateRuleRequest{
			Name:            "evening",
			DiscountPercent: 20,
			StartTime:       NewTimeOfDay(18, 0, 0),
			EndTime:         NewTimeOfDay(20, 0, 0),
			DaysOfWeek:      []int64{4, 5},
			CategoryIDs:     []int64{2},
		}
	}

	tests := []struct {
		name   string
		mutate func(r *CreateRuleRequest)
	}{
		{"zero percent", func(r *CreateRuleRequest) { r.DiscountPercent = 0 }},
		{"hundred percent", func(r *CreateRuleRequest) { r.DiscountPercent = 100 }},
		{"start after end", func(r *CreateRuleRequest) { r.StartTime = NewTimeOfDay(21, 0, 0) }},
		{"bad weekday", func(r *CreateRuleRequest) { r.DaysOfWeek = []int64{7} }},
		{"no targets", func(r *CreateRuleRequest) { r.CategoryIDs = nil }},
	}

	ok := valid()
	require.NoError(t, ok.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}
