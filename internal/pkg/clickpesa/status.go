// internal/pkg/clickpesa/status.go
package clickpesa

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Outcome is the normalized state of a collection request.
type Outcome string

const (
	OutcomePending   Outcome = "PENDING"
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
)

var (
	successStatuses = map[string]bool{"SUCCESS": true, "SUCCESSFUL": true, "COMPLETED": true, "PAID": true}
	failureStatuses = map[string]bool{"FAILED": true, "CANCELLED": true, "REJECTED": true}
)

// NormalizeStatus maps free-text gateway statuses. Unknown values are pending.
func NormalizeStatus(raw string) Outcome {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case successStatuses[s]:
		return OutcomeSucceeded
	case failureStatuses[s]:
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

// PaymentRecord is the subset of a gateway payment we read.
type PaymentRecord struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	OrderReference string          `json:"orderReference"`
	Message        string          `json:"message"`
	Amount         json.RawMessage `json:"collectedAmount,omitempty"`
	Currency       string          `json:"collectedCurrency,omitempty"`
}

// parsePaymentRecord accepts either a single object or an array of objects.
// An empty array yields nil, meaning the gateway has no record yet.
func parsePaymentRecord(body []byte) (*PaymentRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '[' {
		var records []PaymentRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode payment list: %w", err)
		}
		if len(records) == 0 {
			return nil, nil
		}
		return &records[0], nil
	}

	var record PaymentRecord
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return nil, fmt.Errorf("failed to decode payment: %w", err)
	}
	return &record, nil
}
