package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is how a submission ended.
type Outcome string

const (
	OutcomeAccepted         Outcome = "accepted"
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomeTransportFailed  Outcome = "transport_failed"
	OutcomeMalformedResult  Outcome = "malformed_result"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeAccepted, OutcomeValidationFailed, OutcomeTransportFailed, OutcomeMalformedResult:
		return true
	}
	return false
}

// AnalysisRecord is one journal entry. It holds figures only; expense names
// and other free text are never recorded.
type AnalysisRecord struct {
	ID             string          `json:"id"`
	RequestID      string          `json:"request_id"`
	RecordedAt     time.Time       `json:"recorded_at"`
	Outcome        Outcome         `json:"outcome"`
	Rule           Rule            `json:"rule,omitempty"`
	Income         decimal.Decimal `json:"income"`
	ExpenseCount   int             `json:"expense_count"`
	YearlyExpenses decimal.Decimal `json:"yearly_expenses"`
	GoalAlignment  *bool           `json:"goal_alignment,omitempty"`
	LatencyMs      int64           `json:"latency_ms"`
}
