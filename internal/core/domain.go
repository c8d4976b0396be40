package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Monthly Unit = "monthly"
	Yearly  Unit = "yearly"
)

const (
	CategoryEssential = "Essential"
	CategoryLuxury    = "Luxury"
)

var monthsPerYear = decimal.NewFromInt(12)

type (
	// Unit is the period an expense frequency is measured against.
	Unit string

	ExpenseEntry struct {
		Name      string
		Amount    decimal.Decimal // per occurrence
		Frequency decimal.Decimal // occurrences per Unit
		Unit      Unit
		Seasonal  int // 0 or 1, consumed only by the analyzer
	}

	// AnalysisRequest is a normalized, validated submission.
	AnalysisRequest struct {
		Income        decimal.Decimal
		CurrentSalary decimal.Decimal
		SavingsGoal   decimal.Decimal
		InflationRate *decimal.Decimal // nil lets the analyzer infer it
		Expenses      []ExpenseEntry
	}

	// CategorizedExpense is one [name, amount, category] triple returned by the analyzer.
	CategorizedExpense struct {
		Name     string
		Amount   float64
		Category string
	}

	AnalysisResult struct {
		CategorizedExpenses []CategorizedExpense `json:"categorized_expenses"`
		EssentialTotal      float64              `json:"essential_total"`
		LuxuryTotal         float64              `json:"luxury_total"`
		SavingsPotential    float64              `json:"savings_potential"`
		GoalAlignment       bool                 `json:"goal_alignment"`
		SuggestedGoal       float64              `json:"suggested_goal"`
		PredictedSalary     float64              `json:"predicted_salary"`
	}
)

// ParseUnit maps form input to a Unit. Anything but "yearly" is monthly,
// which is also the analyzer's default.
func ParseUnit(s string) Unit {
	if strings.EqualFold(strings.TrimSpace(s), string(Yearly)) {
		return Yearly
	}
	return Monthly
}

// ParseSeasonalFlag coerces form input to 0 or 1.
func ParseSeasonalFlag(s string) int {
	if strings.TrimSpace(s) == "1" {
		return 1
	}
	return 0
}

// YearlyCost returns amount × frequency, times 12 unless the unit is yearly.
func (e ExpenseEntry) YearlyCost() decimal.Decimal {
	cost := e.Amount.Mul(e.Frequency)
	if e.Unit == Yearly {
		return cost
	}
	return cost.Mul(monthsPerYear)
}

// TotalYearlyCost sums the yearly-normalized cost of every expense.
func TotalYearlyCost(expenses []ExpenseEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.YearlyCost())
	}
	return total
}

// YearlyExpenses is the total yearly-normalized cost of the request's expenses.
func (r AnalysisRequest) YearlyExpenses() decimal.Decimal {
	return TotalYearlyCost(r.Expenses)
}

func (c CategorizedExpense) IsEssential() bool {
	return c.Category == CategoryEssential
}

// The analyzer encodes categorized expenses as JSON arrays, not objects.

func (c CategorizedExpense) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Name, c.Amount, c.Category})
}

func (c *CategorizedExpense) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("categorized expense: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("categorized expense: want 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &c.Name); err != nil {
		return fmt.Errorf("categorized expense name: %w", err)
	}
	if err := json.Unmarshal(raw[1], &c.Amount); err != nil {
		return fmt.Errorf("categorized expense amount: %w", err)
	}
	if err := json.Unmarshal(raw[2], &c.Category); err != nil {
		return fmt.Errorf("categorized expense category: %w", err)
	}
	if c.Category == "" {
		return errors.New("categorized expense: empty category")
	}
	return nil
}
