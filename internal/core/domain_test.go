package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseEntry_YearlyCost(t *testing.T) {
	tests := []struct {
		name string
		e    ExpenseEntry
		want string
	}{
		{"monthly multiplies by twelve", ExpenseEntry{Amount: decimal.NewFromInt(500), Frequency: decimal.NewFromInt(2), Unit: Monthly}, "12000"},
		{"yearly has no multiplier", ExpenseEntry{Amount: decimal.NewFromInt(500), Frequency: decimal.NewFromInt(2), Unit: Yearly}, "1000"},
		{"fractional frequency", ExpenseEntry{Amount: decimal.RequireFromString("99.5"), Frequency: decimal.RequireFromString("0.5"), Unit: Monthly}, "597"},
		{"zero amount", ExpenseEntry{Amount: decimal.Zero, Frequency: decimal.NewFromInt(3), Unit: Monthly}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(tt.e.YearlyCost()), "got %s", tt.e.YearlyCost())
		})
	}
}

func TestTotalYearlyCost(t *testing.T) {
	expenses := []ExpenseEntry{
		{Amount: decimal.NewFromInt(10000), Frequency: decimal.NewFromInt(1), Unit: Monthly},
		{Amount: decimal.NewFromInt(30000), Frequency: decimal.NewFromInt(1), Unit: Yearly},
	}
	assert.Equal(t, "150000", TotalYearlyCost(expenses).String())
	assert.True(t, TotalYearlyCost(nil).IsZero())
}

func TestParseUnitAndSeasonalFlag(t *testing.T) {
	assert.Equal(t, Yearly, ParseUnit("yearly"))
	assert.Equal(t, Yearly, ParseUnit(" Yearly "))
	assert.Equal(t, Monthly, ParseUnit("monthly"))
	assert.Equal(t, Monthly, ParseUnit(""))
	assert.Equal(t, Monthly, ParseUnit("weekly"))

	assert.Equal(t, 1, ParseSeasonalFlag("1"))
	assert.Equal(t, 0, ParseSeasonalFlag("0"))
	assert.Equal(t, 0, ParseSeasonalFlag("yes"))
	assert.Equal(t, 0, ParseSeasonalFlag(""))
}

func TestCategorizedExpense_JSON(t *testing.T) {
	var got []CategorizedExpense
	err := json.Unmarshal([]byte(`[["Rent", 120000, "Essential"], ["Concert", 5000.5, "Luxury"]]`), &got)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, CategorizedExpense{Name: "Rent", Amount: 120000, Category: CategoryEssential}, got[0])
	assert.True(t, got[0].IsEssential())
	assert.False(t, got[1].IsEssential())

	out, err := json.Marshal(got[1])
	require.NoError(t, err)
	assert.JSONEq(t, `["Concert", 5000.5, "Luxury"]`, string(out))
}

func TestCategorizedExpense_JSONRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		`{"name": "Rent"}`,
		`["Rent", 100]`,
		`["Rent", "100", "Essential"]`,
		`["Rent", 100, ""]`,
	} {
		var c CategorizedExpense
		assert.Error(t, json.Unmarshal([]byte(in), &c), in)
	}
}

func TestAnalysisRequest_Payload(t *testing.T) {
	rate := decimal.RequireFromString("5.5")
	req := AnalysisRequest{
		Income:        decimal.NewFromInt(1200000),
		CurrentSalary: decimal.NewFromInt(1000000),
		SavingsGoal:   decimal.NewFromInt(200000),
		InflationRate: &rate,
		Expenses: []ExpenseEntry{
			{Name: "Rent", Amount: decimal.NewFromInt(20000), Frequency: decimal.NewFromInt(1), Unit: Monthly},
			{Name: "Trip", Amount: decimal.NewFromInt(50000), Frequency: decimal.NewFromInt(1), Unit: Yearly, Seasonal: 1},
		},
	}

	out, err := json.Marshal(req.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"income": 1200000,
		"current_salary": 1000000,
		"savings_goal": 200000,
		"inflation_rate": 5.5,
		"expenses": [
			{"name": "Rent", "amount": 20000, "frequency": 1, "unit": "monthly", "seasonal_flag": 0},
			{"name": "Trip", "amount": 50000, "frequency": 1, "unit": "yearly", "seasonal_flag": 1}
		]
	}`, string(out))
}

func TestAnalysisRequest_PayloadAbsentInflationAndNoExpenses(t *testing.T) {
	req := AnalysisRequest{
		Income:        decimal.NewFromInt(100),
		CurrentSalary: decimal.NewFromInt(100),
		SavingsGoal:   decimal.NewFromInt(50),
	}

	out, err := json.Marshal(req.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"income": 100, "current_salary": 100, "savings_goal": 50, "inflation_rate": null, "expenses": []}`, string(out))
}
