package analysis

import (
	"encoding/json"

	"finform/internal/core"
)

// envelope mirrors core.AnalysisResult with pointer fields so absent keys
// can be told apart from zero values.
type envelope struct {
	CategorizedExpenses *[]core.CategorizedExpense `json:"categorized_expenses"`
	EssentialTotal      *float64                   `json:"essential_total"`
	LuxuryTotal         *float64                   `json:"luxury_total"`
	SavingsPotential    *float64                   `json:"savings_potential"`
	GoalAlignment       *bool                      `json:"goal_alignment"`
	SuggestedGoal       *float64                   `json:"suggested_goal"`
	PredictedSalary     *float64                   `json:"predicted_salary"`
}

// decodeResult parses a response body and requires every result key. A key
// present with a JSON null counts as missing.
func decodeResult(data []byte) (core.AnalysisResult, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return core.AnalysisResult{}, &MalformedError{Field: "body", Err: err}
	}

	switch {
	case env.CategorizedExpenses == nil:
		return core.AnalysisResult{}, &MalformedError{Field: "categorized_expenses"}
	case env.EssentialTotal == nil:
		return core.AnalysisResult{}, &MalformedError{Field: "essential_total"}
	case env.LuxuryTotal == nil:
		return core.AnalysisResult{}, &MalformedError{Field: "luxury_total"}
	case env.SavingsPotential == nil:
		return core.AnalysisResult{}, &MalformedError{Field: "savings_potential"}
	case env.GoalAlignment == nil:
		return core.AnalysisResult{}, &MalformedError{Field: "goal_alignment"}
	case env.SuggestedGoal == nil:
		return core.AnalysisResult{}, &MalformedError{Field: "suggested_goal"}
	case env.PredictedSalary == nil:
		return core.AnalysisResult{}, &MalformedError{Field: "predicted_salary"}
	}

	return core.AnalysisResult{
		CategorizedExpenses: *env.CategorizedExpenses,
		EssentialTotal:      *env.EssentialTotal,
		LuxuryTotal:         *env.LuxuryTotal,
		SavingsPotential:    *env.SavingsPotential,
		GoalAlignment:       *env.GoalAlignment,
		SuggestedGoal:       *env.SuggestedGoal,
		PredictedSalary:     *env.PredictedSalary,
	}, nil
}
