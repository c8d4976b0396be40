package render

import (
	"fmt"
	"io"

	"finform/internal/core"
)

const (
	GoalAchievable = "Goal Achievable"
	GoalTooHigh    = "Goal Too High"
)

type (
	ExpenseLine struct {
		Name     string
		Amount   string
		Category string
		// Class is the CSS class of the row: "essential" or "luxury".
		Class string
	}

	// View is the display form of an AnalysisResult. All amounts are
	// pre-formatted.
	View struct {
		Expenses         []ExpenseLine
		EssentialTotal   string
		LuxuryTotal      string
		SavingsPotential string
		GoalAligned      bool
		GoalStatus       string
		// ShowSuggestedGoal is true exactly when the goal is not aligned.
		ShowSuggestedGoal bool
		SuggestedGoal     string
		PredictedSalary   string
		// SavingsGoal is the submitted goal. Callers that know it fill it in.
		SavingsGoal string
	}
)

// Summary maps result to a View. It performs no arithmetic.
func Summary(result core.AnalysisResult, f *Formatter) View {
	v := View{
		Expenses:          make([]ExpenseLine, 0, len(result.CategorizedExpenses)),
		EssentialTotal:    f.Currency(result.EssentialTotal),
		LuxuryTotal:       f.Currency(result.LuxuryTotal),
		SavingsPotential:  f.Currency(result.SavingsPotential),
		GoalAligned:       result.GoalAlignment,
		GoalStatus:        GoalTooHigh,
		ShowSuggestedGoal: !result.GoalAlignment,
		PredictedSalary:   f.Currency(result.PredictedSalary),
	}
	if result.GoalAlignment {
		v.GoalStatus = GoalAchievable
	} else {
		v.SuggestedGoal = f.Currency(result.SuggestedGoal)
	}

	for _, e := range result.CategorizedExpenses {
		class := "luxury"
		if e.IsEssential() {
			class = "essential"
		}
		v.Expenses = append(v.Expenses, ExpenseLine{
			Name:     e.Name,
			Amount:   f.Currency(e.Amount),
			Category: e.Category,
			Class:    class,
		})
	}
	return v
}

// WriteText writes v as a plain-text report for terminals.
func WriteText(w io.Writer, v View) error {
	ew := &errWriter{w: w}

	ew.printf("\n===== Financial Summary =====\n")
	ew.printf("\nExpense Categorization:\n")
	for _, e := range v.Expenses {
		ew.printf("- %s: %s → %s\n", e.Name, e.Amount, e.Category)
	}

	ew.printf("\nBreakdown:\n")
	ew.printf("Total Essential Expenses : %s\n", v.EssentialTotal)
	ew.printf("Total Luxury Expenses    : %s\n", v.LuxuryTotal)

	ew.printf("\nSavings Analysis:\n")
	ew.printf("Potential Savings        : %s\n", v.SavingsPotential)
	if v.SavingsGoal != "" {
		ew.printf("Original Savings Goal    : %s\n", v.SavingsGoal)
	}
	ew.printf("Goal Status              : %s\n", v.GoalStatus)
	if v.ShowSuggestedGoal {
		ew.printf("Suggested Savings Goal   : %s\n", v.SuggestedGoal)
	}

	ew.printf("\nSalary Prediction:\n")
	ew.printf("Predicted Salary Next Yr : %s\n", v.PredictedSalary)

	ew.printf("\nSummary complete.\n")
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
