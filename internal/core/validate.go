package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Rule identifies a validation rule. Rules are evaluated in declaration order
// and only the first failure is reported.
type Rule string

const (
	RuleIncome               Rule = "income"
	RuleSalaryPositive       Rule = "salary_positive"
	RuleSavingsGoal          Rule = "savings_goal"
	RuleExpensesExceedIncome Rule = "expenses_exceed_income"
	RuleSalaryExceedsIncome  Rule = "salary_exceeds_income"
	RuleSalaryFloor          Rule = "salary_floor"
	RuleExpenseName          Rule = "expense_name"
)

// DefaultSalaryFloor is the smallest current salary the analyzer's salary
// model accepts.
var DefaultSalaryFloor = decimal.NewFromInt(100000)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError carries the first violated rule and its user-facing message.
type ValidationError struct {
	Rule    Rule
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type (
	// RawExpense is one expense row exactly as typed into the form.
	RawExpense struct {
		Name      string
		Amount    string
		Frequency string
		Unit      string
		Seasonal  string
	}

	// RawForm is the unparsed form state.
	RawForm struct {
		Income        string
		SavingsGoal   string
		CurrentSalary string
		InflationRate string
		Expenses      []RawExpense
	}
)

// NewRawExpense returns a blank row with the form defaults.
func NewRawExpense() RawExpense {
	return RawExpense{Unit: string(Monthly), Seasonal: "0"}
}

// NormalizeExpense converts a raw row into an ExpenseEntry. It never fails.
func NormalizeExpense(raw RawExpense) ExpenseEntry {
	return ExpenseEntry{
		Name:      strings.TrimSpace(raw.Name),
		Amount:    ParseLenient(raw.Amount),
		Frequency: ParseLenient(raw.Frequency),
		Unit:      ParseUnit(raw.Unit),
		Seasonal:  ParseSeasonalFlag(raw.Seasonal),
	}
}

// Validator turns a RawForm into an AnalysisRequest.
type Validator struct {
	SalaryFloor decimal.Decimal
}

func NewValidator(salaryFloor decimal.Decimal) Validator {
	if salaryFloor.IsNegative() {
		salaryFloor = decimal.Zero
	}
	return Validator{SalaryFloor: salaryFloor}
}

// Validate normalizes the form and checks the business rules in fixed order.
// On failure it returns a *ValidationError for the first violated rule.
func (v Validator) Validate(form RawForm) (AnalysisRequest, error) {
	income, incomeOK := ParseStrict(form.Income)
	goal, goalOK := ParseStrict(form.SavingsGoal)
	salary, salaryOK := ParseStrict(form.CurrentSalary)

	expenses := make([]ExpenseEntry, 0, len(form.Expenses))
	for _, raw := range form.Expenses {
		expenses = append(expenses, NormalizeExpense(raw))
	}
	yearly := TotalYearlyCost(expenses)

	if !incomeOK || !income.IsPositive() {
		return AnalysisRequest{}, fail(RuleIncome, "Yearly income must be greater than 0.")
	}
	if salaryOK && !salary.IsPositive() {
		return AnalysisRequest{}, fail(RuleSalaryPositive, "Current salary must be greater than 0.")
	}
	if !goalOK || !goal.IsPositive() {
		return AnalysisRequest{}, fail(RuleSavingsGoal, "Savings goal must be greater than 0.")
	}
	if yearly.GreaterThan(income) {
		return AnalysisRequest{}, fail(RuleExpensesExceedIncome, "Total expenses exceed your yearly income.")
	}
	if salaryOK && salary.GreaterThan(income) {
		return AnalysisRequest{}, fail(RuleSalaryExceedsIncome, "Current salary cannot be greater than yearly income.")
	}
	if salaryOK && salary.LessThan(v.SalaryFloor) {
		return AnalysisRequest{}, fail(RuleSalaryFloor, fmt.Sprintf(
			"Current salary must be at least %s; salary predictions are not available below that.",
			v.SalaryFloor.String()))
	}
	for i, e := range expenses {
		if e.Name == "" {
			return AnalysisRequest{}, fail(RuleExpenseName, fmt.Sprintf("Expense #%d needs a name.", i+1))
		}
	}

	req := AnalysisRequest{
		Income:        income,
		CurrentSalary: income,
		SavingsGoal:   goal,
		Expenses:      expenses,
	}
	if salaryOK {
		req.CurrentSalary = salary
	}
	if rate, ok := ParseStrict(form.InflationRate); ok {
		req.InflationRate = &rate
	}
	return req, nil
}

func fail(rule Rule, msg string) *ValidationError {
	return &ValidationError{Rule: rule, Message: msg}
}
