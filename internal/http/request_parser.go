// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing HTTP request data into the
// intake form.

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"finform/internal/core"
)

// Form field names. Expense fields repeat once per row, in row order.
const (
	fieldIncome          = "income"
	fieldSavingsGoal     = "savings_goal"
	fieldCurrentSalary   = "current_salary"
	fieldInflationRate   = "inflation_rate"
	fieldExpenseName     = "expense_name"
	fieldExpenseAmount   = "expense_amount"
	fieldExpenseFreq     = "expense_frequency"
	fieldExpenseUnit     = "expense_unit"
	fieldExpenseSeasonal = "expense_seasonal"
)

const (
	// MaxExpenseRows bounds the rows accepted in one submission.
	MaxExpenseRows = 200
	maxFormBytes   = 256 << 10
	maxFieldLength = 200
)

// ErrTooManyExpenses is returned when a form carries more than MaxExpenseRows rows.
var ErrTooManyExpenses = errors.New("too many expense rows")

// ParseAnalysisForm builds a RawForm from posted values. Rows are aligned by
// position; a row missing its unit or seasonal value gets the form default.
// Rows with no name, amount or frequency at all are dropped, so a blank
// trailing row does not block submission.
func ParseAnalysisForm(form url.Values) (core.RawForm, error) {
	raw := core.RawForm{
		Income:        fieldValue(form, fieldIncome),
		SavingsGoal:   fieldValue(form, fieldSavingsGoal),
		CurrentSalary: fieldValue(form, fieldCurrentSalary),
		InflationRate: fieldValue(form, fieldInflationRate),
	}

	names := form[fieldExpenseName]
	amounts := form[fieldExpenseAmount]
	freqs := form[fieldExpenseFreq]
	units := form[fieldExpenseUnit]
	seasonal := form[fieldExpenseSeasonal]

	rows := max(len(names), len(amounts), len(freqs), len(units), len(seasonal))
	if rows > MaxExpenseRows {
		return core.RawForm{}, fmt.Errorf("%w: %d (max %d)", ErrTooManyExpenses, rows, MaxExpenseRows)
	}

	for i := 0; i < rows; i++ {
		row := core.NewRawExpense()
		row.Name = at(names, i)
		row.Amount = at(amounts, i)
		row.Frequency = at(freqs, i)
		if u := at(units, i); u != "" {
			row.Unit = u
		}
		if s := at(seasonal, i); s != "" {
			row.Seasonal = s
		}
		if row.Name == "" && row.Amount == "" && row.Frequency == "" {
			continue
		}
		raw.Expenses = append(raw.Expenses, row)
	}
	return raw, nil
}

func fieldValue(form url.Values, key string) string {
	return clean(form.Get(key))
}

func at(values []string, i int) string {
	if i < len(values) {
		return clean(values[i])
	}
	return ""
}

func clean(s string) string {
	s = sanitizeInput(s)
	if len(s) > maxFieldLength {
		s = s[:maxFieldLength]
		// Do not leave a broken rune at the cut.
		s = strings.ToValidUTF8(s, "")
	}
	return s
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET is a convenience function for read-only handlers.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
