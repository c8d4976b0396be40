package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"finform/internal/core"
)

// maxExpenses matches the row limit of the web form.
const maxExpenses = 200

var errNoInput = errors.New("input ended before all answers were given")

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", errNoInput
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// askNumber repeats the question until the answer is a plain decimal.
// An empty answer is accepted when optional is set.
func (p *prompter) askNumber(label string, optional bool) (string, error) {
	for {
		answer, err := p.ask(label)
		if err != nil {
			return "", err
		}
		if answer == "" && optional {
			return "", nil
		}
		if _, ok := core.ParseStrict(answer); ok {
			return answer, nil
		}
		fmt.Fprintln(p.out, "Please enter a number.")
	}
}

func (p *prompter) askCount(label string) (int, error) {
	for {
		answer, err := p.ask(label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 0 && n <= maxExpenses {
			return n, nil
		}
		fmt.Fprintf(p.out, "Please enter a whole number between 0 and %d.\n", maxExpenses)
	}
}

func (p *prompter) askYesNo(label string) (bool, error) {
	answer, err := p.ask(label)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes"), nil
}

// collectForm asks for the same fields as the web form.
func collectForm(p *prompter) (core.RawForm, error) {
	var form core.RawForm
	var err error

	fmt.Fprintln(p.out, "--- Personal Finance Data Input ---")

	if form.Income, err = p.askNumber("Enter your yearly income: ", false); err != nil {
		return form, err
	}

	n, err := p.askCount("How many expense items do you want to enter? ")
	if err != nil {
		return form, err
	}
	for i := 0; i < n; i++ {
		row := core.NewRawExpense()
		if row.Name, err = p.ask("Enter expense name: "); err != nil {
			return form, err
		}
		if row.Amount, err = p.askNumber(fmt.Sprintf("Enter amount for %s: ", row.Name), false); err != nil {
			return form, err
		}
		if row.Frequency, err = p.askNumber(fmt.Sprintf("Enter purchase frequency for %s: ", row.Name), false); err != nil {
			return form, err
		}
		yearly, err := p.askYesNo("Is that frequency per year? (y/n): ")
		if err != nil {
			return form, err
		}
		if yearly {
			row.Unit = string(core.Yearly)
		}
		form.Expenses = append(form.Expenses, row)
	}

	if form.SavingsGoal, err = p.askNumber("Enter your yearly savings goal: ", false); err != nil {
		return form, err
	}
	if form.CurrentSalary, err = p.askNumber("Enter your current yearly salary (empty to use income): ", true); err != nil {
		return form, err
	}

	auto, err := p.askYesNo("Do you want the inflation rate estimated automatically? (y/n): ")
	if err != nil {
		return form, err
	}
	if !auto {
		if form.InflationRate, err = p.askNumber("Enter expected inflation rate (in %): ", false); err != nil {
			return form, err
		}
	}
	return form, nil
}
