package core

// Payload is the JSON body sent to the analysis service. Field names are fixed
// by the service contract.
type Payload struct {
	Income        float64          `json:"income"`
	Expenses      []ExpensePayload `json:"expenses"`
	SavingsGoal   float64          `json:"savings_goal"`
	CurrentSalary float64          `json:"current_salary"`
	InflationRate *float64         `json:"inflation_rate"` // null, never omitted
}

type ExpensePayload struct {
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	Frequency    float64 `json:"frequency"`
	Unit         Unit    `json:"unit"`
	SeasonalFlag int     `json:"seasonal_flag"`
}

// Payload converts the request to its wire form, preserving expense order.
func (r AnalysisRequest) Payload() Payload {
	p := Payload{
		Income:        r.Income.InexactFloat64(),
		Expenses:      make([]ExpensePayload, 0, len(r.Expenses)),
		SavingsGoal:   r.SavingsGoal.InexactFloat64(),
		CurrentSalary: r.CurrentSalary.InexactFloat64(),
	}
	if r.InflationRate != nil {
		rate := r.InflationRate.InexactFloat64()
		p.InflationRate = &rate
	}
	for _, e := range r.Expenses {
		p.Expenses = append(p.Expenses, ExpensePayload{
			Name:         e.Name,
			Amount:       e.Amount.InexactFloat64(),
			Frequency:    e.Frequency.InexactFloat64(),
			Unit:         e.Unit,
			SeasonalFlag: e.Seasonal,
		})
	}
	return p
}
