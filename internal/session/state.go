// Package session tracks the submission lifecycle of each browser session.
//
// State is immutable: every change goes through Reduce, and the Store applies
// Reduce atomically per session.
package session

import (
	"errors"
	"fmt"

	"finform/internal/core"
)

// Phase is a step of the submission lifecycle:
//
//	Idle -> Validating -> ValidationFailed -> Idle
//	                   -> Submitting -> Succeeded -> Idle
//	                                 -> Failed    -> Idle
type Phase int

const (
	Idle Phase = iota
	Validating
	ValidationFailed
	Submitting
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case ValidationFailed:
		return "validation_failed"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Busy reports whether a submission is being processed. The submit control
// is disabled while busy.
func (p Phase) Busy() bool {
	return p == Validating || p == Submitting
}

// resting phases accept a new submission.
func (p Phase) resting() bool {
	return !p.Busy()
}

var (
	// ErrInFlight is returned when a submission arrives while another one for
	// the same session is still being processed.
	ErrInFlight = errors.New("a submission is already in progress")
	// ErrInvalidTransition is returned when an event does not apply to the
	// current phase.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// State is a snapshot of one session. The zero value is an idle session with
// no result.
type State struct {
	Phase Phase
	// Form is the last submitted form, echoed back when re-rendering.
	Form core.RawForm
	// Message is the single error shown to the user, if any.
	Message string
	// Notice is the transient success notice of the latest submission.
	Notice string
	// Result is the last successful analysis. Failures never clear it.
	Result *core.AnalysisResult
	// ResultGoal is the savings goal Result was computed for. Form changes
	// with every submit; this only changes with Result.
	ResultGoal string
}

// HasResult reports whether a successful analysis is on display.
func (s State) HasResult() bool {
	return s.Result != nil
}

type EventKind int

const (
	EventSubmit EventKind = iota
	EventValidationFailed
	EventValidated
	EventSucceeded
	EventFailed
	EventSettle
)

func (k EventKind) String() string {
	switch k {
	case EventSubmit:
		return "submit"
	case EventValidationFailed:
		return "validation_failed"
	case EventValidated:
		return "validated"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventSettle:
		return "settle"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is an input to Reduce. Only the fields relevant to Kind are read.
type Event struct {
	Kind    EventKind
	Form    core.RawForm
	Message string
	Result  core.AnalysisResult
}

func Submit(form core.RawForm) Event { return Event{Kind: EventSubmit, Form: form} }

func RejectValidation(msg string) Event { return Event{Kind: EventValidationFailed, Message: msg} }

func Accept() Event { return Event{Kind: EventValidated} }

func Succeed(result core.AnalysisResult, notice string) Event {
	return Event{Kind: EventSucceeded, Result: result, Message: notice}
}

func Fail(msg string) Event { return Event{Kind: EventFailed, Message: msg} }

func Settle() Event { return Event{Kind: EventSettle} }

// Reduce returns the state that follows s after ev. It never modifies s; on
// error s is returned unchanged.
//
// A submit from any resting phase settles it first, so a user can resubmit
// straight after seeing an error or a result.
func Reduce(s State, ev Event) (State, error) {
	switch ev.Kind {
	case EventSubmit:
		if !s.Phase.resting() {
			return s, ErrInFlight
		}
		next := s
		next.Phase = Validating
		next.Form = cloneForm(ev.Form)
		next.Notice = ""
		return next, nil

	case EventValidationFailed:
		if s.Phase != Validating {
			return s, transitionError(s.Phase, ev.Kind)
		}
		next := s
		next.Phase = ValidationFailed
		next.Message = ev.Message
		return next, nil

	case EventValidated:
		if s.Phase != Validating {
			return s, transitionError(s.Phase, ev.Kind)
		}
		next := s
		next.Phase = Submitting
		return next, nil

	case EventSucceeded:
		if s.Phase != Submitting {
			return s, transitionError(s.Phase, ev.Kind)
		}
		result := cloneResult(ev.Result)
		next := s
		next.Phase = Succeeded
		next.Message = ""
		next.Notice = ev.Message
		next.Result = &result
		next.ResultGoal = s.Form.SavingsGoal
		return next, nil

	case EventFailed:
		if s.Phase != Submitting {
			return s, transitionError(s.Phase, ev.Kind)
		}
		next := s
		next.Phase = Failed
		next.Message = ev.Message
		return next, nil

	case EventSettle:
		if s.Phase.Busy() {
			return s, transitionError(s.Phase, ev.Kind)
		}
		next := s
		next.Phase = Idle
		next.Notice = ""
		return next, nil
	}

	return s, fmt.Errorf("%w: unknown event %s", ErrInvalidTransition, ev.Kind)
}

func transitionError(p Phase, k EventKind) error {
	return fmt.Errorf("%w: %s in phase %s", ErrInvalidTransition, k, p)
}

func cloneForm(f core.RawForm) core.RawForm {
	f.Expenses = append([]core.RawExpense(nil), f.Expenses...)
	return f
}

func cloneResult(r core.AnalysisResult) core.AnalysisResult {
	r.CategorizedExpenses = append([]core.CategorizedExpense(nil), r.CategorizedExpenses...)
	return r
}
