package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"finform/internal/analysis"
	"finform/internal/core"
	"finform/internal/log"
	"finform/internal/middleware/trace"
	"finform/internal/session"
)

const (
	// FailureMessage is shown for every transport or malformed-result failure.
	FailureMessage = "Failed to fetch data. Check backend or internet."
	SuccessNotice  = "Analysis complete."
	InFlightNotice = "An analysis is already running. Please wait for it to finish."
)

// handleAnalyze runs one submission through the session lifecycle:
// submit, validate, call the analyzer, settle.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form submission.").Write(w)
		return
	}
	form, err := ParseAnalysisForm(r.PostForm)
	if err != nil {
		BadRequestError("Too many expense rows.").Write(w)
		return
	}

	ctx := r.Context()
	sid := s.sessionID(w, r)
	logger := log.FromContext(ctx).WithComponent(log.ComponentIntake).With(log.FieldSessionID, sid)
	structured := log.NewStructuredLogger(logger)

	st, err := s.sessions.Dispatch(sid, session.Submit(form))
	if errors.Is(err, session.ErrInFlight) {
		s.metrics.conflicts.Inc()
		logger.WarnContext(ctx, "Submission refused, another one is in flight",
			log.FieldPhase, st.Phase.String(),
			log.FieldErrorType, log.ErrorTypeConflict)
		// The in-flight submission owns the message line; show it as is.
		s.respond(w, r, http.StatusConflict, st, func(b *HTMXResponseBuilder) {
			b.TriggerWarningNotification(InFlightNotice)
		})
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "Session dispatch failed", log.FieldError, err)
		InternalServerError("Something went wrong. Please try again.").Write(w)
		return
	}

	expenses := make([]core.ExpenseEntry, 0, len(form.Expenses))
	for _, raw := range form.Expenses {
		expenses = append(expenses, core.NormalizeExpense(raw))
	}
	rec := core.AnalysisRecord{
		RequestID:      trace.GetRequestID(ctx),
		ExpenseCount:   len(expenses),
		YearlyExpenses: core.TotalYearlyCost(expenses),
	}
	if income, ok := core.ParseStrict(form.Income); ok {
		rec.Income = income
	}

	req, err := s.validator.Validate(form)
	if err != nil {
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			verr = &core.ValidationError{Rule: core.RuleIncome, Message: err.Error()}
		}
		st = s.advance(ctx, logger, sid, st, session.RejectValidation(verr.Message))
		s.settle(ctx, logger, sid, st)

		s.metrics.validationFailures.WithLabelValues(string(verr.Rule)).Inc()
		s.metrics.observeOutcome(core.OutcomeValidationFailed)
		structured.LogValidationFailed(ctx, string(verr.Rule), len(expenses))

		rec.Outcome = core.OutcomeValidationFailed
		rec.Rule = verr.Rule
		s.record(ctx, logger, rec)

		s.respond(w, r, http.StatusUnprocessableEntity, st, nil)
		return
	}

	st = s.advance(ctx, logger, sid, st, session.Accept())

	started := time.Now()
	result, err := s.analyzer.Analyze(ctx, req)
	elapsed := time.Since(started)
	s.metrics.analysisDuration.Observe(elapsed.Seconds())
	rec.LatencyMs = elapsed.Milliseconds()
	rec.Income = req.Income

	if err != nil {
		rec.Outcome = s.logAnalysisFailure(ctx, logger, err)
		st = s.advance(ctx, logger, sid, st, session.Fail(FailureMessage))
		s.settle(ctx, logger, sid, st)

		s.metrics.observeOutcome(rec.Outcome)
		s.record(ctx, logger, rec)

		s.respond(w, r, http.StatusBadGateway, st, func(b *HTMXResponseBuilder) {
			b.TriggerErrorNotification(FailureMessage)
		})
		return
	}

	st = s.advance(ctx, logger, sid, st, session.Succeed(result, SuccessNotice))
	s.settle(ctx, logger, sid, st)

	aligned := result.GoalAlignment
	s.metrics.observeOutcome(core.OutcomeAccepted)
	structured.LogAnalysisCompleted(ctx, len(req.Expenses), req.YearlyExpenses().String(), aligned, rec.LatencyMs)

	rec.Outcome = core.OutcomeAccepted
	rec.GoalAlignment = &aligned
	s.record(ctx, logger, rec)

	s.respond(w, r, http.StatusOK, st, func(b *HTMXResponseBuilder) {
		b.TriggerSuccessNotification(SuccessNotice).TriggerAnalysisCompleted(aligned)
	})
}

// logAnalysisFailure logs err and maps it to a journal outcome.
func (s *Server) logAnalysisFailure(ctx context.Context, logger *log.Logger, err error) core.Outcome {
	logger = logger.WithComponent(log.ComponentAnalysis)

	var malformed *analysis.MalformedError
	var status *analysis.StatusError
	switch {
	case errors.As(err, &malformed):
		logger.ErrorContext(ctx, "Analyzer returned a malformed result",
			log.FieldOperation, log.OpAnalyze,
			log.FieldErrorType, log.ErrorTypeMalformed,
			log.FieldMissingField, malformed.Field,
			log.FieldError, err)
		return core.OutcomeMalformedResult
	case errors.Is(err, analysis.ErrMalformedResult):
		logger.ErrorContext(ctx, "Analyzer returned a malformed result",
			log.FieldOperation, log.OpAnalyze,
			log.FieldErrorType, log.ErrorTypeMalformed,
			log.FieldError, err)
		return core.OutcomeMalformedResult
	case errors.As(err, &status):
		logger.ErrorContext(ctx, "Analyzer rejected the request",
			log.FieldOperation, log.OpAnalyze,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldUpstream, status.StatusCode,
			log.FieldError, err)
	case errors.Is(err, context.DeadlineExceeded):
		logger.ErrorContext(ctx, "Analyzer timed out",
			log.FieldOperation, log.OpAnalyze,
			log.FieldErrorType, log.ErrorTypeTimeout,
			log.FieldError, err)
	case errors.Is(err, context.Canceled):
		logger.InfoContext(ctx, "Analysis abandoned by the client",
			log.FieldOperation, log.OpAnalyze,
			log.FieldError, err)
	default:
		logger.ErrorContext(ctx, "Analyzer unreachable",
			log.FieldOperation, log.OpAnalyze,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
	}
	return core.OutcomeTransportFailed
}

// advance applies ev to the stored session. If the session was evicted while
// the submission was running, the transition is applied to the local copy
// so the response still reflects it.
func (s *Server) advance(ctx context.Context, logger *log.Logger, sid string, cur session.State, ev session.Event) session.State {
	next, err := s.sessions.Dispatch(sid, ev)
	if err == nil {
		return next
	}
	if errors.Is(err, session.ErrExpired) {
		logger.WithComponent(log.ComponentSession).WarnContext(ctx, "Session expired during submission",
			log.FieldPhase, cur.Phase.String())
		if local, rerr := session.Reduce(cur, ev); rerr == nil {
			return local
		}
		return cur
	}
	logger.WithComponent(log.ComponentSession).ErrorContext(ctx, "Session transition failed",
		log.FieldPhase, cur.Phase.String(),
		log.FieldError, err)
	return cur
}

// settle returns the session to Idle. The caller keeps rendering from the
// terminal state it already holds, since settling clears the notice.
func (s *Server) settle(ctx context.Context, logger *log.Logger, sid string, cur session.State) {
	s.advance(ctx, logger, sid, cur, session.Settle())
}

// record journals rec off the request path so a slow journal never holds up
// the response. Shutdown waits for writes still pending.
func (s *Server) record(ctx context.Context, logger *log.Logger, rec core.AnalysisRecord) {
	if s.journal == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.journal.Record(ctx, rec); err != nil {
			s.metrics.journalFailures.Inc()
			logger.WithComponent(log.ComponentJournal).WarnContext(ctx, "Journal record dropped",
				log.FieldOutcome, rec.Outcome,
				log.FieldError, err)
		}
	}()
}

// respond writes the analysis partial for htmx requests and the full page
// otherwise, so the form also works without JavaScript.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, st session.State, decorate func(*HTMXResponseBuilder)) {
	if s.templates == nil {
		msg := st.Message
		if msg == "" {
			msg = "templates not loaded"
		}
		ErrorResponse(status, msg).Write(w)
		return
	}

	name := "index.html"
	if isHTMX(r) {
		name = "analysis"
	}
	body, err := s.renderTemplate(r.Context(), name, s.pageData(st))
	if err != nil {
		InternalServerError("Something went wrong rendering the result.").Write(w)
		return
	}

	b := NewHTMXResponse().
		Status(status).
		Header("Vary", "HX-Request").
		BodyHTML(string(body))
	if decorate != nil && isHTMX(r) {
		decorate(b)
	}
	b.Write(w)
}
