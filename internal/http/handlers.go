package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"finform/internal/core"
	"finform/internal/log"
	"finform/internal/render"
	"finform/internal/session"
)

const sessionCookie = "finform_session"

// pageData is what index.html and the analysis partial render from.
type pageData struct {
	Form    core.RawForm
	Message string
	Notice  string
	Busy    bool
	Result  *render.View
}

func (s *Server) pageData(st session.State) pageData {
	data := pageData{
		Form:    st.Form,
		Message: st.Message,
		Notice:  st.Notice,
		Busy:    st.Phase.Busy(),
	}
	if len(data.Form.Expenses) == 0 {
		data.Form.Expenses = []core.RawExpense{core.NewRawExpense()}
	}
	if st.Result != nil {
		view := render.Summary(*st.Result, s.formatter)
		if goal, ok := core.ParseStrict(st.ResultGoal); ok {
			view.SavingsGoal = s.formatter.Currency(goal.InexactFloat64())
		}
		data.Result = &view
	}
	return data
}

// renderTemplate executes name into a buffer first so a template error never
// leaves a half-written page behind.
func (s *Server) renderTemplate(ctx context.Context, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.NewStructuredLogger(s.logger).LogError(ctx, "Template execution failed", err,
			log.ComponentTemplate, log.OpRender, log.LogFields{"template": name})
		return nil, err
	}
	return buf.Bytes(), nil
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the server can render pages. The analysis
// service is not probed: it is only contacted on behalf of a user.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	checks["sessions"] = map[string]any{
		"entries": s.sessions.Size(),
		"status":  "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleIndex renders the form and, if the session has one, the last result.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		InternalServerError("templates not loaded").Write(w)
		return
	}

	var st session.State
	if c, err := r.Cookie(sessionCookie); err == nil {
		st = s.sessions.Get(c.Value)
	}
	// A page load starts from a clean message line.
	st.Message = ""
	st.Notice = ""

	body, err := s.renderTemplate(r.Context(), "index.html", s.pageData(st))
	if err != nil {
		InternalServerError("Something went wrong rendering the page.").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(string(body)).Write(w)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("Page not found.").Write(w)
}

// handleExpenseRow returns one blank expense row for the form.
func (s *Server) handleExpenseRow(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.templates == nil {
		InternalServerError("templates not loaded").Write(w)
		return
	}
	body, err := s.renderTemplate(r.Context(), "expense_row", core.NewRawExpense())
	if err != nil {
		InternalServerError("Could not add a row.").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(string(body)).Write(w)
}

// sessionID returns the browser's session id, issuing a new cookie when the
// request carries none or a malformed one.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
