package proxy

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/vango-dev/wiretap/internal/errors"
	"github.com/vango-dev/wiretap/pkg/session"
	"github.com/vango-dev/wiretap/pkg/store"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   string `json:"cause,omitempty"`
}

type stateResponse struct {
	StateCode string         `json:"stateCode"`
	Fields    map[string]any `json:"fields,omitempty"`
	Transport string         `json:"transport,omitempty"`
}

type stateRequest struct {
	StateCode string `json:"stateCode"`
}

type figureRequest struct {
	Figure string `json:"figure"`
	Gender string `json:"gender"`
}

type recordRequest struct {
	Name      string `json:"name"`
	StateCode string `json:"stateCode"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	we := errors.Classify(err, fallback)
	status := we.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", we.Code,
			"error", err,
		)
	}

	resp := errorResponse{
		Code:    we.Code,
		Message: we.Message,
		Detail:  we.Detail,
	}
	if we.Wrapped != nil {
		resp.Cause = we.Wrapped.Error()
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, errors.New("W007").WithDetail(err.Error()), "W007")
}

// currentState returns the session state or answers 503 when no relay has
// run yet.
func (s *Server) currentState(w http.ResponseWriter, r *http.Request) *session.State {
	st := s.State()
	if st == nil {
		s.writeError(w, r, errors.New("W001").
			WithDetail("No client has connected through /ws yet."), "W001")
	}
	return st
}

func (s *Server) waitParam(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("wait")
	if raw == "" {
		return s.config.WaitTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.Newf(errors.CategoryRuntime, "wait must be positive, got %s", raw)
	}
	return d, nil
}

func stateBody(st *session.State, code string) stateResponse {
	resp := stateResponse{
		StateCode: code,
		Fields:    st.Fields(),
	}
	if t := st.Transport(); t != nil {
		resp.Transport = t.ID()
	}
	return resp
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := render.M{
		"status": "ok",
		"relay":  false,
	}
	if rl := s.Active(); rl != nil && rl.Upstream() != nil {
		resp["relay"] = true
		resp["transport"] = rl.Upstream().ID()
		resp["stats"] = rl.Upstream().Stats()
	}
	render.JSON(w, r, resp)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	wait, err := s.waitParam(r)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	st := s.currentState(w, r)
	if st == nil {
		return
	}
	code, err := st.CurrentState(r.Context(), wait)
	if err != nil {
		s.writeError(w, r, err, "W002")
		return
	}
	render.JSON(w, r, stateBody(st, code))
}

func (s *Server) putState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	st := s.currentState(w, r)
	if st == nil {
		return
	}
	if err := st.ApplyState(r.Context(), req.StateCode); err != nil {
		s.writeError(w, r, err, "W003")
		return
	}
	render.JSON(w, r, stateBody(st, st.StateCode()))
}

func (s *Server) putFigure(w http.ResponseWriter, r *http.Request) {
	var req figureRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	st := s.currentState(w, r)
	if st == nil {
		return
	}
	if err := st.UpdateFigure(r.Context(), req.Figure, req.Gender); err != nil {
		s.writeError(w, r, err, "W003")
		return
	}
	render.JSON(w, r, stateBody(st, st.StateCode()))
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	records := s.catalog.List()
	if records == nil {
		records = []store.Record{}
	}
	render.JSON(w, r, records)
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	rec, err := s.catalog.Create(r.Context(), req.Name, req.StateCode)
	if err != nil {
		s.writeError(w, r, err, "W121")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

// captureRecord saves the current state code under the given name.
func (s *Server) captureRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	wait, err := s.waitParam(r)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	st := s.currentState(w, r)
	if st == nil {
		return
	}
	code, err := st.CurrentState(r.Context(), wait)
	if err != nil {
		s.writeError(w, r, err, "W002")
		return
	}
	rec, err := s.catalog.Create(r.Context(), req.Name, code)
	if err != nil {
		s.writeError(w, r, err, "W121")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, "W121")
		return
	}
	render.JSON(w, r, rec)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req recordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.badRequest(w, r, err)
		return
	}
	if req.StateCode == "" {
		// A rename keeps the saved code.
		cur, err := s.catalog.Get(id)
		if err != nil {
			s.writeError(w, r, err, "W121")
			return
		}
		req.StateCode = cur.StateCode
	}
	rec, err := s.catalog.Update(r.Context(), id, req.Name, req.StateCode)
	if err != nil {
		s.writeError(w, r, err, "W121")
		return
	}
	render.JSON(w, r, rec)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err, "W121")
		return
	}
	render.NoContent(w, r)
}

// applyRecord sends a saved record's state code upstream.
func (s *Server) applyRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err, "W121")
		return
	}
	st := s.currentState(w, r)
	if st == nil {
		return
	}
	if err := st.ApplyState(r.Context(), rec.StateCode); err != nil {
		s.writeError(w, r, err, "W003")
		return
	}
	render.JSON(w, r, stateBody(st, st.StateCode()))
}
