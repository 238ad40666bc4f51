package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leapstack-labs/leapdecide/internal/state"
	"github.com/leapstack-labs/leapdecide/pkg/decide"
	"github.com/leapstack-labs/leapdecide/pkg/dialect"
	"github.com/leapstack-labs/leapdecide/pkg/lint"
	"github.com/leapstack-labs/leapdecide/pkg/model"
)

// maxBodyBytes bounds a compile request body.
const maxBodyBytes = 1 << 20

// CompileRequest is the body of POST /v1/compile.
type CompileRequest struct {
	Source       string         `json:"source"`
	EntryPoint   string         `json:"entry_point,omitempty"`
	Dialect      string         `json:"dialect,omitempty"`
	Options      decide.Options `json:"options,omitempty"`
	Canonicalize bool           `json:"canonicalize,omitempty"`
	Record       bool           `json:"record,omitempty"`
}

// LintRequest is the body of POST /v1/lint.
type LintRequest struct {
	Source string `json:"source"`
}

// LintResponse lists the findings for one policy.
type LintResponse struct {
	Model       string            `json:"model"`
	Diagnostics []lint.Diagnostic `json:"diagnostics"`
}

// CompileResponse is a successful compile.
type CompileResponse struct {
	SQL           string `json:"sql"`
	Core          string `json:"core"`
	Window        string `json:"window"`
	Model         string `json:"model"`
	Dialect       string `json:"dialect"`
	WindowDays    int    `json:"window_days"`
	Canonicalized bool   `json:"canonicalized"`
	ID            string `json:"id,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// DialectInfo describes a registered dialect.
type DialectInfo struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Window  string   `json:"window"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

// statusFor maps a compile failure kind to an HTTP status.
func statusFor(kind decide.Kind) int {
	switch kind {
	case decide.KindParse, decide.KindConfig, decide.KindFlagCycle:
		return http.StatusBadRequest
	case decide.KindCanonicalize:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request", fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.EntryPoint == "" {
		req.EntryPoint = s.defaults.EntryPoint
	}
	if req.Dialect == "" {
		req.Dialect = s.defaults.Dialect
	}
	if _, ok := req.Options[decide.OptionWindowDays]; !ok {
		if req.Options == nil {
			req.Options = decide.Options{}
		}
		req.Options[decide.OptionWindowDays] = s.defaults.WindowDays
	}

	compiler := s.compiler
	if req.Canonicalize {
		if s.canonical == nil {
			writeError(w, http.StatusBadRequest, string(decide.KindConfig), errors.New("canonicalization is not enabled on this server"))
			return
		}
		compiler = s.canonical
	}

	start := time.Now()
	res, err := compiler.CompileResult(r.Context(), req.Source, req.EntryPoint, req.Dialect, req.Options)
	if err != nil {
		kind := decide.KindOf(err)
		s.metrics.ObserveCompile(dialectLabel(req.Dialect), string(kind), time.Since(start))
		s.logger.Debug("compile failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())))
		writeError(w, statusFor(kind), string(kind), err)
		return
	}
	s.metrics.ObserveCompile(res.Dialect, "ok", time.Since(start))

	resp := CompileResponse{
		SQL:           res.SQL,
		Core:          res.Core,
		Window:        res.Window,
		Model:         res.Model.Name(),
		Dialect:       res.Dialect,
		WindowDays:    res.WindowDays,
		Canonicalized: res.Canonicalized,
	}

	if s.store != nil && (req.Record || s.recordAll) {
		c := &state.Compilation{
			ModelName:     res.Model.Name(),
			EntryPoint:    req.EntryPoint,
			Dialect:       res.Dialect,
			WindowDays:    res.WindowDays,
			SourceHash:    state.HashSource(req.Source),
			SQL:           res.SQL,
			Canonicalized: res.Canonicalized,
		}
		if err := s.store.Record(r.Context(), c); err != nil {
			s.logger.Error("failed to record compilation", "error", err)
		} else {
			s.metrics.ObserveRecord()
			resp.ID = c.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	var req LintRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request", fmt.Errorf("invalid request body: %w", err))
		return
	}

	m, err := model.Parse(req.Source)
	if err != nil {
		kind := decide.KindOf(err)
		writeError(w, statusFor(kind), string(kind), err)
		return
	}

	diags := s.linter.Analyze(m)
	if diags == nil {
		diags = []lint.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, LintResponse{Model: m.Name(), Diagnostics: diags})
}

// dialectLabel maps a requested tag to a bounded metrics label.
func dialectLabel(tag string) string {
	if d, ok := dialect.Get(tag); ok {
		return d.Name()
	}
	return "unknown"
}

func (s *Server) handleDialects(w http.ResponseWriter, _ *http.Request) {
	var out []DialectInfo
	for _, name := range dialect.List() {
		d, err := dialect.Lookup(name)
		if err != nil {
			continue
		}
		aliases := d.Aliases()
		if aliases == nil {
			aliases = []string{}
		}
		out = append(out, DialectInfo{Name: d.Name(), Aliases: aliases, Window: d.Style().String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListCompilations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history", errors.New("compile history is not enabled"))
		return
	}
	opts := state.ListOptions{
		ModelName: r.URL.Query().Get("model"),
		Dialect:   r.URL.Query().Get("dialect"),
		Limit:     50,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "request", fmt.Errorf("invalid limit %q", v))
			return
		}
		opts.Limit = n
	}
	list, err := s.store.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, string(decide.KindInternal), err)
		return
	}
	if list == nil {
		list = []*state.Compilation{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetCompilation(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history", errors.New("compile history is not enabled"))
		return
	}
	c, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, "history", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, string(decide.KindInternal), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
