package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/csvdxf/internal/core"
	"github.com/JonMunkholm/csvdxf/internal/logging"
	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/pipeline"
	"github.com/JonMunkholm/csvdxf/internal/profile"
	"github.com/JonMunkholm/csvdxf/internal/runstore"
	"github.com/JonMunkholm/csvdxf/internal/web/templates"
)

var errNoFile = errors.New("no file provided")

// runView is the API form of a draft. The server-side source path is
// reduced to its base name.
type runView struct {
	RunID          uuid.UUID               `json:"run_id"`
	Source         string                  `json:"source"`
	Rows           int                     `json:"rows"`
	Columns        []string                `json:"columns"`
	Profiles       []profile.ColumnProfile `json:"profiles"`
	Assignments    []mapping.Assignment    `json:"assignments"`
	Warnings       []mapping.Warning       `json:"warnings"`
	Manual         bool                    `json:"manual"`
	Inferences     int                     `json:"inferences"`
	InferenceError string                  `json:"inference_error,omitempty"`
	ConfirmURL     string                  `json:"confirm_url"`
}

func newRunView(d *pipeline.Draft) runView {
	return runView{
		RunID:          d.RunID,
		Source:         displayName(d.Source),
		Rows:           d.Rows,
		Columns:        d.Columns,
		Profiles:       d.Profiles,
		Assignments:    d.Mapping.Assignments,
		Warnings:       d.Mapping.Warnings,
		Manual:         d.Manual(),
		Inferences:     d.Inferences,
		InferenceError: d.InferenceError,
		ConfirmURL:     "/runs/" + d.RunID.String(),
	}
}

// Uploaded files are stored as "<uuid>_<original name>".
func displayName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '_'); i == 36 {
		return base[i+1:]
	}
	return base
}

// handleCreateRun stores the uploaded file and analyzes it. The response is
// the draft to confirm. With manual=true inference is skipped.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Run.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			err = errNoFile
		}
		s.respondError(w, r, fmt.Errorf("parse upload: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	path, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	manual, _ := strconv.ParseBool(r.FormValue("manual"))
	analyze := s.service.Analyze
	if manual {
		analyze = s.service.AnalyzeManual
	}

	d, err := analyze(r.Context(), path)
	if d == nil {
		os.Remove(path)
		s.respondError(w, r, err)
		return
	}
	if err != nil {
		// The draft is usable for manual mapping; the error is in the view.
		logging.FromContext(r.Context()).Warn("run needs manual mapping", "run_id", d.RunID, "error", err)
	}

	w.Header().Set("Location", "/api/runs/"+d.RunID.String())
	writeJSON(w, http.StatusCreated, newRunView(d))
}

func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}

	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = "upload.csv"
	}
	path := filepath.Join(s.workDir, uuid.NewString()+"_"+base)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("store upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path, nil
}

func runID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("run %q: %w", chi.URLParam(r, "runID"), runstore.ErrNotFound)
	}
	return id, nil
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	d, err := s.service.Draft(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRunView(d))
}

func (s *Server) handleReinfer(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	d, err := s.service.Reinfer(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRunView(d))
}

// handleConfirm applies the decision and answers with the DXF file. JSON
// bodies carry {"overrides": {"column": "ROLE"}}; form posts from the
// confirmation page carry one role field per column.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	d, err := s.service.Draft(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	dec, err := s.readDecision(r, d)
	if err != nil {
		s.respondError(w, r, &core.DecisionError{Err: err})
		return
	}

	var buf bytes.Buffer
	res, err := s.service.Confirm(r.Context(), id, dec, &buf)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := os.Remove(d.Source); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.FromContext(r.Context()).Warn("failed to remove upload", "path", d.Source, "error", err)
	}

	name := strings.TrimSuffix(displayName(d.Source), filepath.Ext(d.Source)) + ".dxf"
	w.Header().Set("Content-Type", "application/dxf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Rows", strconv.Itoa(res.Rows))
	w.Header().Set("X-Skipped-Rows", strconv.Itoa(res.Skipped))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) readDecision(r *http.Request, d *pipeline.Draft) (pipeline.Decision, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return formDecision(r, d)
	}

	var body struct {
		Overrides map[string]string `json:"overrides"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return pipeline.Decision{}, err
	}
	if len(body.Overrides) == 0 {
		return pipeline.Decision{}, nil
	}

	overrides := make(map[string]mapping.Role, len(body.Overrides))
	for col, v := range body.Overrides {
		role, err := mapping.ParseRole(v)
		if err != nil {
			return pipeline.Decision{}, fmt.Errorf("column %q: %w", col, err)
		}
		overrides[col] = role
	}
	return pipeline.Decision{Overrides: overrides}, nil
}

// formDecision keeps only the roles the user changed.
func formDecision(r *http.Request, d *pipeline.Draft) (pipeline.Decision, error) {
	if err := r.ParseForm(); err != nil {
		return pipeline.Decision{}, err
	}

	overrides := make(map[string]mapping.Role)
	for key, values := range r.PostForm {
		col, ok := strings.CutPrefix(key, templates.FieldPrefix)
		if !ok || len(values) == 0 {
			continue
		}
		role, err := mapping.ParseRole(values[0])
		if err != nil {
			return pipeline.Decision{}, fmt.Errorf("column %q: %w", col, err)
		}
		if current, ok := d.Mapping.Role(col); !ok || current != role {
			overrides[col] = role
		}
	}
	if len(overrides) == 0 {
		return pipeline.Decision{}, nil
	}
	return pipeline.Decision{Overrides: overrides}, nil
}

func (s *Server) handleConfirmPage(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	d, err := s.service.Draft(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Confirm(confirmPage(d)).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render confirm page", "error", err)
	}
}

func confirmPage(d *pipeline.Draft) templates.ConfirmPage {
	page := templates.ConfirmPage{
		RunID:          d.RunID.String(),
		Source:         displayName(d.Source),
		Rows:           d.Rows,
		InferenceError: d.InferenceError,
	}
	for _, r := range mapping.Roles {
		page.Roles = append(page.Roles, string(r))
	}
	for _, warn := range d.Mapping.Warnings {
		page.Warnings = append(page.Warnings, warn.String())
	}

	profiles := profile.ByName(d.Profiles)
	for _, a := range d.Mapping.Assignments {
		p := profiles[a.Column]
		page.Columns = append(page.Columns, templates.ConfirmColumn{
			Name:       a.Column,
			Role:       string(a.Role),
			Confidence: a.Confidence,
			Source:     string(a.Source),
			Rationale:  a.Rationale,
			Type:       p.Type.String(),
			Samples:    p.Samples,
		})
	}
	return page
}
