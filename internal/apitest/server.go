// Package apitest provides a scripted, in-process fake of the star plan
// service for tests.
package apitest

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
	"github.com/c001-ZHSH/star-plan-analysis/pkg/log"
	"github.com/c001-ZHSH/star-plan-analysis/pkg/requestid"
)

const DownloadName = "大學繁星校系分則分析.xlsx"

type failure struct {
	code    int
	message string
}

// Server answers the endpoints of the service from a script. Statuses are
// served in order; the last one repeats.
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	universities   []client.Target
	jobID          string
	statuses       []client.JobStatus
	failPolls      int
	preview        []map[string]any
	fetchFailure   *failure
	startFailure   *failure
	previewFailure *failure

	fetchRequests []client.SourceRequest
	startRequests []client.StartRequest
	statusCalls   map[string]int
	previewCalls  map[string]int
	downloadCalls map[string]int
	requestIDs    []string
}

func NewServer() *Server {
	return NewServerWithLogger(zap.NewNop())
}

func NewServerWithLogger(l *zap.Logger) *Server {
	s := &Server{
		jobID:         "job-1",
		statusCalls:   map[string]int{},
		previewCalls:  map[string]int{},
		downloadCalls: map[string]int{},
	}

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(log.Logger(l, "apitest"))
	router.Use(s.count)
	router.Post("/api/fetch_universities", s.fetchUniversities)
	router.Post("/api/start", s.start)
	router.Get("/api/status/{jobID}", s.status)
	router.Get("/api/preview/{jobID}", s.previewRows)
	router.Get("/api/download/{jobID}", s.download)

	s.Server = httptest.NewServer(router)
	return s
}

func (s *Server) SetUniversities(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.universities = make([]client.Target, 0, len(names))
	for _, n := range names {
		s.universities = append(s.universities, client.Target{Name: n})
	}
}

func (s *Server) SetJobID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobID = id
}

func (s *Server) SetStatuses(statuses ...client.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = statuses
}

// FailPolls makes the next n status polls answer 503.
func (s *Server) FailPolls(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPolls = n
}

func (s *Server) SetPreview(rows ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview = rows
}

func (s *Server) FailFetch(code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchFailure = &failure{code: code, message: message}
}

func (s *Server) FailStart(code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startFailure = &failure{code: code, message: message}
}

func (s *Server) FailPreview(code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewFailure = &failure{code: code, message: message}
}

func (s *Server) FetchRequests() []client.SourceRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]client.SourceRequest(nil), s.fetchRequests...)
}

func (s *Server) StartRequests() []client.StartRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]client.StartRequest(nil), s.startRequests...)
}

func (s *Server) StatusCalls(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusCalls[jobID]
}

func (s *Server) PreviewCalls(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewCalls[jobID]
}

func (s *Server) DownloadCalls(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloadCalls[jobID]
}

// Requests counts every request the server received.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requestIDs)
}

// RequestIDs lists the request id of every request, in arrival order.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requestIDs = append(s.requestIDs, requestid.FromRequest(r))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) fetchUniversities(w http.ResponseWriter, r *http.Request) {
	var req client.SourceRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.fetchRequests = append(s.fetchRequests, req)
	fail := s.fetchFailure
	resp := client.UniversitiesResponse{Universities: append([]client.Target{}, s.universities...)}
	s.mu.Unlock()

	if req.URL == "" {
		writeError(w, r, http.StatusBadRequest, "請提供網址")
		return
	}
	if fail != nil {
		writeError(w, r, fail.code, fail.message)
		return
	}
	render.JSON(w, r, resp)
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	var req client.StartRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.startRequests = append(s.startRequests, req)
	fail := s.startFailure
	jobID := s.jobID
	s.mu.Unlock()

	if req.URL == "" {
		writeError(w, r, http.StatusBadRequest, "請提供網址")
		return
	}
	if fail != nil {
		writeError(w, r, fail.code, fail.message)
		return
	}
	render.JSON(w, r, client.StartResponse{JobID: jobID})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	s.mu.Lock()
	s.statusCalls[jobID]++
	if s.failPolls > 0 {
		s.failPolls--
		s.mu.Unlock()
		writeError(w, r, http.StatusServiceUnavailable, "temporarily unavailable")
		return
	}
	st, ok := s.currentStatusLocked(jobID)
	s.mu.Unlock()

	if !ok {
		writeError(w, r, http.StatusNotFound, "Job not found")
		return
	}
	render.JSON(w, r, st)
}

// currentStatusLocked returns the scripted status for the n-th successful
// poll of jobID.
func (s *Server) currentStatusLocked(jobID string) (client.JobStatus, bool) {
	if jobID != s.jobID || len(s.statuses) == 0 {
		return client.JobStatus{}, false
	}
	served := s.statusCalls[jobID] - 1
	if served >= len(s.statuses) {
		served = len(s.statuses) - 1
	}
	return s.statuses[served], true
}

func (s *Server) completedLocked(jobID string) bool {
	if jobID != s.jobID || len(s.statuses) == 0 {
		return false
	}
	return s.statuses[len(s.statuses)-1].Status == client.StatusCompleted
}

func (s *Server) previewRows(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	s.mu.Lock()
	s.previewCalls[jobID]++
	fail := s.previewFailure
	rows := append([]map[string]any{}, s.preview...)
	known := jobID == s.jobID
	s.mu.Unlock()

	if !known {
		writeError(w, r, http.StatusNotFound, "Job not found")
		return
	}
	if fail != nil {
		writeError(w, r, fail.code, fail.message)
		return
	}
	render.JSON(w, r, map[string]any{"preview": rows})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	s.mu.Lock()
	s.downloadCalls[jobID]++
	ready := s.completedLocked(jobID)
	rows := append([]map[string]any{}, s.preview...)
	s.mu.Unlock()

	if !ready {
		writeError(w, r, http.StatusNotFound, "File not ready")
		return
	}

	content, err := Workbook(rows)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": DownloadName}))
	_, _ = w.Write(content)
}

// Columns of the generated workbook, in order.
var Columns = []string{
	client.FieldSchool,
	client.FieldDepartment,
	client.FieldQuota,
	client.FieldChinese,
	client.FieldEnglish,
	client.FieldMathA,
	client.FieldMathB,
	client.FieldSocial,
	client.FieldScience,
}

// Workbook builds an xlsx file with one row per entry of rows.
func Workbook(rows []map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, col := range Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return nil, err
		}
	}
	for r, row := range rows {
		for i, col := range Columns {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	render.Status(r, code)
	render.JSON(w, r, client.ErrorResponse{Error: message})
}
