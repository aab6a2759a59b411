package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"contractor/internal/adapters/export"
	"contractor/internal/adapters/http/perf"
	"contractor/internal/application/listutil"
	"contractor/internal/application/orchestrators"
	"contractor/internal/application/projections"
	"contractor/internal/domain/attendance"
	"contractor/internal/domain/roster"
	"contractor/internal/domain/worker"
)

// decimalAsFloat converts a decimal for validator tags. Out-of-range rates only
// keep their sign; worker.ValidateRate rejects them with a precise reason.
func decimalAsFloat(v decimal.Decimal) float64 {
	if worker.ValidateRate(v) == nil {
		f, _ := v.Float64()
		return f
	}
	return float64(v.Sign())
}

// perfTopN is how many slow paths and queries /api/v1/perf reports.
const perfTopN = 10

var validate = validator.New()

func init() {
	// money goes over the API as JSON numbers, matching the persisted layout
	decimal.MarshalJSONWithoutQuotes = true

	// decimal.Decimal validates as a float so tags like required and gt=0 work
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			return decimalAsFloat(v)
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

type addWorkerRequest struct {
	Name      string          `json:"name" validate:"required,max=200"`
	Role      string          `json:"role" validate:"max=100"`
	DailyRate decimal.Decimal `json:"dailyRate" validate:"required,gt=0"`
}

type markAttendanceRequest struct {
	Status string `json:"status" validate:"required,oneof=present absent"`
}

type selectedDateRequest struct {
	Date string `json:"date"` // empty resets to today
}

type recordResponse struct {
	Date   string            `json:"date"`
	Status attendance.Status `json:"status"`
	Hours  float64           `json:"hours"`
}

type workerResponse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Role       string           `json:"role"`
	DailyRate  decimal.Decimal  `json:"dailyRate"`
	Attendance []recordResponse `json:"attendance"`
}

type markAttendanceResponse struct {
	Result string         `json:"result"`
	Record recordResponse `json:"record"`
}

type selectedDateResponse struct {
	Date string `json:"date"`
}

type summaryResponse struct {
	MessageID string    `json:"messageId"`
	SentAt    time.Time `json:"sentAt"`
}

func toRecordResponse(rec attendance.Record) recordResponse {
	return recordResponse{Date: rec.Date, Status: rec.Status, Hours: rec.Hours}
}

func toWorkerResponse(w worker.Worker) workerResponse {
	resp := workerResponse{
		ID:         w.ID,
		Name:       w.Name,
		Role:       w.Role,
		DailyRate:  w.DailyRate,
		Attendance: make([]recordResponse, 0, len(w.Attendance)),
	}
	for _, rec := range w.Attendance {
		resp.Attendance = append(resp.Attendance, toRecordResponse(rec))
	}
	return resp
}

// handleAPIBoard returns the board for ?date= with ?q=, ?sort= and ?dir= applied.
func (s *Server) handleAPIBoard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	board, err := projections.QueryGetBoard(r.Context(), projections.GetBoardQuery{
		Date:       q.Get("date"),
		ListParams: listutil.ParseListParams(q, projections.BoardSortColumns),
	}, projections.GetBoardDeps{Roster: s.store})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, board)
}

// handleAPIListWorkers returns every worker with its attendance, in insertion order.
func (s *Server) handleAPIListWorkers(w http.ResponseWriter, _ *http.Request) {
	workers := s.store.Snapshot().Workers()
	resp := make([]workerResponse, 0, len(workers))
	for _, wk := range workers {
		resp = append(resp, toWorkerResponse(wk))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAPIAddWorker creates a worker and returns it with 201.
func (s *Server) handleAPIAddWorker(w http.ResponseWriter, r *http.Request) {
	var req addWorkerRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	wk, res := s.store.AddWorker(r.Context(), req.Name, req.Role, req.DailyRate)
	if !res.OK() {
		s.writeResult(w, res)
		return
	}
	s.writeJSON(w, http.StatusCreated, toWorkerResponse(wk))
}

func (s *Server) handleAPIGetWorker(w http.ResponseWriter, r *http.Request) {
	wk, ok := s.store.Worker(r.PathValue("id"))
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, roster.ErrWorkerNotFound.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toWorkerResponse(wk))
}

// handleAPIDeleteWorker removes a worker and all its records.
func (s *Server) handleAPIDeleteWorker(w http.ResponseWriter, r *http.Request) {
	res := s.store.DeleteWorker(r.Context(), r.PathValue("id"))
	if !res.OK() {
		s.writeResult(w, res)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIWorkerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := projections.QueryGetWorkerStats(r.Context(), projections.GetWorkerStatsQuery{WorkerID: r.PathValue("id")},
		projections.GetWorkerStatsDeps{Roster: s.store})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleAPIGetAttendance returns the record for one worker and date.
func (s *Server) handleAPIGetAttendance(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if err := attendance.ValidateDate(date); err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	wk, ok := s.store.Worker(r.PathValue("id"))
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, roster.ErrWorkerNotFound.Error())
		return
	}
	rec, ok := wk.AttendanceFor(date)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no attendance record for "+date)
		return
	}
	s.writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

// handleAPIMarkAttendance sets a worker's status on a date.
// Responds 200 with result "applied" or "unchanged".
func (s *Server) handleAPIMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req markAttendanceRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	id, date := r.PathValue("id"), r.PathValue("date")
	res := s.store.MarkAttendance(r.Context(), id, date, attendance.Status(req.Status))
	if res.Status == roster.StatusRejected || res.Status == roster.StatusNotFound {
		s.writeResult(w, res)
		return
	}
	wk, ok := s.store.Worker(id)
	if !ok {
		// deleted between the mark and the read
		s.writeJSONError(w, http.StatusNotFound, roster.ErrWorkerNotFound.Error())
		return
	}
	rec, _ := wk.AttendanceFor(date)
	s.writeJSON(w, http.StatusOK, markAttendanceResponse{Result: string(res.Status), Record: toRecordResponse(rec)})
}

func (s *Server) handleAPIGetSelectedDate(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, selectedDateResponse{Date: s.store.SelectedDate()})
}

func (s *Server) handleAPISetSelectedDate(w http.ResponseWriter, r *http.Request) {
	var req selectedDateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.store.SetSelectedDate(req.Date); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, selectedDateResponse{Date: s.store.SelectedDate()})
}

// handleAPIPayrollExport streams the board for ?date= as an xlsx download.
func (s *Server) handleAPIPayrollExport(w http.ResponseWriter, r *http.Request) {
	board, err := projections.QueryGetBoard(r.Context(), projections.GetBoardQuery{Date: r.URL.Query().Get("date")},
		projections.GetBoardDeps{Roster: s.store})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePayroll(&buf, board); err != nil {
		slog.Error("payroll_export_failed", "date", board.Date, "error", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to build payroll export")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(board.Date)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("response_write_failed", "error", err)
	}
}

// handleAPISendSummary emails the payroll summary for ?date= to the configured recipients.
func (s *Server) handleAPISendSummary(w http.ResponseWriter, r *http.Request) {
	receipt, err := orchestrators.ExecuteSendPayrollSummary(r.Context(), orchestrators.SendPayrollSummaryInput{
		Date: r.URL.Query().Get("date"),
		To:   s.summaryTo,
	}, orchestrators.SendPayrollSummaryDeps{
		Roster:      s.store,
		EmailSender: s.emailSender,
		FromAddress: s.emailFrom,
	})
	switch {
	case errors.Is(err, orchestrators.ErrNoSummaryRecipients):
		s.writeJSONError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, attendance.ErrInvalidDate):
		s.writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		slog.Error("email_event", "event", "payroll_summary_failed", "error", err)
		s.writeJSONError(w, http.StatusBadGateway, "failed to send payroll summary")
		return
	}
	s.writeJSON(w, http.StatusOK, summaryResponse{MessageID: receipt.MessageID, SentAt: receipt.SentAt})
}

// handleAPIPerf returns timing percentiles and the slowest paths since ?since= (a Go duration, default 1h).
func (s *Server) handleAPIPerf(w http.ResponseWriter, r *http.Request) {
	window := time.Hour
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, "since must be a positive duration like 15m")
			return
		}
		window = d
	}
	if s.collector == nil {
		s.writeJSON(w, http.StatusOK, perf.Snapshot{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.collector.Snapshot(time.Now().Add(-window), perfTopN))
}

// decodeAndValidate strictly decodes the JSON body into v and runs validator tags.
// Writes 400 or 422 and returns false on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			internalError(w, err)
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": fields})
		return false
	}
	return true
}

// writeResult maps a result that did not apply to its HTTP status.
func (s *Server) writeResult(w http.ResponseWriter, res roster.Result) {
	switch res.Status {
	case roster.StatusNotFound:
		s.writeJSONError(w, http.StatusNotFound, res.Err().Error())
	case roster.StatusRejected:
		s.writeJSONError(w, http.StatusUnprocessableEntity, res.Err().Error())
	default:
		s.writeJSON(w, http.StatusOK, map[string]string{"result": string(res.Status)})
	}
}

// writeDomainError maps lookup misses to 404 and validation errors to 422.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roster.ErrWorkerNotFound):
		s.writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, attendance.ErrInvalidDate):
		s.writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("internal_error", "error", err.Error())
		s.writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes data as JSON with the given status
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("json_encode_failed", "error", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
