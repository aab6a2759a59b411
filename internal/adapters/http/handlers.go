package web

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/csrf"
	"github.com/shopspring/decimal"

	"contractor/internal/adapters/http/middleware"
	"contractor/internal/application/listutil"
	"contractor/internal/application/projections"
	"contractor/internal/domain/attendance"
	"contractor/internal/domain/roster"
	"contractor/internal/domain/worker"
)

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

// sortHeader is one sortable column heading on the board.
type sortHeader struct {
	Label  string
	URL    template.URL
	Active bool
	Dir    string
}

// boardPage is the data the board template renders.
type boardPage struct {
	Board        projections.GetBoardResult
	SelectedDate string
	Search       string
	Sort         string
	Dir          string
	Headers      map[string]sortHeader
	Roles        []string
	DefaultRole  string
	Error        string
	CSRFField    string
	CSRFToken    string
}

var boardColumnLabels = map[string]string{
	projections.SortName:   "Name",
	projections.SortRole:   "Role",
	projections.SortRate:   "Daily Rate",
	projections.SortAmount: "Amount Owed",
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// handleBoardPage renders the roster table for ?date= or the selected date.
func (s *Server) handleBoardPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := listutil.ParseListParams(q, projections.BoardSortColumns)
	errMsg := q.Get("error")

	deps := projections.GetBoardDeps{Roster: s.store}
	board, err := projections.QueryGetBoard(r.Context(), projections.GetBoardQuery{Date: q.Get("date"), ListParams: params}, deps)
	if errors.Is(err, attendance.ErrInvalidDate) {
		if errMsg == "" {
			errMsg = err.Error()
		}
		board, err = projections.QueryGetBoard(r.Context(), projections.GetBoardQuery{ListParams: params}, deps)
	}
	if err != nil {
		internalError(w, err)
		return
	}

	data := boardPage{
		Board:        board,
		SelectedDate: s.store.SelectedDate(),
		Search:       params.Search,
		Sort:         params.Sort,
		Dir:          params.Dir,
		Headers:      make(map[string]sortHeader, len(projections.BoardSortColumns)),
		Roles:        worker.Roles,
		DefaultRole:  worker.DefaultRole,
		Error:        errMsg,
		CSRFField:    middleware.CSRFFieldName,
		CSRFToken:    csrf.Token(r),
	}
	for _, col := range projections.BoardSortColumns {
		data.Headers[col] = newSortHeader(col, board.Date, params)
	}
	s.render(w, data)
}

func newSortHeader(col, date string, params listutil.ListParams) sortHeader {
	h := sortHeader{Label: boardColumnLabels[col], Active: params.Sort == col, Dir: params.Dir}
	next := listutil.DirAsc
	if h.Active && params.Dir == listutil.DirAsc {
		next = listutil.DirDesc
	}
	v := url.Values{"date": {date}, "sort": {col}, "dir": {next}}
	if params.Search != "" {
		v.Set("q", params.Search)
	}
	h.URL = template.URL("/?" + v.Encode())
	return h
}

func (s *Server) render(w http.ResponseWriter, data boardPage) {
	buf := new(bytes.Buffer)
	if err := s.board.Execute(buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("response_write_failed", "error", err)
	}
}

// handleAddWorkerForm adds a worker from the board form.
func (s *Server) handleAddWorkerForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	back := r.FormValue("date")

	rate, err := decimal.NewFromString(r.FormValue("daily_rate"))
	if err != nil {
		redirectBoard(w, r, back, worker.ErrNonPositiveRate.Error())
		return
	}
	_, res := s.store.AddWorker(r.Context(), r.FormValue("name"), r.FormValue("role"), rate)
	redirectBoard(w, r, back, resultMessage(res))
}

// handleMarkAttendanceForm marks a worker present or absent on the form's date.
func (s *Server) handleMarkAttendanceForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	date := r.FormValue("date")

	status, err := attendance.ParseStatus(r.FormValue("status"))
	if err != nil {
		redirectBoard(w, r, date, err.Error())
		return
	}
	var res roster.Result
	if date == "" {
		res = s.store.MarkSelected(r.Context(), r.PathValue("id"), status)
	} else {
		res = s.store.MarkAttendance(r.Context(), r.PathValue("id"), date, status)
	}
	redirectBoard(w, r, date, resultMessage(res))
}

// handleDeleteWorkerForm removes a worker. Confirmation happens in the browser.
func (s *Server) handleDeleteWorkerForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	res := s.store.DeleteWorker(r.Context(), r.PathValue("id"))
	redirectBoard(w, r, r.FormValue("date"), resultMessage(res))
}

// handleSelectDateForm changes the date attendance marks apply to.
func (s *Server) handleSelectDateForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	date := r.FormValue("date")
	if err := s.store.SetSelectedDate(date); err != nil {
		redirectBoard(w, r, "", err.Error())
		return
	}
	redirectBoard(w, r, date, "")
}

// resultMessage is the banner text for a result that did not apply.
func resultMessage(res roster.Result) string {
	switch res.Status {
	case roster.StatusRejected, roster.StatusNotFound:
		return res.Err().Error()
	default:
		return ""
	}
}

// redirectBoard sends the browser back to the board, keeping the date and any error.
func redirectBoard(w http.ResponseWriter, r *http.Request, date, errMsg string) {
	v := url.Values{}
	if date != "" {
		v.Set("date", date)
	}
	if errMsg != "" {
		v.Set("error", errMsg)
	}
	target := "/"
	if len(v) > 0 {
		target += "?" + v.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
