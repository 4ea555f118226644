package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/ndegwamoche/budget-tracker/internal/export"
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.reports.MonthOverview(r.Context(), ownerID(r.Context()), queryMonth(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverviewView(ov))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.YearReport(r.Context(), ownerID(r.Context()), queryYear(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportView(rep))
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.YearReport(r.Context(), ownerID(r.Context()), queryYear(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Render into memory first so a failure can still answer with an
	// error status instead of a truncated download.
	var buf bytes.Buffer
	if err := export.WriteYearReport(&buf, rep); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="spending-report-%d.xlsx"`, rep.Year))
	_, _ = buf.WriteTo(w)
}
