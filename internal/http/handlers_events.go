package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ndegwamoche/budget-tracker/internal/core"
)

// handleEvents streams the month overview over SSE. Every store change for
// the owner produces a fresh full snapshot; each event supersedes the one
// before it, so a client only ever needs the latest.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The server-wide write deadline would sever the stream; clear it for
	// this response so later snapshots still reach the client.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	owner := ownerID(r.Context())
	month := queryMonth(r)
	if !month.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid month"})
		return
	}

	start, end := month.Bounds()
	snaps, err := s.watcher.WatchRecords(r.Context(), owner, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The previous month's total anchors the change figure; it cannot be
	// affected by edits inside the watched window, so one read suffices.
	prevStart, prevEnd := month.Prev().Bounds()
	prevRecords, err := s.records.ListRange(r.Context(), owner, prevStart, prevEnd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	prevTotal := core.Total(prevRecords)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snap := range snaps {
		if snap.Err != nil {
			slog.ErrorContext(r.Context(), "Watch snapshot failed",
				"owner_id", owner, "error", snap.Err)
			fmt.Fprintf(w, "event: error\ndata: {\"error\":\"snapshot failed\"}\n\n")
			flusher.Flush()
			continue
		}

		// Category names can change between snapshots; re-read them so
		// renames show up without reconnecting.
		cats, err := s.categories.List(r.Context(), owner)
		if err != nil {
			slog.ErrorContext(r.Context(), "Category lookup failed during stream",
				"owner_id", owner, "error", err)
			cats = nil
		}

		ov := core.NewMonthOverview(month, snap.Records, cats, prevTotal, s.reports.RecentLimit())
		payload, err := json.Marshal(toOverviewView(ov))
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "event: overview\ndata: %s\n\n", payload)
		flusher.Flush()
	}
}
