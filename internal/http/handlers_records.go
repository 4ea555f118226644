package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ndegwamoche/budget-tracker/internal/services"
)

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", services.ErrValidation, err)
	}
	return nil
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.ListMonth(r.Context(), ownerID(r.Context()), queryMonth(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": toRecordViews(records)})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), ownerID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordView(rec))
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var input services.RecordInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.records.Create(r.Context(), ownerID(r.Context()), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordView(rec))
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var input services.RecordInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.records.Update(r.Context(), ownerID(r.Context()), r.PathValue("id"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordView(rec))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.records.Delete(r.Context(), ownerID(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
