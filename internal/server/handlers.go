package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	nerr "github.com/vango-dev/notes/internal/errors"
	"github.com/vango-dev/notes/internal/notes"
)

// maxBodyBytes bounds request bodies; content is capped at 10000 runes.
const maxBodyBytes = 64 << 10

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return nerr.New("N203").WithDetail(err.Error()).Wrap(err)
	}
	return nil
}

func noteID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, nerr.New("N202").WithField("id").WithDetail("id must be a positive integer, got " + strconv.Quote(raw))
	}
	return id, nil
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if list == nil {
		list = []notes.Note{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var in notes.Create
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	note, err := s.store.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.logger.Info("note created", "id", note.ID)
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	note, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	var in notes.Update
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if in.Empty() {
		writeError(w, r, s.logger, nerr.New("N201").WithDetail("At least title or content must be updated."))
		return
	}
	note, err := s.store.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.logger.Info("note updated", "id", id)
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.logger.Info("note deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	versions, err := s.store.History(r.Context(), id)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if len(versions) == 0 {
		writeError(w, r, s.logger, nerr.New("N301"))
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.reports.Report(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type summaryResponse struct {
	NoteID  int64  `json:"note_id"`
	Summary string `json:"summary"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	note, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if s.summarizer == nil || !s.summarizer.Configured() {
		writeError(w, r, s.logger, nerr.New("N501"))
		return
	}
	summary, err := s.summarizer.Summarize(r.Context(), note.Content)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{NoteID: id, Summary: summary})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, r, s.logger, nerr.New("N503"))
		return
	}
	res, err := s.exporter.Export(r.Context(), s.store)
	if err != nil {
		ne := apiError(err)
		if ne.Code == "N500" {
			ne = nerr.New("N504").WithDetail(err.Error()).Wrap(err)
		}
		writeError(w, r, s.logger, ne)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
