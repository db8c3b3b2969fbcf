package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gallop/internal/race"
	"gallop/internal/sim"
)

// StartRequest is the body of POST /api/v1/race/start. Every field is
// optional.
type StartRequest struct {
	GameID      string  `json:"gameId"`
	Rank        []int   `json:"rank"`
	DurationSec float64 `json:"durationSec"`
	Countdown   float64 `json:"countdown"`
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sim.Snapshot())
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.sim.Result()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeBadRequest, "invalid start request: "+err.Error())
		return
	}
	if req.DurationSec < 0 || req.Countdown < 0 {
		s.writeError(w, http.StatusBadRequest, ErrTypeBadRequest, "durationSec and countdown must not be negative")
		return
	}

	err := s.sim.Start(sim.StartOptions{
		GameID:       req.GameID,
		Rank:         req.Rank,
		DurationSec:  req.DurationSec,
		CountdownSec: req.Countdown,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.sim.Snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.sim.Pause(); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.sim.Snapshot())
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	if err := s.sim.End(); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"state": s.sim.State()})
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.presets.ListPresets(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"presets": presets})
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	p, err := s.presets.LoadPreset(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// handlePutPreset stores the body as a tuning. Missing fields take the
// default tuning's values.
func (s *Server) handlePutPreset(w http.ResponseWriter, r *http.Request) {
	cfg := race.DefaultConfig()
	if err := decodeBody(r, &cfg); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeBadRequest, "invalid preset: "+err.Error())
		return
	}
	cfg.Normalize()

	p, err := s.presets.SavePreset(r.Context(), chi.URLParam(r, "name"), cfg)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.log.Infof("preset %q saved", p.Name)
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.presets.DeletePreset(r.Context(), name); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleApplyPreset loads a preset into the host for the next race.
func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	p, err := s.presets.LoadPreset(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if err := s.sim.Configure(p.Config); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.log.Infof("preset %q applied", p.Name)
	s.writeJSON(w, http.StatusOK, s.sim.Snapshot())
}
